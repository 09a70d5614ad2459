package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"FormulaBoard/internal/state"
)

// BoardWidget shows a Surface and feeds pointer input into it. Positions
// arrive widget-relative, so they map 1:1 onto raster coordinates.
type BoardWidget struct {
	widget.BaseWidget
	surface *state.Surface
	raster  *canvas.Image

	// A drag that left the widget stays ended until the button is released.
	outside bool

	// OnResize runs after the raster was reallocated to the widget size.
	OnResize func()
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)

func NewBoardWidget(surface *state.Surface) *BoardWidget {
	b := &BoardWidget{surface: surface}
	b.raster = canvas.NewImageFromImage(surface.Image())
	b.raster.FillMode = canvas.ImageFillStretch
	b.raster.ScaleMode = canvas.ImageScalePixels
	b.ExtendBaseWidget(b)
	return b
}

// Redraw copies the current raster to the screen.
func (b *BoardWidget) Redraw() {
	b.raster.Image = b.surface.Image()
	b.raster.Refresh()
}

func (b *BoardWidget) fit(size fyne.Size) {
	w, h := int(size.Width), int(size.Height)
	if w <= 0 || h <= 0 {
		return
	}
	if cw, ch := b.surface.Size(); cw == w && ch == h {
		return
	}
	b.surface.Resize(w, h)
	if b.OnResize != nil {
		b.OnResize()
	}
	b.Redraw()
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	b.outside = false
	b.surface.BeginStroke(float64(e.Position.X), float64(e.Position.Y))
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		b.surface.EndStroke()
	}
}

// Dragged extends the stroke. Touch input has no MouseDown, so an idle
// surface starts the stroke where the drag began.
func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	if b.outside {
		return
	}
	if b.surface.State() == state.StateIdle {
		start := e.Position.Subtract(e.Dragged)
		b.surface.BeginStroke(float64(start.X), float64(start.Y))
	}
	b.surface.ExtendStroke(float64(e.Position.X), float64(e.Position.Y))
	b.Redraw()
}

func (b *BoardWidget) DragEnd() {
	b.outside = false
	b.surface.EndStroke()
}

func (b *BoardWidget) MouseOut() {
	if b.surface.State() == state.StateDrawing {
		b.outside = true
	}
	b.surface.EndStroke()
}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent)    {}
func (b *BoardWidget) MouseMoved(*desktop.MouseEvent) {}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	return &boardWidgetRenderer{board: b, background: canvas.NewRectangle(color.White)}
}

type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.background, r.board.raster}
}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	r.board.raster.Resize(size)
	r.board.fit(size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 200)
}

func (r *boardWidgetRenderer) Refresh() {
	r.board.raster.Refresh()
}

func (r *boardWidgetRenderer) Destroy() {}
