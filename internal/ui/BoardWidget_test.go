package ui

import (
	"image/color"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"

	"FormulaBoard/internal/state"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func newTestBoard(t *testing.T) (*BoardWidget, *state.Surface) {
	test.NewTempApp(t)
	s := state.NewSurface(240, 100)
	b := NewBoardWidget(s)
	test.WidgetRenderer(b)
	return b, s
}

func drag(b *BoardWidget, x, y, dx, dy float32) {
	b.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Dragged:    fyne.NewDelta(dx, dy),
	})
}

func TestBoardResizeFollowsLayout(t *testing.T) {
	b, s := newTestBoard(t)
	resized := 0
	b.OnResize = func() { resized++ }

	b.Resize(fyne.NewSize(320, 200))
	w, h := s.Size()
	assert.Equal(t, 320, w)
	assert.Equal(t, 200, h)
	assert.Equal(t, 1, resized)

	b.Resize(fyne.NewSize(320, 200))
	assert.Equal(t, 1, resized, "same size keeps the drawing")
}

func TestBoardMouseStroke(t *testing.T) {
	b, s := newTestBoard(t)

	b.MouseDown(&desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(20, 50)},
		Button:     desktop.MouseButtonPrimary,
	})
	assert.Equal(t, state.StateDrawing, s.State())
	drag(b, 200, 50, 180, 0)
	b.MouseUp(&desktop.MouseEvent{Button: desktop.MouseButtonPrimary})

	assert.Equal(t, state.StateIdle, s.State())
	assert.NotEqual(t, white, s.Image().RGBAAt(100, 50))
}

func TestBoardTouchDragStartsStroke(t *testing.T) {
	b, s := newTestBoard(t)

	drag(b, 120, 40, 100, 0)
	assert.Equal(t, state.StateDrawing, s.State())
	assert.Equal(t, state.Point{X: 120, Y: 40}, s.Anchor())
	assert.NotEqual(t, white, s.Image().RGBAAt(60, 40))

	b.DragEnd()
	assert.Equal(t, state.StateIdle, s.State())
}

func TestBoardMouseOutEndsStroke(t *testing.T) {
	b, s := newTestBoard(t)

	b.MouseDown(&desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(20, 20)},
		Button:     desktop.MouseButtonPrimary,
	})
	b.MouseOut()
	assert.Equal(t, state.StateIdle, s.State())

	drag(b, 200, 80, 10, 10)
	assert.Equal(t, state.StateIdle, s.State())
	assert.Equal(t, white, s.Image().RGBAAt(195, 75))
}
