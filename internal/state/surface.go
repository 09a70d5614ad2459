package state

import (
	"image"
	"image/draw"
	"log"
	"math"
	"sync"
)

// Surface owns the drawing raster and turns pointer input into strokes or
// erasures. Operations never fail; coordinates outside the raster are
// clipped while painting.
type Surface struct {
	mu         sync.RWMutex
	raster     *image.RGBA
	tool       ToolMode
	state      StrokeState
	anchor     Point
	drawWidth  float64
	eraseWidth float64
	revision   uint64

	// OnClear runs after the raster has been wiped, outside the lock.
	OnClear func()
}

// NewSurface creates a white surface of the given size in draw mode.
func NewSurface(width, height int) *Surface {
	s := &Surface{tool: ToolDraw}
	s.Resize(width, height)
	return s
}

// Resize reallocates the raster, fills it white and recomputes the pen and
// eraser widths from the new width. Each side is clamped to [1, MaxSide].
func (s *Surface) Resize(width, height int) {
	width, height = clampSide(width), clampSide(height)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.raster == nil || s.raster.Bounds().Dx() != width || s.raster.Bounds().Dy() != height {
		s.raster = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	fillWhite(s.raster)
	s.drawWidth = DrawWidth(width)
	s.eraseWidth = EraseWidth(width)
	s.revision++
	log.Printf("[SURFACE] Resized to %dx%d (pen %.1f, eraser %.1f)", width, height, s.drawWidth, s.eraseWidth)
}

// BeginStroke records the anchor point and enters the drawing state.
func (s *Surface) BeginStroke(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchor = Point{X: x, Y: y}
	s.state = StateDrawing
}

// ExtendStroke paints from the anchor to (x, y) with the active tool and
// moves the anchor. It does nothing while no stroke is active.
func (s *Surface) ExtendStroke(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDrawing {
		return
	}
	to := Point{X: x, Y: y}
	if !finite(to) {
		return
	}
	switch s.tool {
	case ToolErase:
		paintCapsule(s.raster, to, to, s.eraseWidth/2, PaperColor)
	default:
		paintCapsule(s.raster, s.anchor, to, s.drawWidth/2, PenColor)
	}
	s.anchor = to
	s.revision++
}

// EndStroke returns to the idle state. Calling it while idle is harmless.
func (s *Surface) EndStroke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
}

// Clear wipes the raster to white and notifies OnClear.
func (s *Surface) Clear() {
	s.mu.Lock()
	fillWhite(s.raster)
	s.revision++
	onClear := s.OnClear
	s.mu.Unlock()

	if onClear != nil {
		onClear()
	}
}

// SetTool switches the tool used by subsequent segments.
func (s *Surface) SetTool(mode ToolMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = mode
}

func (s *Surface) Tool() ToolMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tool
}

func (s *Surface) State() StrokeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Surface) Anchor() Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anchor
}

// Widths returns the current pen width and eraser diameter.
func (s *Surface) Widths() (draw, erase float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drawWidth, s.eraseWidth
}

func (s *Surface) Size() (width, height int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.raster.Bounds()
	return b.Dx(), b.Dy()
}

// Revision changes every time the raster is mutated.
func (s *Surface) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Image returns a copy of the raster.
func (s *Surface) Image() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := image.NewRGBA(s.raster.Bounds())
	copy(out.Pix, s.raster.Pix)
	return out
}

func clampSide(n int) int {
	return min(max(n, 1), MaxSide)
}

func fillWhite(img *image.RGBA) {
	draw.Draw(img, img.Bounds(), image.NewUniform(PaperColor), image.Point{}, draw.Src)
}

func finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
