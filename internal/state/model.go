package state

import "image/color"

// Point is a raster-local coordinate.
type Point struct{ X, Y float64 }

// ToolMode selects how pointer input mutates the raster.
type ToolMode int

const (
	ToolDraw ToolMode = iota
	ToolErase
)

func (m ToolMode) String() string {
	switch m {
	case ToolDraw:
		return "draw"
	case ToolErase:
		return "erase"
	default:
		return "unknown"
	}
}

// ParseToolMode maps the names used by front-ends ("draw"/"pen",
// "erase"/"eraser") onto a ToolMode.
func ParseToolMode(s string) (ToolMode, bool) {
	switch s {
	case "draw", "pen":
		return ToolDraw, true
	case "erase", "eraser":
		return ToolErase, true
	}
	return ToolDraw, false
}

// StrokeState is the input state machine: idle until a stroke begins.
type StrokeState int

const (
	StateIdle StrokeState = iota
	StateDrawing
)

var (
	PenColor   = color.RGBA{A: 255}
	PaperColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	minDrawWidth  = 2.0
	minEraseWidth = 10.0
)

// MaxSide bounds each raster dimension.
const MaxSide = 8192

// DrawWidth is the pen width for a raster of the given width.
func DrawWidth(rasterWidth int) float64 {
	return max(minDrawWidth, float64(rasterWidth)/240)
}

// EraseWidth is the eraser diameter for a raster of the given width.
func EraseWidth(rasterWidth int) float64 {
	return max(minEraseWidth, float64(rasterWidth)/48)
}

// MapPoint translates on-screen event coordinates into raster-local ones by
// subtracting the surface's on-screen top-left corner.
func MapPoint(clientX, clientY, originX, originY float64) Point {
	return Point{X: clientX - originX, Y: clientY - originY}
}
