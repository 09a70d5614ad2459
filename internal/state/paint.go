package state

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// paintCapsule fills the round-capped segment a-b of the given radius. When a
// and b coincide the result is a disc, which is how the eraser paints.
func paintCapsule(dst *image.RGBA, a, b Point, radius float64, c color.Color) {
	if radius <= 0 {
		return
	}
	bounds := dst.Bounds()
	// Clip to the raster grown by more than the radius so the clipped ends
	// and their caps stay off-raster.
	margin := radius + 2
	limit := rectF{
		x0: float64(bounds.Min.X) - margin, y0: float64(bounds.Min.Y) - margin,
		x1: float64(bounds.Max.X) + margin, y1: float64(bounds.Max.Y) + margin,
	}
	a, b, ok := clipSegment(a, b, limit)
	if !ok {
		return
	}

	box := image.Rect(
		int(math.Floor(min(a.X, b.X)-radius))-1, int(math.Floor(min(a.Y, b.Y)-radius))-1,
		int(math.Ceil(max(a.X, b.X)+radius))+1, int(math.Ceil(max(a.Y, b.Y)+radius))+1,
	)
	if box.Intersect(bounds).Empty() {
		return
	}

	z := vector.NewRasterizer(box.Dx(), box.Dy())
	origin := Point{X: float64(box.Min.X), Y: float64(box.Min.Y)}
	capsulePath(z, sub(a, origin), sub(b, origin), radius)

	mask := image.NewAlpha(image.Rect(0, 0, box.Dx(), box.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(dst, box, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}

// capsulePath outlines a stadium: two half circles joined by straight sides.
func capsulePath(z *vector.Rasterizer, a, b Point, r float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length < 1e-9 {
		moveTo(z, Point{X: a.X + r, Y: a.Y})
		arc(z, a, r, 0, 2*math.Pi)
		z.ClosePath()
		return
	}
	// Angle of the left-hand normal.
	phi := math.Atan2(dx, -dy)
	nx, ny := r*math.Cos(phi), r*math.Sin(phi)

	moveTo(z, Point{X: a.X + nx, Y: a.Y + ny})
	lineTo(z, Point{X: b.X + nx, Y: b.Y + ny})
	arc(z, b, r, phi, phi-math.Pi)
	lineTo(z, Point{X: a.X - nx, Y: a.Y - ny})
	arc(z, a, r, phi-math.Pi, phi-2*math.Pi)
	z.ClosePath()
}

// arc appends a circular arc from angle t0 to t1 as cubic Béziers of at most
// a quarter turn each. The pen must already sit at the start point.
func arc(z *vector.Rasterizer, c Point, r, t0, t1 float64) {
	n := int(math.Ceil(math.Abs(t1-t0) / (math.Pi / 2)))
	if n < 1 {
		n = 1
	}
	step := (t1 - t0) / float64(n)
	k := 4.0 / 3.0 * math.Tan(step/4)
	for i := 0; i < n; i++ {
		s0 := t0 + float64(i)*step
		s1 := s0 + step
		p0 := Point{X: c.X + r*math.Cos(s0), Y: c.Y + r*math.Sin(s0)}
		p3 := Point{X: c.X + r*math.Cos(s1), Y: c.Y + r*math.Sin(s1)}
		p1 := Point{X: p0.X - k*r*math.Sin(s0), Y: p0.Y + k*r*math.Cos(s0)}
		p2 := Point{X: p3.X + k*r*math.Sin(s1), Y: p3.Y - k*r*math.Cos(s1)}
		z.CubeTo(float32(p1.X), float32(p1.Y), float32(p2.X), float32(p2.Y), float32(p3.X), float32(p3.Y))
	}
}

func moveTo(z *vector.Rasterizer, p Point) { z.MoveTo(float32(p.X), float32(p.Y)) }
func lineTo(z *vector.Rasterizer, p Point) { z.LineTo(float32(p.X), float32(p.Y)) }

func sub(p, q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

type rectF struct{ x0, y0, x1, y1 float64 }

// clipSegment is Liang-Barsky clipping of a-b against r.
func clipSegment(a, b Point, r rectF) (Point, Point, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, a.X - r.x0},
		{dx, r.x1 - a.X},
		{-dy, a.Y - r.y0},
		{dy, r.y1 - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return a, b, false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return a, b, false
			}
			t1 = min(t1, t)
		}
	}
	return Point{X: a.X + t0*dx, Y: a.Y + t0*dy}, Point{X: a.X + t1*dx, Y: a.Y + t1*dy}, true
}
