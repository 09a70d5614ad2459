package preview

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
)

// CanvasTypesetter typesets with tdewolff/canvas, whose LaTeX support is
// backed by the star-tex engine, and rasterizes the glyph outlines.
type CanvasTypesetter struct {
	// DotsPerMM is the raster resolution.
	DotsPerMM float64
	// Margin around the formula, in millimetres.
	Margin float64
}

func NewCanvasTypesetter() *CanvasTypesetter {
	return &CanvasTypesetter{DotsPerMM: 8, Margin: 2}
}

func (t *CanvasTypesetter) Typeset(latex string) (image.Image, error) {
	p, err := canvas.ParseLaTeX(`$\displaystyle ` + latex + `$`)
	if err != nil {
		return nil, err
	}

	c := canvas.New(1, 1)
	ctx := canvas.NewContext(c)
	ctx.SetFillColor(canvas.Black)
	ctx.DrawPath(0, 0, p)
	c.Fit(t.Margin)

	glyphs := rasterizer.Draw(c, canvas.DPMM(t.DotsPerMM), canvas.DefaultColorSpace)
	out := image.NewRGBA(glyphs.Bounds())
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), glyphs, glyphs.Bounds().Min, draw.Over)
	return out, nil
}
