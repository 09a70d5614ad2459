package capture

import (
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FormulaBoard/internal/errs"
	"FormulaBoard/internal/state"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func TestIsEmptyWhiteRaster(t *testing.T) {
	assert.True(t, IsEmpty(whiteImage(30, 20)))
}

func TestIsEmptySingleInkedPixelAnywhere(t *testing.T) {
	for _, p := range []image.Point{{0, 0}, {29, 19}, {15, 7}} {
		img := whiteImage(30, 20)
		img.SetRGBA(p.X, p.Y, color.RGBA{R: 255, G: 255, B: 254, A: 255})
		assert.False(t, IsEmpty(img), "pixel %v", p)
	}
}

func TestIsEmptyIgnoresAlpha(t *testing.T) {
	img := whiteImage(4, 4)
	img.Pix[3] = 0x10
	assert.True(t, IsEmpty(img))
}

func TestIsEmptyOnSubImage(t *testing.T) {
	img := whiteImage(10, 10)
	img.SetRGBA(0, 0, color.RGBA{A: 255})
	sub := img.SubImage(image.Rect(5, 5, 10, 10))
	assert.True(t, IsEmpty(sub))
}

func TestIsEmptyGenericImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	assert.True(t, IsEmpty(img))
	img.Set(1, 1, color.Black)
	assert.False(t, IsEmpty(img))
}

func TestSnapshotRejectsEmpty(t *testing.T) {
	c, err := Snapshot(whiteImage(5, 5))
	assert.Nil(t, c)
	assert.ErrorIs(t, err, errs.ErrEmptyCapture)
}

func TestSnapshotIsLossless(t *testing.T) {
	s := state.NewSurface(120, 60)
	s.BeginStroke(10, 10)
	s.ExtendStroke(100, 50)
	src := s.Image()

	c, err := Snapshot(src)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, 120, c.Width())
	assert.Equal(t, 60, c.Height())

	decoded, err := c.Decode()
	require.NoError(t, err)
	for y := 0; y < 60; y++ {
		for x := 0; x < 120; x++ {
			r1, g1, b1, a1 := src.At(x, y).RGBA()
			r2, g2, b2, a2 := decoded.At(x, y).RGBA()
			require.Equal(t, [4]uint32{r1, g1, b1, a1}, [4]uint32{r2, g2, b2, a2}, "pixel %d,%d", x, y)
		}
	}

	uri := c.DataURI()
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, c.PNG(), raw)
}

func TestCaptureBytesAreImmutable(t *testing.T) {
	img := whiteImage(4, 4)
	img.SetRGBA(1, 1, color.RGBA{A: 255})
	c, err := Snapshot(img)
	require.NoError(t, err)

	b := c.PNG()
	b[0] ^= 0xff
	assert.NotEqual(t, b, c.PNG())
}

func TestServiceHoldsAndDiscards(t *testing.T) {
	svc := NewService()
	img := whiteImage(8, 8)
	img.SetRGBA(2, 2, color.RGBA{A: 255})

	c, err := svc.Take(img)
	require.NoError(t, err)
	assert.Same(t, c, svc.Held())

	svc.Discard()
	assert.Nil(t, svc.Held())
	assert.False(t, IsEmpty(img), "discard leaves the raster alone")
}

func TestServiceFailedTakeDropsHeld(t *testing.T) {
	svc := NewService()
	img := whiteImage(8, 8)
	img.SetRGBA(2, 2, color.RGBA{A: 255})
	_, err := svc.Take(img)
	require.NoError(t, err)

	_, err = svc.Take(whiteImage(8, 8))
	assert.ErrorIs(t, err, errs.ErrEmptyCapture)
	assert.Nil(t, svc.Held())
}

func TestClearedSurfaceCannotBeCaptured(t *testing.T) {
	s := state.NewSurface(50, 50)
	svc := NewService()
	s.OnClear = svc.Discard

	s.BeginStroke(5, 5)
	s.ExtendStroke(40, 40)
	_, err := svc.Take(s.Image())
	require.NoError(t, err)

	s.Clear()
	assert.Nil(t, svc.Held())
	_, err = svc.Take(s.Image())
	assert.ErrorIs(t, err, errs.ErrEmptyCapture)

	s.BeginStroke(5, 5)
	s.ExtendStroke(40, 5)
	_, err = svc.Take(s.Image())
	assert.NoError(t, err)
}
