package preview

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTypesetter struct {
	calls []string
	err   error
	panic bool
}

func (s *stubTypesetter) Typeset(latex string) (image.Image, error) {
	s.calls = append(s.calls, latex)
	if s.panic {
		panic("engine exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 2)), nil
}

func TestStripComments(t *testing.T) {
	assert.Equal(t, `x^2`, StripComments("x^2 % square\n"))
	assert.Equal(t, "a\nb", StripComments("a%one\nb%two"))
	assert.Equal(t, "", StripComments("%% only a comment"))
	assert.Equal(t, "50%", StripComments("50%"), "a lone trailing percent has nothing after it")
}

func TestRenderPassesStrippedSource(t *testing.T) {
	ts := &stubTypesetter{}
	r := NewRenderer(ts)

	out, err := r.Render("x^2+y^2=1")
	require.NoError(t, err)
	assert.Equal(t, []string{"x^2+y^2=1"}, ts.calls)
	assert.Equal(t, "x^2+y^2=1", out.Source)
	assert.False(t, out.IsPlaceholder())
	assert.Equal(t, out, r.Current())
}

func TestRenderBlankShowsPlaceholder(t *testing.T) {
	ts := &stubTypesetter{}
	r := NewRenderer(ts)
	assert.True(t, r.Current().IsPlaceholder())

	_, err := r.Render("a")
	require.NoError(t, err)

	out, err := r.Render("  % just a note \n ")
	require.NoError(t, err)
	assert.True(t, out.IsPlaceholder())
	assert.Equal(t, Placeholder, out.Message)
	assert.Len(t, ts.calls, 1)
}

func TestRenderFailureKeepsPrevious(t *testing.T) {
	ts := &stubTypesetter{}
	r := NewRenderer(ts)
	first, err := r.Render(`\alpha`)
	require.NoError(t, err)

	ts.err = errors.New("undefined control sequence")
	out, err := r.Render(`\begin{bogus}`)
	assert.Error(t, err)
	assert.Equal(t, first, out)
	assert.Equal(t, first, r.Current())

	ts.err = nil
	ts.panic = true
	out, err = r.Render(`\beta`)
	assert.ErrorContains(t, err, "engine exploded")
	assert.Equal(t, first, out)
}

func TestClearResetsPlaceholder(t *testing.T) {
	r := NewRenderer(&stubTypesetter{})
	_, err := r.Render("z")
	require.NoError(t, err)
	assert.True(t, r.Clear().IsPlaceholder())
	assert.True(t, r.Current().IsPlaceholder())
}
