package preview

import (
	"fmt"
	"image"
	"log"
	"regexp"
	"strings"
	"sync"
)

// Placeholder is shown until there is something to typeset.
const Placeholder = "Draw a formula, preview the capture, then submit it for recognition."

var commentRe = regexp.MustCompile(`%.+`)

// Typesetter renders display math to an image.
type Typesetter interface {
	Typeset(latex string) (image.Image, error)
}

// Output is what the preview pane shows.
type Output struct {
	// Source is the LaTeX that was typeset, comments removed.
	Source string
	Image  image.Image
	// Message is set instead of Image for the placeholder.
	Message string
}

func (o Output) IsPlaceholder() bool { return o.Image == nil }

func placeholder() Output { return Output{Message: Placeholder} }

// StripComments drops every "%..." run to the end of its line and trims the
// result.
func StripComments(text string) string {
	return strings.TrimSpace(commentRe.ReplaceAllString(text, ""))
}

// Renderer keeps the last successful preview.
type Renderer struct {
	mu         sync.Mutex
	typesetter Typesetter
	current    Output
}

// NewRenderer uses t, or the canvas typesetter when t is nil.
func NewRenderer(t Typesetter) *Renderer {
	if t == nil {
		t = NewCanvasTypesetter()
	}
	return &Renderer{typesetter: t, current: placeholder()}
}

// Render typesets text as display math. Blank text (after comment removal)
// yields the placeholder. When typesetting fails the previous output stays
// current and is returned together with the error.
func (r *Renderer) Render(text string) (Output, error) {
	src := StripComments(text)

	r.mu.Lock()
	defer r.mu.Unlock()

	if src == "" {
		r.current = placeholder()
		return r.current, nil
	}

	img, err := r.typeset(src)
	if err != nil {
		log.Printf("[PREVIEW] Typesetting failed, keeping previous output: %v", err)
		return r.current, fmt.Errorf("typeset formula: %w", err)
	}
	r.current = Output{Source: src, Image: img}
	return r.current, nil
}

func (r *Renderer) typeset(src string) (img image.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("typesetter panic: %v", p)
		}
	}()
	return r.typesetter.Typeset(src)
}

func (r *Renderer) Current() Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Clear resets the pane to the placeholder.
func (r *Renderer) Clear() Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = placeholder()
	return r.current
}
