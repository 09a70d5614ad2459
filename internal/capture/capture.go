package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"FormulaBoard/internal/errs"
)

const dataURIPrefix = "data:image/png;base64,"

// Capture is an immutable PNG snapshot of the raster.
type Capture struct {
	id      string
	png     []byte
	width   int
	height  int
	takenAt time.Time
}

func (c *Capture) ID() string         { return c.id }
func (c *Capture) Width() int         { return c.width }
func (c *Capture) Height() int        { return c.height }
func (c *Capture) TakenAt() time.Time { return c.takenAt }
func (c *Capture) MIMEType() string   { return "image/png" }

// PNG returns a copy of the encoded image.
func (c *Capture) PNG() []byte {
	return bytes.Clone(c.png)
}

// DataURI is the capture as a base64 data: URI, the form sent to the model.
func (c *Capture) DataURI() string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(c.png)
}

// Decode returns the captured image.
func (c *Capture) Decode() (image.Image, error) {
	return png.Decode(bytes.NewReader(c.png))
}

// IsEmpty reports whether every pixel's RGB is pure white. Alpha is ignored.
// The scan stops at the first non-white pixel.
func IsEmpty(img image.Image) bool {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgbaIsEmpty(rgba)
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R != 0xff || c.G != 0xff || c.B != 0xff {
				return false
			}
		}
	}
	return true
}

func rgbaIsEmpty(img *image.RGBA) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			if row[i] != 0xff || row[i+1] != 0xff || row[i+2] != 0xff {
				return false
			}
		}
	}
	return true
}

// Snapshot encodes img losslessly. It fails with errs.ErrEmptyCapture when
// the image is blank.
func Snapshot(img image.Image) (*Capture, error) {
	if IsEmpty(img) {
		return nil, errs.ErrEmptyCapture
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}
	b := img.Bounds()
	return &Capture{
		id:      uuid.NewString(),
		png:     buf.Bytes(),
		width:   b.Dx(),
		height:  b.Dy(),
		takenAt: time.Now(),
	}, nil
}

// Service holds at most one capture between preview and submission.
type Service struct {
	mu   sync.RWMutex
	held *Capture
}

func NewService() *Service {
	return &Service{}
}

// Take snapshots img and holds the result, replacing any previous capture.
// On failure the previously held capture is dropped.
func (s *Service) Take(img image.Image) (*Capture, error) {
	c, err := Snapshot(img)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = c
	if err != nil {
		return nil, err
	}
	log.Printf("[CAPTURE] Took %s (%dx%d, %d bytes)", c.id, c.width, c.height, len(c.png))
	return c, nil
}

// Held returns the current capture or nil.
func (s *Service) Held() *Capture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.held
}

// Discard drops the held capture; the raster is untouched.
func (s *Service) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held != nil {
		log.Printf("[CAPTURE] Discarded %s", s.held.id)
	}
	s.held = nil
}
