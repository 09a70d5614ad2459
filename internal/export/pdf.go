package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"FormulaBoard/internal/capture"
)

const (
	pageMargin     = 10.0
	maxImageWidth  = 190.0
	maxImageHeight = 180.0
)

// WritePDF writes an A4 page with the captured drawing and the recognized
// LaTeX source. Either part may be missing but not both.
func WritePDF(w io.Writer, c *capture.Capture, latex string) error {
	if c == nil && latex == "" {
		return errors.New("nothing to export")
	}

	p := gofpdf.New("P", "mm", "A4", "")
	p.SetMargins(pageMargin, pageMargin, pageMargin)
	p.SetTitle("FormulaBoard export", true)
	p.AddPage()
	tr := p.UnicodeTranslatorFromDescriptor("")

	p.SetFont("Helvetica", "B", 14)
	p.CellFormat(0, 8, "FormulaBoard", "", 1, "L", false, 0, "")
	p.SetFont("Helvetica", "", 9)
	p.CellFormat(0, 6, time.Now().Format("2006-01-02 15:04:05"), "", 1, "L", false, 0, "")
	p.Ln(4)

	if c != nil {
		name := "capture-" + c.ID()
		p.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(c.PNG()))
		width, height := fitImage(float64(c.Width()), float64(c.Height()))
		p.ImageOptions(name, pageMargin, p.GetY(), width, height, true, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		p.Ln(4)
	}

	if latex != "" {
		p.SetFont("Helvetica", "B", 11)
		p.CellFormat(0, 7, "LaTeX", "", 1, "L", false, 0, "")
		p.SetFont("Courier", "", 10)
		p.MultiCell(0, 5, tr(latex), "1", "L", false)
	}

	if err := p.Output(w); err != nil {
		return fmt.Errorf("write PDF: %w", err)
	}
	return nil
}

// fitImage scales w×h pixels into the printable box, keeping the aspect.
func fitImage(w, h float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxImageWidth, maxImageWidth / 2
	}
	scale := min(maxImageWidth/w, maxImageHeight/h)
	return w * scale, h * scale
}
