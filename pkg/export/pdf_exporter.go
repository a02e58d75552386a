package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"
)

// ErrNoFont signals that PDF rendering was requested without a usable
// unicode font file.
var ErrNoFont = errors.New("pdf export requires a unicode font file")

// reportFontFamily is the family name the unicode font is registered under.
const reportFontFamily = "report"

// PDFExporter renders datasets into a basic tabular PDF. The grade report is
// mostly Chinese text, which the built-in cp1252 core fonts cannot encode, so
// rendering needs a TTF font with CJK coverage registered as a UTF-8 font.
type PDFExporter struct {
	fontPath string
}

// NewPDFExporter constructs a PDF exporter reading glyphs from the given TTF
// font file.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{fontPath: fontPath}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	if e.fontPath == "" {
		return nil, ErrNoFont
	}
	if _, err := os.Stat(e.fontPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFont, err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddUTF8Font(reportFontFamily, "", e.fontPath)
	pdf.AddUTF8Font(reportFontFamily, "B", e.fontPath)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont(reportFontFamily, "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont(reportFontFamily, "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(reportFontFamily, "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			value := row[header]
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
