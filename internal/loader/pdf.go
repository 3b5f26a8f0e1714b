// Package loader extracts text from uploaded documents.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"notebookllm/internal/util"

	"github.com/ledongthuc/pdf"
)

// ErrNoExtractableText is returned for PDFs whose pages carry no text layer,
// such as scans.
var ErrNoExtractableText = errors.New("no extractable text found in PDF")

type Page struct {
	Number int
	Text   string
}

type PDFDocument struct {
	NumPages int
	Pages    []Page
}

// Text joins the extracted pages with blank lines.
func (d PDFDocument) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// IsPDF reports whether an upload looks like a PDF, by magic bytes or, when
// the payload is too short to tell, by extension.
func IsPDF(filename string, data []byte) bool {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return true
	}
	if len(data) >= 5 {
		return false
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// LoadPDF extracts text page by page. Pages without text are omitted from
// Pages but still counted in NumPages. A document with no text at all
// returns ErrNoExtractableText.
func LoadPDF(data []byte) (doc PDFDocument, err error) {
	if len(data) == 0 {
		return PDFDocument{}, fmt.Errorf("empty pdf")
	}
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc, err = PDFDocument{}, fmt.Errorf("parse pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return PDFDocument{}, fmt.Errorf("open pdf: %w", err)
	}
	doc.NumPages = r.NumPage()
	for i := 1; i <= doc.NumPages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return PDFDocument{}, fmt.Errorf("extract page %d text: %w", i, err)
		}
		text = util.SanitizeText(text)
		if text == "" {
			continue
		}
		doc.Pages = append(doc.Pages, Page{Number: i, Text: text})
	}
	if len(doc.Pages) == 0 {
		return PDFDocument{}, ErrNoExtractableText
	}
	return doc, nil
}
