// Package parser provides document parsing adapters for binary formats.
// Clean Architecture: adapters implementing ports.DocumentParser.
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxDocumentSize bounds the input accepted by the parsers.
const MaxDocumentSize = 20 * 1024 * 1024

var errEmptyDocument = errors.New("no text content found")

// PDFParser extracts the plain text of every page.
type PDFParser struct{}

// NewPDFParser creates a PDF parser.
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse extracts text from PDF bytes. Pages are joined with newlines.
// Malformed input returns an error; a panic inside the PDF reader is
// converted to one.
func (p *PDFParser) Parse(ctx context.Context, data []byte, filename string) (text string, err error) {
	if len(data) > MaxDocumentSize {
		return "", fmt.Errorf("PDF %s too large (%d bytes)", filename, len(data))
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("reading PDF %s: %v", filename, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", filename, err)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("PDF %s page %d: %w", filename, pageNum, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	text = strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("PDF %s: %w", filename, errEmptyDocument)
	}
	return text, nil
}

// SupportedFormats returns formats this parser handles.
func (p *PDFParser) SupportedFormats() []string {
	return []string{"pdf"}
}
