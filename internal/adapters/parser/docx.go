// Package parser provides the DOCX text extractor.
// Clean Architecture: Adapter implementing ports.DocumentParser.
package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DOCXParser extracts paragraph text from the main document part of an
// Office Open XML file.
type DOCXParser struct{}

// NewDOCXParser creates a DOCX parser.
func NewDOCXParser() *DOCXParser {
	return &DOCXParser{}
}

const docxMainPart = "word/document.xml"

// Parse returns one line per paragraph. Tabs and breaks inside a paragraph
// are kept as tab and newline.
func (p *DOCXParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) > MaxDocumentSize {
		return "", fmt.Errorf("document %s too large (%d bytes)", filename, len(data))
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", filename, err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == docxMainPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("%s: missing %s", filename, docxMainPart)
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s in %s: %w", docxMainPart, filename, err)
	}
	defer rc.Close()

	text, err := wordText(ctx, io.LimitReader(rc, MaxDocumentSize))
	if err != nil {
		return "", fmt.Errorf("%s: %w", filename, err)
	}
	if text == "" {
		return "", fmt.Errorf("%s: %w", filename, errEmptyDocument)
	}
	return text, nil
}

// wordText walks WordprocessingML tokens and collects w:t runs.
func wordText(ctx context.Context, r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb, para strings.Builder
	inText := false
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decoding document xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteString("\t")
			case "br", "cr":
				para.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString(para.String())
				sb.WriteString("\n")
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	sb.WriteString(para.String())
	return strings.TrimSpace(sb.String()), nil
}

// SupportedFormats returns formats this parser handles.
func (p *DOCXParser) SupportedFormats() []string {
	return []string{"docx", "doc"}
}
