// Package loader turns uploaded files into plain text.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/charmap"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/ports"
)

// MaxFileSize bounds files read from disk.
const MaxFileSize = 20 * 1024 * 1024

// ErrUnsupported marks a file whose extension no extractor handles.
var ErrUnsupported = errors.New("unsupported file type")

// File is a loaded file with its extracted text.
type File struct {
	Name    string
	Path    string
	Content string
	ModTime time.Time
}

// TextLoader decodes plain text documents (.txt, .md). Input that is not
// valid UTF-8 is decoded as a legacy single-byte encoding.
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Extract implements ports.TextExtractor.
func (l *TextLoader) Extract(ctx context.Context, filename string, data []byte) (string, bool) {
	text := DecodeText(data)
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText returns data as UTF-8. Valid UTF-8 is kept as is (minus a
// BOM). Otherwise bytes in 0x80-0x9F select Windows-1252, and anything
// else is read as ISO-8859-1; both decodings are total.
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	dec := charmap.ISO8859_1.NewDecoder()
	for _, b := range data {
		if b >= 0x80 && b <= 0x9F {
			dec = charmap.Windows1252.NewDecoder()
			break
		}
	}
	out, err := dec.Bytes(data)
	if err != nil {
		return ""
	}
	return string(out)
}

// parserExtractor adapts a DocumentParser to the extractor contract.
type parserExtractor struct {
	parser ports.DocumentParser
}

func (p parserExtractor) Extract(ctx context.Context, filename string, data []byte) (string, bool) {
	text, err := p.parser.Parse(ctx, data, filename)
	if err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("document parsing failed")
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

// MultiLoader dispatches on the file extension.
type MultiLoader struct {
	loaders map[string]ports.TextExtractor
}

// NewMultiLoader handles text files plus every format of the given parsers.
func NewMultiLoader(parsers ...ports.DocumentParser) *MultiLoader {
	text := NewTextLoader()
	m := &MultiLoader{loaders: make(map[string]ports.TextExtractor)}
	for _, ext := range text.SupportedExtensions() {
		m.loaders[ext] = text
	}
	for _, p := range parsers {
		for _, format := range p.SupportedFormats() {
			m.loaders["."+strings.ToLower(format)] = parserExtractor{parser: p}
		}
	}
	return m
}

// Extract implements ports.TextExtractor. Unknown extensions and empty
// extractions yield ("", false); it never panics.
func (m *MultiLoader) Extract(ctx context.Context, filename string, data []byte) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("filename", filename).Msg("text extraction panicked")
			text, ok = "", false
		}
	}()

	ext := strings.ToLower(filepath.Ext(filename))
	loader, found := m.loaders[ext]
	if !found {
		log.Warn().Str("filename", filename).Str("ext", ext).Msg("unsupported file type")
		return "", false
	}
	text, ok = loader.Extract(ctx, filename, data)
	if !ok {
		log.Warn().Str("filename", filename).Msg("no text content found")
	}
	return text, ok
}

// Supports reports whether filename has a handled extension.
func (m *MultiLoader) Supports(filename string) bool {
	_, ok := m.loaders[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Load reads a file from disk and extracts its text.
func (m *MultiLoader) Load(ctx context.Context, path string) (*File, error) {
	if !m.Supports(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("file %s too large (%d bytes)", path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	text, ok := m.Extract(ctx, name, data)
	if !ok {
		return nil, fmt.Errorf("no text could be extracted from %s", name)
	}
	return &File{Name: name, Path: path, Content: text, ModTime: info.ModTime()}, nil
}

// SupportedExtensions returns all supported extensions, sorted.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
