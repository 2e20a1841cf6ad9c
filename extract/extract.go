// Package extract turns a document on disk into plain text with
// per-page markers, for PDF, DOCX, legacy DOC, XLSX, TXT, and Markdown.
// Downstream chunking consumes the flat text; page markers let it
// surface page hints without needing the original structured document.
package extract

import (
	"context"
	"fmt"
)

// Page is one page (or page-equivalent unit, e.g. a spreadsheet sheet)
// of extracted text.
type Page struct {
	Number  int // 1-based; 0 when the format has no page concept
	Content string
}

// Result is what an Extractor produces from a document file.
type Result struct {
	Pages  []Page
	Method string // "native"
}

// Text concatenates all pages with explicit page markers, producing the
// flat string the chunker operates on.
func (r *Result) Text() string {
	var out string
	for _, p := range r.Pages {
		if p.Number > 0 {
			out += fmt.Sprintf("[Page %d]\n", p.Number)
		}
		out += p.Content
		out += "\n\n"
	}
	return out
}

// Extractor extracts text from one document format.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Result, error)
	SupportedFormats() []string
}

// Registry dispatches Extract calls to the extractor registered for a
// file's extension.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns a Registry with every built-in extractor
// registered: PDF, DOCX, legacy DOC, XLSX/XLS, TXT, and MD.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	for _, e := range []Extractor{
		&PDFExtractor{},
		&DOCXExtractor{},
		&LegacyDOCExtractor{},
		&XLSXExtractor{},
		&TextExtractor{},
	} {
		for _, format := range e.SupportedFormats() {
			r.extractors[format] = e
		}
	}
	return r
}

// Register adds or overrides the extractor for format.
func (r *Registry) Register(format string, e Extractor) {
	r.extractors[format] = e
}

// Get returns the extractor registered for format.
func (r *Registry) Get(format string) (Extractor, error) {
	e, ok := r.extractors[format]
	if !ok {
		return nil, fmt.Errorf("extract: no extractor for format: %s", format)
	}
	return e, nil
}

// Extract dispatches to the extractor registered for ext (without the
// leading dot, e.g. "pdf").
func (r *Registry) Extract(ctx context.Context, path, ext string) (*Result, error) {
	e, err := r.Get(ext)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, path)
}
