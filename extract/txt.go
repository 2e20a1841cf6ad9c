package extract

import (
	"context"
	"fmt"
	"os"
)

// TextExtractor handles plain text and Markdown files, which need no
// structural parsing.
type TextExtractor struct{}

func (e *TextExtractor) SupportedFormats() []string { return []string{"txt", "md", "markdown"} }

func (e *TextExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: reading text file: %w", err)
	}

	content := string(data)
	if content == "" {
		return &Result{Method: "native"}, nil
	}

	return &Result{
		Pages:  []Page{{Content: content}},
		Method: "native",
	}, nil
}
