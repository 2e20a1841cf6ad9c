package dbops

import (
	"context"
	"fmt"

	"github.com/voidtrace/ragcore/llm"
)

// Summaries holds the short and extended document summaries generated
// during ingest. The short summary is surfaced in chunk-mode retrieval
// (once per document); the extended summary is persisted as the
// document's chunk_index=-1 "summary chunk" so it's independently
// retrievable by the ANN/BM25 indices like any other chunk.
type Summaries struct {
	Short    string
	Extended string
}

// Summarizer generates short and extended summaries for ingested
// documents via an llm.Provider chat completion.
type Summarizer struct {
	Provider llm.Provider
	Model    string
}

// NewSummarizer returns a Summarizer using provider and model.
func NewSummarizer(provider llm.Provider, model string) *Summarizer {
	return &Summarizer{Provider: provider, Model: model}
}

// Summarize produces a short (1-2 sentence) and extended (paragraph)
// summary of documentText.
func (s *Summarizer) Summarize(ctx context.Context, documentTitle, documentText string) (Summaries, error) {
	text := documentText
	if len(text) > 40000 {
		text = text[:40000]
	}

	prompt := fmt.Sprintf(`Summarize the following document titled %q in two parts:

1. A SHORT summary: one or two sentences capturing its purpose.
2. An EXTENDED summary: one paragraph covering its main points.

Respond with JSON: {"short": "...", "extended": "..."}

DOCUMENT TEXT:
%s`, documentTitle, text)

	resp, err := s.Provider.Chat(ctx, llm.ChatRequest{
		Model: s.Model,
		Messages: []llm.Message{
			{Role: "system", Content: "You write concise, factual document summaries. Respond with JSON only."},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.2,
		MaxTokens:      1024,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return Summaries{}, fmt.Errorf("dbops: generating summary: %w", err)
	}

	var parsed struct {
		Short    string `json:"short"`
		Extended string `json:"extended"`
	}
	if err := decodeJSON(resp.Content, &parsed); err != nil {
		return Summaries{}, fmt.Errorf("dbops: parsing summary response: %w", err)
	}

	return Summaries{Short: parsed.Short, Extended: parsed.Extended}, nil
}
