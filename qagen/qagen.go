// Package qagen generates question-answer pairs from document text for
// the offline Q&A index, via the LOAD -> SPLIT? -> (PROMPT -> CALL_LLM ->
// PARSE_JSON -> VALIDATE) -> DEDUP -> PERSIST state machine.
package qagen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/voidtrace/ragcore/llm"
)

// Pair is a single generated question-answer-context triple. It carries
// no embedding: GenerateQA embeds each question when it converts the pair
// into a qaindex.Pair.
type Pair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Context  string `json:"context"`
	PageHint int    `json:"page_hint,omitempty"`
}

// Stats reports the outcome of one GenerateQAPairs call.
type Stats struct {
	Windows          int
	TokensSent       int
	TokensReceived   int
	QACount          int
	InvalidCount     int
	ProcessingTimeMs int64
}

// countQAsForSize returns the target pair count for a window, scaling
// with document size into small/medium/large bands.
func countQAsForSize(tokenCount int) int {
	switch {
	case tokenCount < 5000:
		return 8
	case tokenCount < 15000:
		return 16
	default:
		return 24
	}
}

// Generator drives Q&A generation against an llm.Provider.
type Generator struct {
	Provider            llm.Provider
	Model               string
	Temperature         float64
	MaxCompletionTokens int
}

// NewGenerator returns a Generator with the spec's defaults for
// temperature and completion budget.
func NewGenerator(provider llm.Provider, model string) *Generator {
	return &Generator{
		Provider:            provider,
		Model:               model,
		Temperature:         0.3,
		MaxCompletionTokens: 16000,
	}
}

// GenerateQAPairs runs the full state machine for one document: splitting
// it into windows if it exceeds the split threshold, prompting the LLM
// for each window, parsing and validating the JSON response, and
// returning every valid pair alongside aggregate stats. Deduplication and
// persistence are separate stages (see dedup.go and the caller's
// persistence layer) so this function can be tested without either.
func (g *Generator) GenerateQAPairs(ctx context.Context, documentText, documentTitle string, pages []string) ([]Pair, Stats, error) {
	start := time.Now()

	var windows []Window
	if NeedsSplit(documentText) {
		windows = Split(documentText, pages)
	} else {
		windows = []Window{{Text: documentText}}
	}

	var allPairs []Pair
	var stats Stats
	stats.Windows = len(windows)

	for _, w := range windows {
		pairs, sent, received, err := g.generateWindow(ctx, w, documentTitle)
		if err != nil {
			return nil, stats, err
		}
		stats.TokensSent += sent
		stats.TokensReceived += received

		for _, p := range pairs {
			if p.PageHint == 0 && w.StartPage > 0 {
				p.PageHint = w.StartPage
			}
			if err := Validate(p); err != nil {
				stats.InvalidCount++
				continue
			}
			allPairs = append(allPairs, p)
		}
	}

	stats.QACount = len(allPairs)
	stats.ProcessingTimeMs = time.Since(start).Milliseconds()

	return allPairs, stats, nil
}

func (g *Generator) generateWindow(ctx context.Context, w Window, title string) ([]Pair, int, int, error) {
	tokenCount := EstimateTokens(w.Text)
	prompt := buildPrompt(w.Text, title, countQAsForSize(tokenCount))

	req := llm.ChatRequest{
		Model: g.Model,
		Messages: []llm.Message{
			{Role: "system", Content: "You are a precision question-answer generator. Respond with JSON only."},
			{Role: "user", Content: prompt},
		},
		Temperature:    g.Temperature,
		MaxTokens:      g.MaxCompletionTokens,
		ResponseFormat: "json_object",
	}

	var resp *llm.ChatResponse
	err := withRetry(ctx, "qagen.generate", func() error {
		var callErr error
		resp, callErr = g.Provider.Chat(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, EstimateTokens(prompt), 0, fmt.Errorf("qagen: generating pairs: %w", err)
	}

	pairs, err := parseResponse(resp.Content)
	if err != nil {
		return nil, EstimateTokens(prompt), resp.CompletionTokens, fmt.Errorf("qagen: parsing response: %w", err)
	}

	return pairs, EstimateTokens(prompt), resp.CompletionTokens, nil
}

type qaResponseBody struct {
	QuestionsAnswers []Pair `json:"questions_answers"`
}

func parseResponse(content string) ([]Pair, error) {
	var body qaResponseBody
	if err := json.Unmarshal([]byte(content), &body); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	return body.QuestionsAnswers, nil
}

func buildPrompt(documentText, title string, qaCount int) string {
	var b strings.Builder
	b.WriteString("You are generating a question-answer knowledge base from the document below.\n\n")
	fmt.Fprintf(&b, "DOCUMENT TITLE: %s\n\n", title)
	b.WriteString("TEXT-TO-SPEECH SAFETY:\n")
	b.WriteString("Use only Latin letters, digits, ASCII punctuation, the euro sign, and bullet points.\n")
	b.WriteString("Never use CJK characters, emoji, en/em dashes, smart ellipsis, or ligatures.\n\n")
	fmt.Fprintf(&b, "TASK: Generate %d or more high-quality question-answer pairs covering every important fact in this document.\n\n", qaCount)
	b.WriteString("REQUIREMENTS:\n")
	b.WriteString("1. Questions: specific, factual, self-contained, referencing the document by name.\n")
	b.WriteString("2. Answers: direct and factual, never starting with a filler preface like \"according to the document\".\n")
	b.WriteString("3. Never state a consequence or requirement unless the document explicitly says so.\n")
	b.WriteString("4. Context: quote the supporting passage from the document for each answer.\n")
	b.WriteString("5. Avoid generating two questions that ask the same thing in different words; different angles on the same fact are fine.\n\n")
	b.WriteString("DOCUMENT TEXT:\n")
	b.WriteString(documentText)
	b.WriteString("\n\nOUTPUT FORMAT (JSON only):\n")
	b.WriteString(`{"questions_answers": [{"question": "...", "answer": "...", "context": "...", "page_hint": 0}]}`)
	return b.String()
}
