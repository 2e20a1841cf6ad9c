package dbops

import (
	"context"
	"errors"
	"testing"

	"github.com/voidtrace/ragcore/llm"
)

type fakeSummaryProvider struct {
	response string
	err      error
}

func (f *fakeSummaryProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.response}, nil
}

func TestSummarizeParsesShortAndExtended(t *testing.T) {
	provider := &fakeSummaryProvider{
		response: `{"short": "A brief overview.", "extended": "A much longer paragraph covering the main points."}`,
	}
	s := NewSummarizer(provider, "test-model")

	sum, err := s.Summarize(context.Background(), "Test Document", "some document text")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Short != "A brief overview." {
		t.Fatalf("unexpected short summary: %q", sum.Short)
	}
	if sum.Extended != "A much longer paragraph covering the main points." {
		t.Fatalf("unexpected extended summary: %q", sum.Extended)
	}
}

func TestSummarizePropagatesProviderError(t *testing.T) {
	provider := &fakeSummaryProvider{err: errors.New("upstream unavailable")}
	s := NewSummarizer(provider, "test-model")

	if _, err := s.Summarize(context.Background(), "Test Document", "text"); err == nil {
		t.Fatal("expected an error when the provider fails")
	}
}

func TestSummarizeRejectsInvalidJSON(t *testing.T) {
	provider := &fakeSummaryProvider{response: "not json"}
	s := NewSummarizer(provider, "test-model")

	if _, err := s.Summarize(context.Background(), "Test Document", "text"); err == nil {
		t.Fatal("expected an error for a non-JSON response")
	}
}

func TestSummarizeTruncatesLongDocuments(t *testing.T) {
	provider := &fakeSummaryProvider{response: `{"short": "ok", "extended": "ok"}`}
	s := NewSummarizer(provider, "test-model")

	longText := make([]byte, 100000)
	for i := range longText {
		longText[i] = 'a'
	}

	if _, err := s.Summarize(context.Background(), "Big Doc", string(longText)); err != nil {
		t.Fatalf("Summarize should truncate rather than fail on long input: %v", err)
	}
}
