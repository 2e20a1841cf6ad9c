package qagen

import (
	"context"
	"errors"
	"testing"

	"github.com/voidtrace/ragcore/llm"
)

type fakeProvider struct {
	responses []string
	calls     int
	failTimes int
}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if f.calls < f.failTimes {
		f.calls++
		return nil, errors.New("connection error: request to http://x failed")
	}
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	return &llm.ChatResponse{Content: f.responses[idx], CompletionTokens: 42}, nil
}

const validQAResponse = `{"questions_answers": [
	{"question": "What was the total production?", "answer": "Total production was 450 MWh.", "context": "In 2023 the cooperative produced 450 MWh.", "page_hint": 3}
]}`

func TestGenerateQAPairsSingleWindow(t *testing.T) {
	provider := &fakeProvider{responses: []string{validQAResponse}}
	g := NewGenerator(provider, "test-model")

	pairs, stats, err := g.GenerateQAPairs(context.Background(), "short document text about energy production", "Annual Report", nil)
	if err != nil {
		t.Fatalf("GenerateQAPairs: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].PageHint != 3 {
		t.Errorf("expected page hint preserved, got %d", pairs[0].PageHint)
	}
	if stats.QACount != 1 || stats.Windows != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestGenerateQAPairsFiltersInvalid(t *testing.T) {
	invalidResponse := `{"questions_answers": [
		{"question": "What happened?", "answer": "According to the report, nothing happened."}
	]}`
	provider := &fakeProvider{responses: []string{invalidResponse}}
	g := NewGenerator(provider, "test-model")

	pairs, stats, err := g.GenerateQAPairs(context.Background(), "document text", "Title", nil)
	if err != nil {
		t.Fatalf("GenerateQAPairs: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("expected invalid pair filtered out, got %d", len(pairs))
	}
	if stats.InvalidCount != 1 {
		t.Errorf("expected invalid count 1, got %d", stats.InvalidCount)
	}
}

func TestGenerateQAPairsRetriesOnTransientFailure(t *testing.T) {
	provider := &fakeProvider{responses: []string{validQAResponse}, failTimes: 2}
	g := NewGenerator(provider, "test-model")

	pairs, _, err := g.GenerateQAPairs(context.Background(), "document text", "Title", nil)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair after retry, got %d", len(pairs))
	}
	if provider.calls != 3 {
		t.Errorf("expected 3 calls (2 failures + 1 success), got %d", provider.calls)
	}
}

func TestGenerateQAPairsFailsAfterExhaustingRetries(t *testing.T) {
	provider := &fakeProvider{responses: []string{validQAResponse}, failTimes: 10}
	g := NewGenerator(provider, "test-model")

	_, _, err := g.GenerateQAPairs(context.Background(), "document text", "Title", nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestParseResponseInvalidJSON(t *testing.T) {
	_, err := parseResponse("not json")
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestCountQAsForSizeBands(t *testing.T) {
	if countQAsForSize(1000) != 8 {
		t.Error("expected small band count")
	}
	if countQAsForSize(10000) != 16 {
		t.Error("expected medium band count")
	}
	if countQAsForSize(50000) != 24 {
		t.Error("expected large band count")
	}
}
