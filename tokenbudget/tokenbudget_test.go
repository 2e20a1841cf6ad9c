package tokenbudget

import (
	"strings"
	"testing"
)

func TestSelectWholeCandidatesFit(t *testing.T) {
	candidates := []Candidate{
		{Text: strings.Repeat("a", 40)}, // 10 tokens
		{Text: strings.Repeat("b", 40)}, // 10 tokens
	}
	out := Select(candidates, 100, 0)
	if len(out) != 2 {
		t.Fatalf("expected 2 selected, got %d", len(out))
	}
	for _, s := range out {
		if s.Truncated {
			t.Error("did not expect truncation")
		}
	}
}

func TestSelectStopsAtFirstNonFitting(t *testing.T) {
	candidates := []Candidate{
		{Text: strings.Repeat("a", 40)}, // 10 tokens
		{Text: strings.Repeat("b", 4000)},
		{Text: strings.Repeat("c", 40)}, // would fit but comes after a non-fitting candidate
	}
	out := Select(candidates, 20, 0)
	if len(out) != 1 {
		t.Fatalf("expected exactly 1 selected (the first), got %d", len(out))
	}
	if out[0].Text != candidates[0].Text {
		t.Error("expected first candidate to be selected")
	}
}

func TestSelectTruncatesWhenEnoughRemains(t *testing.T) {
	// Budget large enough to attempt truncation (>= 200 tokens remaining)
	// but the candidate itself is larger than that.
	long := strings.Repeat("word ", 2000) + ". trailing text that should be cut off"
	candidates := []Candidate{{Text: long}}
	out := Select(candidates, 300, 0)
	if len(out) != 1 {
		t.Fatalf("expected 1 selected (truncated), got %d", len(out))
	}
	if !out[0].Truncated {
		t.Error("expected candidate to be marked truncated")
	}
	if EstimateTokens(out[0].Text) > 300 {
		t.Errorf("truncated candidate exceeds budget: %d tokens", EstimateTokens(out[0].Text))
	}
}

func TestSelectRespectsReserveTokens(t *testing.T) {
	candidates := []Candidate{{Text: strings.Repeat("a", 40)}} // 10 tokens
	out := Select(candidates, 10, 10)
	if len(out) != 0 {
		t.Fatalf("expected 0 selected when reserve consumes entire budget, got %d", len(out))
	}
}

func TestSelectPreservesOrder(t *testing.T) {
	candidates := []Candidate{
		{Text: strings.Repeat("a", 20), Similarity: 0.9},
		{Text: strings.Repeat("b", 20), Similarity: 0.8},
		{Text: strings.Repeat("c", 20), Similarity: 0.7},
	}
	out := Select(candidates, 1000, 0)
	if len(out) != 3 {
		t.Fatalf("expected 3 selected, got %d", len(out))
	}
	for i, s := range out {
		if s.Similarity != candidates[i].Similarity {
			t.Errorf("order not preserved at index %d", i)
		}
	}
}
