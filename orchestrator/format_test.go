package orchestrator

import (
	"strings"
	"testing"

	"github.com/voidtrace/ragcore/qaindex"
	"github.com/voidtrace/ragcore/tokenbudget"
)

func TestFormatQAContextEmpty(t *testing.T) {
	if got := formatQAContext(nil); got != "" {
		t.Fatalf("expected empty string for no results, got %q", got)
	}
}

func TestFormatQAContextIncludesQuestionAnswerSourceAndSimilarity(t *testing.T) {
	results := []qaindex.Result{
		{
			Pair: qaindex.Pair{
				Question:       "How much solar energy in 2023?",
				Answer:         "450 MWh.",
				SourceFilename: "report.pdf",
				Page:           2,
			},
			Similarity: 0.87,
		},
	}

	got := formatQAContext(results)
	for _, want := range []string{"How much solar energy in 2023?", "450 MWh.", "report.pdf", "page 2", "0.87"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected formatted context to contain %q, got:\n%s", want, got)
		}
	}
}

func TestFormatChunkContextGroupsByDocumentWithSummaryOnce(t *testing.T) {
	selected := []tokenbudget.Selected{
		{Candidate: tokenbudget.Candidate{Text: "first chunk", Similarity: 0.9, Metadata: map[string]string{"filename": "a.txt", "document_path": "docs/a.txt", "chunk_index": "0"}}},
		{Candidate: tokenbudget.Candidate{Text: "second chunk", Similarity: 0.8, Metadata: map[string]string{"filename": "a.txt", "document_path": "docs/a.txt", "chunk_index": "1"}}},
		{Candidate: tokenbudget.Candidate{Text: "other doc chunk", Similarity: 0.7, Metadata: map[string]string{"filename": "b.txt", "document_path": "docs/b.txt", "chunk_index": "0"}}},
	}

	calls := map[string]int{}
	summaries := func(path string) (string, bool) {
		calls[path]++
		if path == "docs/a.txt" {
			return "Summary of document a.", true
		}
		return "", false
	}

	got := formatChunkContext(selected, summaries)

	if calls["docs/a.txt"] != 1 {
		t.Fatalf("expected the summary lookup for docs/a.txt exactly once, got %d", calls["docs/a.txt"])
	}
	if strings.Count(got, "Summary of document a.") != 1 {
		t.Fatal("expected the summary to appear exactly once despite two chunks from the same document")
	}
	for _, want := range []string{"first chunk", "second chunk", "other doc chunk", "a.txt", "b.txt"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected formatted context to contain %q, got:\n%s", want, got)
		}
	}
}

func TestFormatChunkContextLimitsToThreeSnippetsPerDocument(t *testing.T) {
	var selected []tokenbudget.Selected
	for i := 0; i < 5; i++ {
		selected = append(selected, tokenbudget.Selected{Candidate: tokenbudget.Candidate{
			Text:       "chunk text",
			Similarity: 0.5,
			Metadata:   map[string]string{"filename": "a.txt", "document_path": "docs/a.txt", "chunk_index": "x"},
		}})
	}

	got := formatChunkContext(selected, func(string) (string, bool) { return "", false })
	if count := strings.Count(got, "chunk text"); count != 3 {
		t.Fatalf("expected exactly 3 snippets from the same document, got %d", count)
	}
}

func TestChunkIndexLabelMarksSummaryChunks(t *testing.T) {
	if got := chunkIndexLabel(-1); got != "summary" {
		t.Fatalf("expected 'summary' for chunk index -1, got %q", got)
	}
	if got := chunkIndexLabel(3); got != "3" {
		t.Fatalf("expected '3', got %q", got)
	}
}
