package qaindex

import (
	"path/filepath"
	"testing"
)

func TestTopKRanksByCosineSimilarity(t *testing.T) {
	pairs := []Pair{
		{Question: "Hoeveel MWh zon in 2023?", Answer: "450 MWh.", Embedding: []float32{1, 0, 0}},
		{Question: "Hoeveel MWh wind in 2023?", Answer: "120 MWh.", Embedding: []float32{0, 1, 0}},
	}
	m, err := Build(pairs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	results, err := m.TopK([]float32{1, 0, 0}, 5, 0.5)
	if err != nil {
		t.Fatalf("TopK: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result above threshold, got %d", len(results))
	}
	if results[0].Question != "Hoeveel MWh zon in 2023?" {
		t.Errorf("expected solar question to match, got %q", results[0].Question)
	}
	if results[0].Similarity < 0.99 {
		t.Errorf("expected near-exact similarity, got %f", results[0].Similarity)
	}
}

func TestTopKFiltersBelowThreshold(t *testing.T) {
	pairs := []Pair{
		{Question: "unrelated", Answer: "x", Embedding: []float32{0, 0, 1}},
	}
	m, _ := Build(pairs)
	results, err := m.TopK([]float32{1, 0, 0}, 5, 0.5)
	if err != nil {
		t.Fatalf("TopK: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results below threshold, got %d", len(results))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	pairs := []Pair{
		{Question: "q1", Answer: "a1", Embedding: []float32{1, 0, 0}},
		{Question: "q2", Answer: "a2", Embedding: []float32{0, 1, 0}},
	}
	m, _ := Build(pairs)

	path := filepath.Join(t.TempDir(), "qa_embeddings")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != m.Len() {
		t.Errorf("expected %d pairs, got %d", m.Len(), loaded.Len())
	}
}

func TestEmptyMatrix(t *testing.T) {
	m, err := Build(nil)
	if err != nil {
		t.Fatalf("Build(nil): %v", err)
	}
	results, err := m.TopK([]float32{1, 2, 3}, 5, 0)
	if err != nil {
		t.Fatalf("TopK on empty matrix: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results on empty matrix, got %v", results)
	}
}
