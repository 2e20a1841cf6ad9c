// Package qaindex holds a precomputed matrix of L2-normalized Q&A
// question embeddings and answers top-k queries by cosine similarity.
package qaindex

import (
	"fmt"
	"math"
	"sort"
)

// Pair is one precomputed question-answer entry.
type Pair struct {
	Question       string
	Answer         string
	Context        string
	SourceFilename string
	Page           int // 0 if not applicable
	Embedding      []float32
}

// Matrix is a loaded, query-ready set of Q&A pairs with their embeddings
// packed into normalized rows.
type Matrix struct {
	dim   int
	pairs []Pair
}

// Build packs pairs into a query-ready Matrix. Each pair's embedding is
// defensively L2-normalized. All embeddings must share the same
// dimension.
func Build(pairs []Pair) (*Matrix, error) {
	if len(pairs) == 0 {
		return &Matrix{}, nil
	}
	dim := len(pairs[0].Embedding)

	normalized := make([]Pair, len(pairs))
	for i, p := range pairs {
		if len(p.Embedding) != dim {
			return nil, fmt.Errorf("qaindex: embedding dimension mismatch at pair %d: got %d, want %d", i, len(p.Embedding), dim)
		}
		p.Embedding = normalizeRow(p.Embedding)
		normalized[i] = p
	}

	return &Matrix{dim: dim, pairs: normalized}, nil
}

// Len returns the number of pairs in the matrix.
func (m *Matrix) Len() int { return len(m.pairs) }

// ExceptSource returns every pair whose SourceFilename is not sourceFilename,
// for callers that regenerate one document's Q&A pairs and need to rebuild
// the matrix with that document's stale entries dropped.
func (m *Matrix) ExceptSource(sourceFilename string) []Pair {
	out := make([]Pair, 0, len(m.pairs))
	for _, p := range m.pairs {
		if p.SourceFilename != sourceFilename {
			out = append(out, p)
		}
	}
	return out
}

// Result is a single Q&A match.
type Result struct {
	Pair
	Similarity float64
}

// TopK computes the dot product of normalized query against every row
// (equivalent to cosine similarity since both sides are unit vectors),
// returns the k highest-scoring pairs above threshold, sorted descending.
func (m *Matrix) TopK(query []float32, k int, threshold float64) ([]Result, error) {
	if len(m.pairs) == 0 {
		return nil, nil
	}
	if len(query) != m.dim {
		return nil, fmt.Errorf("qaindex: query dimension mismatch: got %d, want %d", len(query), m.dim)
	}

	q := normalizeRow(query)

	results := make([]Result, 0, len(m.pairs))
	for _, p := range m.pairs {
		sim := dot(q, p.Embedding)
		if sim < threshold {
			continue
		}
		results = append(results, Result{Pair: p, Similarity: sim})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func normalizeRow(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
