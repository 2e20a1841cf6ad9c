// Package hybridmerge combines semantic (vector) and lexical (BM25)
// result lists into a single ranked list via min-max score normalization
// and a weighted sum.
package hybridmerge

import "sort"

// DefaultSemanticWeight and DefaultKeywordWeight are the specification's
// default hybrid blend, summing to 1.0.
const (
	DefaultSemanticWeight = 0.7
	DefaultKeywordWeight  = 0.3
)

// Result is a single scored hit from one retrieval method, keyed by UUID.
type Result struct {
	UUID  string
	Score float64
}

// Merged is one entry in the hybrid result list.
type Merged struct {
	UUID          string
	Score         float64
	SemanticScore float64 // normalized, 0 if absent from semantic results
	KeywordScore  float64 // normalized, 0 if absent from keyword results
}

// Merge normalizes semantic and keyword result lists independently via
// min-max scaling (a constant list maps every entry to 1.0), unions their
// UUID sets, and computes a weighted sum for every UUID, sorted
// descending. weightSemantic + weightKeyword need not sum to exactly 1.0
// but the specification's defaults do.
func Merge(semantic, keyword []Result, weightSemantic, weightKeyword float64) []Merged {
	semNorm := minMaxNormalize(semantic)
	kwNorm := minMaxNormalize(keyword)

	combined := make(map[string]*Merged)
	for uuid, score := range semNorm {
		combined[uuid] = &Merged{UUID: uuid, SemanticScore: score}
	}
	for uuid, score := range kwNorm {
		m, ok := combined[uuid]
		if !ok {
			m = &Merged{UUID: uuid}
			combined[uuid] = m
		}
		m.KeywordScore = score
	}

	out := make([]Merged, 0, len(combined))
	for _, m := range combined {
		m.Score = weightSemantic*m.SemanticScore + weightKeyword*m.KeywordScore
		out = append(out, *m)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UUID < out[j].UUID
	})

	return out
}

// minMaxNormalize scales scores to [0,1]. A list with all-equal scores
// (including a single-element list) maps every entry to 1.0.
func minMaxNormalize(results []Result) map[string]float64 {
	out := make(map[string]float64, len(results))
	if len(results) == 0 {
		return out
	}

	min, max := results[0].Score, results[0].Score
	for _, r := range results {
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}

	spread := max - min
	for _, r := range results {
		if spread == 0 {
			out[r.UUID] = 1.0
		} else {
			out[r.UUID] = (r.Score - min) / spread
		}
	}
	return out
}
