package chunking

import "math"

// Embedder produces a vector for a piece of text. Deduplicate takes this
// as a parameter rather than importing package embedclient directly, so
// the chunking package has no dependency on the network client.
type Embedder func(text string) ([]float32, error)

// Deduplicate embeds each chunk in order and keeps it only if its cosine
// similarity to every already-kept chunk is below threshold, exiting
// early on the first match at or above threshold. The first occurrence
// of near-duplicate content is always the one kept.
func Deduplicate(chunks []Chunk, embed Embedder, threshold float64) ([]Chunk, error) {
	var kept []Chunk
	var keptVectors [][]float32

	for _, c := range chunks {
		v, err := embed(c.Text)
		if err != nil {
			return nil, err
		}

		isDuplicate := false
		for _, kv := range keptVectors {
			if cosineSimilarity(v, kv) >= threshold {
				isDuplicate = true
				break
			}
		}
		if isDuplicate {
			continue
		}

		kept = append(kept, c)
		keptVectors = append(keptVectors, v)
	}

	return kept, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
