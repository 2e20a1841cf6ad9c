package embedclient

import "math"

const charsPerTokenEstimate = 4

// truncateToTokenCap returns a prefix of text whose estimated token
// count (chars/4) is at most maxTokens.
func truncateToTokenCap(text string, maxTokens int) string {
	maxChars := maxTokens * charsPerTokenEstimate
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}

// truncateByRatio shrinks text to ratio of its current length, used to
// retry after an "input too large" rejection from the embedding service.
func truncateByRatio(text string, ratio float64) string {
	newLen := int(math.Floor(float64(len(text)) * ratio))
	if newLen <= 0 || newLen >= len(text) {
		return text
	}
	return text[:newLen]
}

// normalize returns a defensively L2-normalized copy of v.
func normalize(v []float32) []float32 {
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
