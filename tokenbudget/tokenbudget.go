// Package tokenbudget selects an ordered list of retrieval candidates so
// that their combined estimated token count fits within a caller-supplied
// budget, truncating at most one boundary candidate to use the remaining
// space.
package tokenbudget

import "strings"

// Candidate is a single retrievable item competing for budget space.
// Items are expected to already be sorted by relevance descending.
type Candidate struct {
	Text       string
	Similarity float64
	Metadata   map[string]string
}

// Selected is a Candidate that survived selection, optionally truncated.
type Selected struct {
	Candidate
	Truncated bool
}

const minTruncatedTokens = 100
const minRemainingToAttemptTruncation = 200

// EstimateTokens approximates a token count from character length.
// This mirrors the chars/4 heuristic used throughout the retrieval core.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Select walks candidates in order, including whole items while they fit
// within maxTokens-reserveTokens. When an item doesn't fit whole, it
// attempts one sentence-boundary truncation of that same item if enough
// budget remains to make a worthwhile truncation; after that it stops,
// since candidates are relevance-ordered and giving up here preserves
// that order in the result.
func Select(candidates []Candidate, maxTokens, reserveTokens int) []Selected {
	budget := maxTokens - reserveTokens
	if budget <= 0 {
		return nil
	}

	var out []Selected
	used := 0

	for _, c := range candidates {
		tokens := EstimateTokens(c.Text)
		remaining := budget - used

		if tokens <= remaining {
			out = append(out, Selected{Candidate: c})
			used += tokens
			continue
		}

		if remaining >= minRemainingToAttemptTruncation {
			truncated := truncateToSentenceBoundary(c.Text, remaining)
			truncTokens := EstimateTokens(truncated)
			if truncTokens >= minTruncatedTokens {
				tc := c
				tc.Text = truncated
				out = append(out, Selected{Candidate: tc, Truncated: true})
				used += truncTokens
			}
		}

		// First candidate that can't fit (whole or usefully truncated)
		// ends selection; later, lower-relevance candidates are not
		// considered out of order.
		break
	}

	return out
}

// truncateToSentenceBoundary returns a prefix of text whose estimated
// token count is at most budgetTokens, cut at the last sentence boundary
// within that prefix when one exists.
func truncateToSentenceBoundary(text string, budgetTokens int) string {
	maxChars := budgetTokens * 4
	if maxChars >= len(text) {
		return text
	}

	prefix := text[:maxChars]

	cut := -1
	for _, boundary := range []string{". ", "? ", "! ", "\n\n", "\n"} {
		if idx := strings.LastIndex(prefix, boundary); idx > cut {
			cut = idx + len(boundary)
		}
	}

	if cut <= 0 {
		return strings.TrimSpace(prefix)
	}
	return strings.TrimSpace(prefix[:cut])
}
