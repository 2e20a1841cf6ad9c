package qagen

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/voidtrace/ragcore/llm"
)

const dedupBatchSize = 30
const cosineDedupThreshold = 0.95

// Embedder produces a vector for a piece of text, used by the
// cosine-similarity dedup fallback.
type Embedder func(text string) ([]float32, error)

// Deduplicate removes redundant questions from pairs, preferring an
// LLM-based judgment (which understands that asking about different
// aspects of the same fact is valuable, not redundant) and falling back
// to cosine-similarity deduplication if the LLM call fails. Both paths
// preserve the first occurrence of any duplicate group.
func Deduplicate(ctx context.Context, pairs []Pair, provider llm.Provider, model string, embed Embedder) ([]Pair, error) {
	unique, err := deduplicateLLM(ctx, pairs, provider, model)
	if err == nil {
		return unique, nil
	}
	return DeduplicateCosine(pairs, embed, cosineDedupThreshold)
}

func deduplicateLLM(ctx context.Context, pairs []Pair, provider llm.Provider, model string) ([]Pair, error) {
	if len(pairs) <= 1 {
		return pairs, nil
	}

	var kept []Pair
	for start := 0; start < len(pairs); start += dedupBatchSize {
		end := start + dedupBatchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		batch := pairs[start:end]

		redundant, err := redundantIndicesLLM(ctx, batch, provider, model)
		if err != nil {
			return nil, err
		}
		for i, p := range batch {
			if redundant[i] {
				continue
			}
			kept = append(kept, p)
		}
	}

	return kept, nil
}

type dedupQuestion struct {
	Index    int    `json:"idx"`
	Question string `json:"question"`
}

type dedupResponse struct {
	RedundantIndices []int `json:"redundant_indices"`
}

func redundantIndicesLLM(ctx context.Context, batch []Pair, provider llm.Provider, model string) (map[int]bool, error) {
	questions := make([]dedupQuestion, len(batch))
	for i, p := range batch {
		questions[i] = dedupQuestion{Index: i, Question: p.Question}
	}
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Analyze these %d questions and identify which are REDUNDANT: asking
the exact same thing as an earlier question in different words. Questions
about a different aspect of the same topic (count vs timing vs location
vs cost) are NOT redundant.

QUESTIONS:
%s

Respond with JSON: {"redundant_indices": [3, 7]}`, len(questions), string(questionsJSON))

	req := llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			{Role: "system", Content: "You identify redundant questions in a knowledge base. Respond with JSON only."},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.1,
		MaxTokens:      4096,
		ResponseFormat: "json_object",
	}

	var resp *llm.ChatResponse
	err = withRetry(ctx, "qagen.dedup", func() error {
		var callErr error
		resp, callErr = provider.Chat(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("qagen: llm dedup call: %w", err)
	}

	var parsed dedupResponse
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return nil, fmt.Errorf("qagen: parsing dedup response: %w", err)
	}

	redundant := make(map[int]bool, len(parsed.RedundantIndices))
	for _, idx := range parsed.RedundantIndices {
		redundant[idx] = true
	}
	return redundant, nil
}

// DeduplicateCosine embeds each question and keeps it only if its cosine
// similarity to every already-kept question is below threshold.
func DeduplicateCosine(pairs []Pair, embed Embedder, threshold float64) ([]Pair, error) {
	if len(pairs) <= 1 {
		return pairs, nil
	}

	var kept []Pair
	var keptVectors [][]float32

	for _, p := range pairs {
		v, err := embed(p.Question)
		if err != nil {
			return nil, fmt.Errorf("qagen: embedding question for dedup: %w", err)
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

		kept = append(kept, p)
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
