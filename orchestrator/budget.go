package orchestrator

import (
	"sort"

	"github.com/voidtrace/ragcore/tokenbudget"
)

// evictOldRAGMessages drops the oldest RAG-tagged messages, oldest first
// by RAGTimestamp, until the total estimated token count across
// remaining RAG-tagged messages is within budgetTokens. Non-RAG messages
// are never dropped. A non-positive budget disables enforcement.
func evictOldRAGMessages(messages []Message, budgetTokens int) []Message {
	if budgetTokens <= 0 {
		return messages
	}

	var ragIdx []int
	total := 0
	for i, m := range messages {
		if m.IsRAGContext {
			ragIdx = append(ragIdx, i)
			total += tokenbudget.EstimateTokens(m.Content)
		}
	}
	if total <= budgetTokens {
		return messages
	}

	sort.Slice(ragIdx, func(i, j int) bool {
		return messages[ragIdx[i]].RAGTimestamp.Before(messages[ragIdx[j]].RAGTimestamp)
	})

	drop := make(map[int]bool, len(ragIdx))
	for _, idx := range ragIdx {
		if total <= budgetTokens {
			break
		}
		drop[idx] = true
		total -= tokenbudget.EstimateTokens(messages[idx].Content)
	}

	out := make([]Message, 0, len(messages)-len(drop))
	for i, m := range messages {
		if drop[i] {
			continue
		}
		out = append(out, m)
	}
	return out
}

// lastUserMessageIndex returns the index of the last message with
// Role == "user", or -1 if none exists.
func lastUserMessageIndex(messages []Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return i
		}
	}
	return -1
}

// ragTaggedTokenTotal sums the estimated token count across every
// RAG-tagged message, used by tests to verify the rolling-budget
// invariant holds after enrichment.
func ragTaggedTokenTotal(messages []Message) int {
	total := 0
	for _, m := range messages {
		if m.IsRAGContext {
			total += tokenbudget.EstimateTokens(m.Content)
		}
	}
	return total
}
