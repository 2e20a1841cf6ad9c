package orchestrator

import (
	"testing"
	"time"
)

func TestEvictOldRAGMessagesDropsOldestFirst(t *testing.T) {
	now := time.Now()
	messages := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: longContent(100), IsRAGContext: true, RAGTimestamp: now.Add(-3 * time.Hour)},
		{Role: "assistant", Content: longContent(100), IsRAGContext: true, RAGTimestamp: now.Add(-2 * time.Hour)},
		{Role: "assistant", Content: longContent(100), IsRAGContext: true, RAGTimestamp: now.Add(-1 * time.Hour)},
		{Role: "user", Content: "follow up"},
	}

	// Each RAG message is ~25 tokens (100 chars / 4); budget 40 tokens
	// forces eviction of the two oldest, leaving only the newest.
	out := evictOldRAGMessages(messages, 40)

	if ragTaggedTokenTotal(out) > 40 {
		t.Fatalf("expected total RAG tokens <= 40, got %d", ragTaggedTokenTotal(out))
	}

	var remaining int
	for _, m := range out {
		if m.IsRAGContext {
			remaining++
			if !m.RAGTimestamp.Equal(now.Add(-1 * time.Hour)) {
				t.Errorf("expected only the newest RAG message to survive, found one timestamped %v", m.RAGTimestamp)
			}
		}
	}
	if remaining != 1 {
		t.Fatalf("expected 1 surviving RAG message, got %d", remaining)
	}

	// Non-RAG messages must never be dropped.
	if out[0].Role != "user" || out[len(out)-1].Role != "user" {
		t.Fatal("expected non-RAG user messages to survive eviction")
	}
}

func TestEvictOldRAGMessagesNoopWhenUnderBudget(t *testing.T) {
	messages := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "short", IsRAGContext: true, RAGTimestamp: time.Now()},
	}
	out := evictOldRAGMessages(messages, 10000)
	if len(out) != len(messages) {
		t.Fatalf("expected no eviction under budget, got %d messages", len(out))
	}
}

func TestEvictOldRAGMessagesDisabledWhenBudgetNonPositive(t *testing.T) {
	messages := []Message{
		{Role: "assistant", Content: longContent(1000), IsRAGContext: true, RAGTimestamp: time.Now()},
	}
	out := evictOldRAGMessages(messages, 0)
	if len(out) != 1 {
		t.Fatal("expected a non-positive budget to disable eviction entirely")
	}
}

func TestLastUserMessageIndex(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
	}
	if idx := lastUserMessageIndex(messages); idx != 3 {
		t.Fatalf("expected index 3, got %d", idx)
	}

	noUser := []Message{{Role: "system", Content: "sys"}}
	if idx := lastUserMessageIndex(noUser); idx != -1 {
		t.Fatalf("expected -1 for no user message, got %d", idx)
	}
}

func longContent(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
