// Package orchestrator implements the per-query retrieval-augmented
// enrichment flow: given a chat transcript and a mode selector, it
// retrieves Q&A pairs and/or document chunks, formats them, and injects
// the result as an assistant message immediately before the last user
// message. It never mutates the transcript on failure and never raises
// into the caller's chat loop — every backend call is wrapped in a hard
// timeout and a failure degrades to "no RAG context this turn".
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/voidtrace/ragcore/dbops"
	"github.com/voidtrace/ragcore/embedclient"
	"github.com/voidtrace/ragcore/hybridmerge"
	"github.com/voidtrace/ragcore/qaindex"
	"github.com/voidtrace/ragcore/tokenbudget"
)

// Mode selects which retrieval tiers an Enrich call consults.
type Mode string

const (
	ModeQA    Mode = "qa"
	ModeChunk Mode = "chunk"
	ModeBoth  Mode = "both"
)

// Message is one turn of a chat transcript. IsRAGContext and
// RAGTimestamp are set only on messages this package injected, so the
// rolling budget step (§4.11 step 1) can identify and evict them.
type Message struct {
	Role         string
	Content      string
	IsRAGContext bool
	RAGTimestamp time.Time
}

// Transcript is the chat history handed to Enrich. ReadOnly transcripts
// can't absorb either eviction or injection, so per the spec's open
// question decision, Enrich refuses them outright rather than silently
// skipping the rolling-budget invariant.
type Transcript struct {
	Messages []Message
	ReadOnly bool
}

// ErrTranscriptReadOnly is returned when Enrich is called on a read-only
// transcript: enforcing the rolling RAG budget requires the ability to
// evict messages, which a read-only transcript forbids, so this is
// surfaced as a hard error instead of silently skipping enforcement.
var ErrTranscriptReadOnly = errors.New("orchestrator: transcript is read-only")

// Config holds per-query retrieval tuning. Field names mirror the
// configuration options named in §6 of the specification.
type Config struct {
	NumResults int `json:"rag_num_results" yaml:"rag_num_results"`

	RAGContextBudgetTokens int  `json:"rag_context_budget_tokens" yaml:"rag_context_budget_tokens"`
	RollingBudgetEnabled   bool `json:"rag_rolling_budget" yaml:"rag_rolling_budget"`

	HybridSearchEnabled  bool    `json:"hybrid_search_enabled" yaml:"hybrid_search_enabled"`
	HybridSemanticWeight float64 `json:"hybrid_semantic_weight" yaml:"hybrid_semantic_weight"`
	HybridKeywordWeight  float64 `json:"hybrid_keyword_weight" yaml:"hybrid_keyword_weight"`

	RelevanceThreshold      float64 `json:"relevance_threshold" yaml:"relevance_threshold"`
	ContextExpansionEnabled bool    `json:"context_expansion_enabled" yaml:"context_expansion_enabled"`
	ContextExpansionTokens  int     `json:"context_expansion_tokens" yaml:"context_expansion_tokens"`
	SafeEmbeddingSizeChars  int     `json:"safe_embedding_size_chars" yaml:"safe_embedding_size_chars"`
	ReserveTokens           int     `json:"reserve_tokens" yaml:"reserve_tokens"`

	QAThreshold float64 `json:"qa_threshold" yaml:"qa_threshold"`

	RetrievalTimeout       time.Duration `json:"-" yaml:"-"`
	BothModeMinRemaining   int           `json:"-" yaml:"-"`
	DocTextCacheCapacity   int           `json:"-" yaml:"-"`
	VerboseRAGLogging      bool          `json:"verbose_rag_logging" yaml:"verbose_rag_logging"`
}

// DefaultConfig returns the specification's documented defaults.
func DefaultConfig() Config {
	return Config{
		NumResults:              5,
		RAGContextBudgetTokens:  2000,
		RollingBudgetEnabled:    true,
		HybridSearchEnabled:     true,
		HybridSemanticWeight:    hybridmerge.DefaultSemanticWeight,
		HybridKeywordWeight:     hybridmerge.DefaultKeywordWeight,
		RelevanceThreshold:      0.35,
		ContextExpansionEnabled: true,
		ContextExpansionTokens:  150,
		SafeEmbeddingSizeChars:  8000,
		ReserveTokens:           50,
		QAThreshold:             0.5,
		RetrievalTimeout:        500 * time.Millisecond,
		BothModeMinRemaining:    1000,
		DocTextCacheCapacity:    32,
	}
}

// QueryOrchestrator runs the §4.11 query-time enrichment flow against a
// live dbops snapshot, a Q&A matrix, and the embedding service.
type QueryOrchestrator struct {
	cfg Config

	embedder *embedclient.Client
	snapshot func() dbops.Snapshot
	qaMatrix func() *qaindex.Matrix
	docText  *DocTextCache
	dbDir    string
}

// New returns a QueryOrchestrator. snapshot and qaMatrix are resolved on
// every call so the orchestrator always observes the latest live
// references after a hot reload or ingest swap. qaMatrix may return nil
// if no Q&A store has been built yet.
func New(cfg Config, embedder *embedclient.Client, dbDir string, snapshot func() dbops.Snapshot, qaMatrix func() *qaindex.Matrix) *QueryOrchestrator {
	if cfg.RetrievalTimeout <= 0 {
		cfg.RetrievalTimeout = 500 * time.Millisecond
	}
	return &QueryOrchestrator{
		cfg:      cfg,
		embedder: embedder,
		snapshot: snapshot,
		qaMatrix: qaMatrix,
		docText:  NewDocTextCache(cfg.DocTextCacheCapacity),
		dbDir:    dbDir,
	}
}

// Enrich runs the retrieval flow for mode against t and, on a hit,
// injects an assistant message immediately before the last user message.
// It returns the (possibly unchanged) message slice for the caller to
// use going forward. A read-only transcript is always rejected; any
// retrieval failure degrades to returning the transcript unchanged
// (after rolling-budget eviction, which does not touch read-only
// transcripts since those are rejected up front).
func (o *QueryOrchestrator) Enrich(ctx context.Context, t *Transcript, mode Mode) ([]Message, error) {
	if t.ReadOnly {
		return t.Messages, ErrTranscriptReadOnly
	}

	messages := t.Messages
	if o.cfg.RollingBudgetEnabled {
		messages = evictOldRAGMessages(messages, o.cfg.RAGContextBudgetTokens)
	}

	lastIdx := lastUserMessageIndex(messages)
	if lastIdx < 0 {
		// No user message to anchor insertion before; per the spec's open
		// question decision, decline rather than guess an insertion point.
		return messages, nil
	}
	userContent := strings.TrimSpace(messages[lastIdx].Content)
	if len(userContent) < 3 {
		return messages, fmt.Errorf("orchestrator: last user message too short for retrieval (%d chars)", len(userContent))
	}

	ragText := o.retrieve(ctx, userContent, mode)
	if ragText == "" {
		return messages, nil
	}

	ragMsg := Message{
		Role:         "assistant",
		Content:      ragText,
		IsRAGContext: true,
		RAGTimestamp: time.Now(),
	}

	out := make([]Message, 0, len(messages)+1)
	out = append(out, messages[:lastIdx]...)
	out = append(out, ragMsg)
	out = append(out, messages[lastIdx:]...)
	return out, nil
}

// retrieve dispatches by mode and never returns an error: every failure
// is logged and treated as "no RAG context this turn", per §4.11 step 5.
func (o *QueryOrchestrator) retrieve(ctx context.Context, query string, mode Mode) string {
	switch mode {
	case ModeQA:
		return o.runQA(ctx, query)
	case ModeChunk:
		return o.runChunk(ctx, query, o.cfg.RAGContextBudgetTokens)
	case ModeBoth:
		qaText := o.runQA(ctx, query)
		used := tokenbudget.EstimateTokens(qaText)
		remaining := o.cfg.RAGContextBudgetTokens - used
		if remaining <= o.cfg.BothModeMinRemaining {
			return strings.TrimSpace(qaText)
		}
		chunkText := o.runChunk(ctx, query, remaining)
		return strings.TrimSpace(strings.TrimSpace(qaText) + "\n\n" + chunkText)
	default:
		slog.Warn("orchestrator: unknown mode, skipping retrieval", "mode", mode)
		return ""
	}
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func displayFilename(documentPath string) string {
	return filepath.Base(documentPath)
}
