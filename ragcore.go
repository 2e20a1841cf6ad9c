// Package ragcore wires the chunk-vector index, the BM25 index, the Q&A
// index, and the offline Q&A generator behind a single Engine: a
// retrieval core for a voice-agent backend. Answer synthesis, the voice
// session, and TTS/STT are out of scope — Engine's query-time surface is
// Enrich, which injects retrieved context into a chat transcript and
// leaves the actual answer generation to the caller's LLM loop.
package ragcore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/voidtrace/ragcore/chunking"
	"github.com/voidtrace/ragcore/dbops"
	"github.com/voidtrace/ragcore/embedclient"
	"github.com/voidtrace/ragcore/extract"
	"github.com/voidtrace/ragcore/llm"
	"github.com/voidtrace/ragcore/opstore"
	"github.com/voidtrace/ragcore/orchestrator"
	"github.com/voidtrace/ragcore/qaindex"
)

// Engine is the main entry point for the ragcore retrieval engine.
type Engine interface {
	// Ingest runs one full incremental ingest sweep over DocsDir: new and
	// modified files are extracted, summarized, chunked, and embedded;
	// files removed from disk have their history and carried-forward
	// chunks dropped. See package dbops for the full state machine.
	Ingest(ctx context.Context) error

	// GenerateQA runs the offline Q&A generation pipeline (§4.8) for one
	// already-ingested document and folds the resulting pairs into the
	// live Q&A index. Returns the number of pairs added.
	GenerateQA(ctx context.Context, documentPath string) (int, error)

	// Enrich runs the query-time retrieval flow (§4.11) and returns t's
	// messages, possibly with a RAG-context message injected.
	Enrich(ctx context.Context, t *orchestrator.Transcript, mode orchestrator.Mode) ([]orchestrator.Message, error)

	// ListDocuments returns every tracked document's ingest history.
	ListDocuments(ctx context.Context) ([]opstore.Document, error)

	// Health reports pass/warn/fail per subsystem without making any
	// outbound network call.
	Health() HealthReport

	// RequestReload sets the hot-reload flag serviced by the next poll
	// tick of RunReloadLoop, or by an explicit call to TryReload.
	RequestReload()

	// RunReloadLoop runs the hot-reload poll loop until ctx is cancelled.
	// Intended to run as a single long-lived background goroutine.
	RunReloadLoop(ctx context.Context)

	// Close flushes the embedding cache and closes the operational store.
	Close() error
}

// HealthStatus is one subsystem's health verdict.
type HealthStatus string

const (
	HealthPass HealthStatus = "pass"
	HealthWarn HealthStatus = "warn"
	HealthFail HealthStatus = "fail"
)

// HealthReport is the aggregate health surface described in §7: overall
// status plus a verdict per subsystem.
type HealthReport struct {
	Overall    HealthStatus            `json:"overall"`
	Subsystems map[string]HealthStatus `json:"subsystems"`
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg Config

	docsDir string
	dbDir   string

	store      *opstore.Store
	embedder   *embedclient.Client
	embedCache *embedclient.Cache
	chatLLM    llm.Provider

	dbOrch    *dbops.Orchestrator
	queryOrch *orchestrator.QueryOrchestrator

	qaMu     sync.Mutex
	qaMatrix atomic.Pointer[qaindex.Matrix]
}

// New creates a new ragcore engine with the given configuration.
func New(cfg Config) (Engine, error) {
	dbDir := cfg.resolveDBDir()
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 768
	}
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	store, err := opstore.New(filepath.Join(dbDir, cfg.DBName+".db"))
	if err != nil {
		return nil, fmt.Errorf("opening operational store: %w", err)
	}

	embedder := embedclient.New(embedclient.Config{
		URL:               cfg.Embedding.URL,
		IngestConcurrency: cfg.Embedding.IngestConcurrency,
		QueryConcurrency:  cfg.Embedding.QueryConcurrency,
		Timeout:           cfg.Embedding.Timeout,
	})

	embedCache, err := embedclient.NewCache(filepath.Join(dbDir, "embeddings_cache"), 100, 0)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}

	var chatLLM llm.Provider
	if cfg.Chat.Provider != "" {
		chatLLM, err = llm.NewProvider(llm.Config{
			Provider: cfg.Chat.Provider,
			Model:    cfg.Chat.Model,
			BaseURL:  cfg.Chat.BaseURL,
			APIKey:   cfg.Chat.APIKey,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating chat provider: %w", err)
		}
	}

	var summarizer *dbops.Summarizer
	if chatLLM != nil {
		summarizer = dbops.NewSummarizer(chatLLM, cfg.Chat.Model)
	}

	chunker := chunking.New(chunking.Config{
		MaxTokens:    cfg.ChunkSizeTokens,
		OverlapRatio: cfg.ChunkOverlapRatio,
	})

	dbOrch := dbops.New(cfg.DocsDir, dbDir, extract.NewRegistry(), chunker, embedder, embedCache, summarizer, store, cfg.EmbeddingDim)

	e := &engine{
		cfg:        cfg,
		docsDir:    cfg.DocsDir,
		dbDir:      dbDir,
		store:      store,
		embedder:   embedder,
		embedCache: embedCache,
		chatLLM:    chatLLM,
		dbOrch:     dbOrch,
	}

	if m, err := qaindex.Load(e.qaPath()); err == nil {
		e.qaMatrix.Store(m)
	}

	e.queryOrch = orchestrator.New(cfg.Config, embedder, dbDir, dbOrch.Acquire, e.qaMatrix.Load)

	if err := dbOrch.Load(context.Background(), false); err != nil {
		store.Close()
		return nil, fmt.Errorf("loading indices: %w", err)
	}

	return e, nil
}

func (e *engine) qaPath() string {
	return filepath.Join(e.dbDir, "qa", "qa_embeddings")
}

// Ingest runs one full incremental ingest sweep.
func (e *engine) Ingest(ctx context.Context) error {
	return e.dbOrch.IncrementalIngest(ctx)
}

// Enrich delegates to the query orchestrator.
func (e *engine) Enrich(ctx context.Context, t *orchestrator.Transcript, mode orchestrator.Mode) ([]orchestrator.Message, error) {
	return e.queryOrch.Enrich(ctx, t, mode)
}

// ListDocuments returns every tracked document's ingest history.
func (e *engine) ListDocuments(ctx context.Context) ([]opstore.Document, error) {
	return e.store.ListDocuments(ctx)
}

// Health reports subsystem status from in-memory state only.
func (e *engine) Health() HealthReport {
	subsystems := make(map[string]HealthStatus, 3)

	if e.dbOrch.RAGEnabled() {
		subsystems["chunk_index"] = HealthPass
	} else {
		subsystems["chunk_index"] = HealthFail
	}

	if m := e.qaMatrix.Load(); m != nil && m.Len() > 0 {
		subsystems["qa_index"] = HealthPass
	} else {
		subsystems["qa_index"] = HealthWarn
	}

	subsystems["operational_store"] = HealthPass

	overall := HealthPass
	for _, s := range subsystems {
		switch s {
		case HealthFail:
			overall = HealthFail
		case HealthWarn:
			if overall != HealthFail {
				overall = HealthWarn
			}
		}
	}

	return HealthReport{Overall: overall, Subsystems: subsystems}
}

// RequestReload sets the hot-reload flag.
func (e *engine) RequestReload() {
	e.dbOrch.RequestReload()
}

// RunReloadLoop runs the hot-reload poll loop until ctx is cancelled.
func (e *engine) RunReloadLoop(ctx context.Context) {
	e.dbOrch.RunReloadLoop(ctx)
}

// Close flushes the embedding cache and closes the operational store.
func (e *engine) Close() error {
	if err := e.embedCache.Flush(); err != nil {
		return fmt.Errorf("flushing embedding cache: %w", err)
	}
	return e.store.Close()
}
