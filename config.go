package ragcore

import (
	"os"
	"path/filepath"
	"time"

	"github.com/voidtrace/ragcore/orchestrator"
)

// Config holds all configuration for the ragcore engine: ambient storage
// paths and LLM endpoints, plus the query-time tuning knobs named in
// SPEC_FULL.md §6 (flattened in here via the embedded orchestrator.Config
// so its json/yaml tags match the specification's option names exactly).
type Config struct {
	// DocsDir is the directory scanned for ingestible documents.
	DocsDir string `json:"docs_dir" yaml:"docs_dir"`

	// DBDir holds the on-disk index files (vdb_data, metadata, bm25_index,
	// summaries, text/, qa/). Defaults to ~/.ragcore/<DBName> when empty.
	DBDir string `json:"db_dir" yaml:"db_dir"`

	// DBName names the operational SQLite store file (file history,
	// ingestion runs, query log) inside DBDir.
	DBName string `json:"db_name" yaml:"db_name"`

	// Chat configures the LLM used for document summarization and
	// offline Q&A generation. Embedding configures the bespoke embedding
	// HTTP endpoint (protocol documented in package embedclient).
	Chat      LLMConfig     `json:"chat" yaml:"chat"`
	Embedding EmbedConfig   `json:"embedding" yaml:"embedding"`

	// Chunking
	ChunkSizeTokens   int     `json:"chunk_size_tokens" yaml:"chunk_size_tokens"`
	ChunkOverlapRatio float64 `json:"chunk_overlap_ratio" yaml:"chunk_overlap_ratio"`

	// EmbeddingDim must match the embedding model's output dimension.
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`

	// EnableCitations is accepted in the configuration (default true) but
	// is not read by the engine: injected RAG context always includes the
	// "Source: ..." and "Relevance: ..." lines.
	EnableCitations bool `json:"enable_citations" yaml:"enable_citations"`

	// Embedded: the per-query retrieval tuning knobs (rag_num_results,
	// rag_context_budget_tokens, hybrid_search_enabled, ...). Anonymous so
	// its json/yaml tags flatten into Config's own encoding instead of
	// nesting under a "query" key — rag_mode is carried separately since
	// it is chosen per-call, not fixed at startup (see Engine.Enrich's
	// mode argument).
	orchestrator.Config `yaml:",inline"`
}

// LLMConfig configures a chat-completion LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, lmstudio, openrouter, openai, groq, xai, gemini, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// EmbedConfig configures the embedding HTTP endpoint.
type EmbedConfig struct {
	URL               string        `json:"url" yaml:"url"`
	IngestConcurrency int64         `json:"ingest_concurrency" yaml:"ingest_concurrency"`
	QueryConcurrency  int64         `json:"query_concurrency" yaml:"query_concurrency"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns a Config with the specification's documented
// defaults. Storage defaults to ~/.ragcore/.
func DefaultConfig() Config {
	return Config{
		DBName: "ragcore",
		Chat: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: EmbedConfig{
			URL:               "http://localhost:8000/embed",
			IngestConcurrency: 1,
			QueryConcurrency:  1,
			Timeout:           10 * time.Second,
		},
		ChunkSizeTokens:   410,
		ChunkOverlapRatio: 0.25,
		EmbeddingDim:      768,
		EnableCitations:   true,
		Config:            orchestrator.DefaultConfig(),
	}
}

// resolveDBDir computes the final index-directory path from config fields.
func (c *Config) resolveDBDir() string {
	if c.DBDir != "" {
		return c.DBDir
	}
	name := c.DBName
	if name == "" {
		name = "ragcore"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return name // fallback to cwd
	}
	return filepath.Join(home, ".ragcore", name)
}
