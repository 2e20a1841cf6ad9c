// Package embedclient talks to the external embedding inference service:
// a local HTTP endpoint accepting {"content": text, "embedding": true}
// and returning a 768-dimensional vector. It enforces a token cap with
// shrink-and-retry, gates concurrency with independent ingestion/query
// semaphores, and never lets a persistent upstream failure escape into
// the caller's hot path — it returns a zero vector instead.
package embedclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	// Dim is the fixed embedding dimensionality.
	Dim = 768

	maxEmbeddingTokens = 410
	maxTruncateRetries = 3
	shrinkRatio         = 0.85

	defaultTimeout = 10 * time.Second
)

// Config configures a Client.
type Config struct {
	URL               string
	IngestConcurrency int64 // permits for the ingestion semaphore, default 1
	QueryConcurrency  int64 // permits for the query semaphore, default 1
	Timeout           time.Duration
}

// Client embeds text against the external embedding service.
type Client struct {
	cfg Config

	httpClient  *http.Client
	ownerPID    int
	ingestSem   *semaphore.Weighted
	querySem    *semaphore.Weighted
}

// New returns a Client bound to the current process id. HTTP session and
// semaphores are tagged with this pid so a fork-style child rebuilds its
// own rather than inheriting a parent's.
func New(cfg Config) *Client {
	if cfg.IngestConcurrency <= 0 {
		cfg.IngestConcurrency = 1
	}
	if cfg.QueryConcurrency <= 0 {
		cfg.QueryConcurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		ownerPID:   os.Getpid(),
		ingestSem:  semaphore.NewWeighted(cfg.IngestConcurrency),
		querySem:   semaphore.NewWeighted(cfg.QueryConcurrency),
	}
}

// resetIfForeignProcess recreates the HTTP client and both concurrency
// semaphores if this Client is being used from a different process than
// the one that created it (the fork-style worker-child model described in
// the specification's concurrency section).
func (c *Client) resetIfForeignProcess() {
	pid := os.Getpid()
	if pid != c.ownerPID {
		c.httpClient = &http.Client{Timeout: c.cfg.Timeout}
		c.ingestSem = semaphore.NewWeighted(c.cfg.IngestConcurrency)
		c.querySem = semaphore.NewWeighted(c.cfg.QueryConcurrency)
		c.ownerPID = pid
	}
}

// FingerprintKey returns a deterministic content hash used as the disk
// cache key.
func FingerprintKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// embedRequest is the wire format for the external embedding service.
type embedRequest struct {
	Content   string `json:"content"`
	Embedding bool   `json:"embedding"`
}

// embedResponseEntry models one element of the response array. The
// embedding field may be a flat 768-vector or a nested [[...]] — both
// forms are handled by decoding to json.RawMessage and branching.
type embedResponseEntry struct {
	Embedding json.RawMessage `json:"embedding"`
}

// Embed returns the L2-normalized 768-d embedding for text. isQuery
// selects which of the two independent concurrency semaphores gates this
// call, so query embeddings are never starved by ingestion traffic.
// On persistent upstream failure, Embed returns a zero vector and nil
// error — callers MUST treat an all-zero vector as "no embedding
// available" and skip the item; Embed never raises into the hot path for
// anything other than context cancellation.
func (c *Client) Embed(ctx context.Context, text string, isQuery bool) ([]float32, error) {
	c.resetIfForeignProcess()

	sem := c.ingestSem
	if isQuery {
		sem = c.querySem
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer sem.Release(1)

	v, err := c.embedWithRetry(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("embedclient: embedding failed after retries, returning zero vector", "error", err)
		return make([]float32, Dim), nil
	}
	return v, nil
}

// embedWithRetry truncates the input by shrinkRatio and retries up to
// maxTruncateRetries times when the service rejects the request for
// being too large, and otherwise retries transient errors with backoff.
func (c *Client) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	attemptText := truncateToTokenCap(text, maxEmbeddingTokens)

	var lastErr error
	for attempt := 0; attempt < maxTruncateRetries; attempt++ {
		v, tooLarge, err := c.doEmbed(ctx, attemptText)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if tooLarge {
			attemptText = truncateByRatio(attemptText, shrinkRatio)
			continue
		}

		// Transient upstream error: exponential backoff then retry.
		delay := time.Duration(1<<attempt) * time.Second
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("embedclient: exhausted retries: %w", lastErr)
}

func (c *Client) doEmbed(ctx context.Context, text string) (vector []float32, tooLarge bool, err error) {
	body, err := json.Marshal(embedRequest{Content: text, Embedding: true})
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("embedclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("embedclient: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if bytesContainsFold(respBody, "input is too large") {
			return nil, true, fmt.Errorf("embedclient: input too large")
		}
		return nil, false, fmt.Errorf("embedclient: status %d: %s", resp.StatusCode, string(respBody))
	}

	var entries []embedResponseEntry
	if err := json.Unmarshal(respBody, &entries); err != nil {
		return nil, false, fmt.Errorf("embedclient: decoding response: %w", err)
	}
	if len(entries) == 0 {
		return nil, false, fmt.Errorf("embedclient: empty response")
	}

	vec, err := decodeEmbedding(entries[0].Embedding)
	if err != nil {
		return nil, false, err
	}
	if len(vec) != Dim {
		return nil, false, fmt.Errorf("embedclient: dimension mismatch: got %d, want %d", len(vec), Dim)
	}

	return normalize(vec), false, nil
}

// decodeEmbedding handles both a flat vector and a nested [[...]] vector.
func decodeEmbedding(raw json.RawMessage) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}

	var nested [][]float32
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		return nested[0], nil
	}

	return nil, fmt.Errorf("embedclient: unrecognized embedding shape")
}

func bytesContainsFold(haystack []byte, needle string) bool {
	return len(haystack) > 0 && strings.Contains(strings.ToLower(string(haystack)), strings.ToLower(needle))
}
