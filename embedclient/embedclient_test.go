package embedclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func TestEmbedReturnsVectorOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vec := make([]float32, Dim)
		vec[0] = 3
		vec[1] = 4
		resp := []map[string]interface{}{{"embedding": vec}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeout: 2 * time.Second})
	v, err := c.Embed(context.Background(), "hello world", false)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(v) != Dim {
		t.Fatalf("expected dim %d, got %d", Dim, len(v))
	}
	// normalized: [3,4,0,...] -> [0.6, 0.8, 0, ...]
	if v[0] < 0.59 || v[0] > 0.61 {
		t.Errorf("expected normalized x~0.6, got %v", v[0])
	}
}

func TestEmbedReturnsZeroVectorOnPersistentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("server exploded"))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeout: 2 * time.Second})
	v, err := c.Embed(context.Background(), "hello world", false)
	if err != nil {
		t.Fatalf("expected no error on persistent failure, got %v", err)
	}
	if len(v) != Dim {
		t.Fatalf("expected zero vector of dim %d, got len %d", Dim, len(v))
	}
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected all-zero vector, found nonzero %v", x)
		}
	}
}

func TestEmbedShrinksAndRetriesOnTooLarge(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("input is too large for model"))
			return
		}
		vec := make([]float32, Dim)
		vec[0] = 1
		resp := []map[string]interface{}{{"embedding": vec}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeout: 2 * time.Second})
	v, err := c.Embed(context.Background(), "some moderately long input text", false)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts (shrink then succeed), got %d", attempts)
	}
	if len(v) != Dim {
		t.Fatalf("expected dim %d, got %d", Dim, len(v))
	}
}

func TestDecodeEmbeddingFlat(t *testing.T) {
	raw := json.RawMessage(`[1,2,3]`)
	v, err := decodeEmbedding(raw)
	if err != nil {
		t.Fatalf("decodeEmbedding: %v", err)
	}
	if len(v) != 3 || v[0] != 1 || v[2] != 3 {
		t.Errorf("unexpected flat decode: %v", v)
	}
}

func TestDecodeEmbeddingNested(t *testing.T) {
	raw := json.RawMessage(`[[1,2,3]]`)
	v, err := decodeEmbedding(raw)
	if err != nil {
		t.Fatalf("decodeEmbedding: %v", err)
	}
	if len(v) != 3 || v[0] != 1 {
		t.Errorf("unexpected nested decode: %v", v)
	}
}

func TestTruncateToTokenCap(t *testing.T) {
	text := ""
	for i := 0; i < 1000; i++ {
		text += "a"
	}
	truncated := truncateToTokenCap(text, 10)
	if len(truncated) != 40 {
		t.Errorf("expected 40 chars (10 tokens * 4 chars/token), got %d", len(truncated))
	}
}

func TestTruncateByRatio(t *testing.T) {
	text := "0123456789"
	out := truncateByRatio(text, 0.5)
	if len(out) != 5 {
		t.Errorf("expected half-length result, got %q", out)
	}
}

func TestFingerprintKeyDeterministic(t *testing.T) {
	a := FingerprintKey("same text")
	b := FingerprintKey("same text")
	c := FingerprintKey("different text")
	if a != b {
		t.Error("expected identical fingerprints for identical text")
	}
	if a == c {
		t.Error("expected different fingerprints for different text")
	}
}

func TestCacheGetPutFlushRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeds.cache")

	cache, err := NewCache(path, 2, time.Hour)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	key := FingerprintKey("hello")
	if _, ok := cache.Get(key); ok {
		t.Fatal("expected empty cache miss")
	}

	vec := []float32{1, 2, 3}
	if err := cache.Put(key, vec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got, ok := cache.Get(key); !ok || got[0] != 1 {
		t.Fatalf("expected cached vector, got %v ok=%v", got, ok)
	}

	// Second put crosses flushEvery=2 threshold, triggering a flush.
	if err := cache.Put(FingerprintKey("world"), []float32{4, 5, 6}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reloaded, err := NewCache(path, 2, time.Hour)
	if err != nil {
		t.Fatalf("NewCache reload: %v", err)
	}
	if got, ok := reloaded.Get(key); !ok || got[0] != 1 {
		t.Fatalf("expected persisted vector after reload, got %v ok=%v", got, ok)
	}

	// Flush again; since a prior file exists, a .backup copy should appear.
	if err := cache.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := NewCache(path+".backup", 2, time.Hour); err != nil {
		t.Fatalf("expected .backup cache file to be readable: %v", err)
	}
}

func TestEmbedRespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeout: 2 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Embed(ctx, "text", false)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
