package embedclient

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Cache is an on-disk fingerprint -> vector cache, flushed opportunistically
// every flushEvery new entries or flushInterval, whichever comes first.
// Flushes are atomic via write-temp-then-rename, and the previous flush's
// file is kept as a ".backup" copy.
type Cache struct {
	mu sync.Mutex

	path         string
	entries      map[string][]float32
	dirty        int
	flushEvery   int
	flushInterval time.Duration
	lastFlush    time.Time
}

// NewCache loads an existing cache from path if present, or starts empty.
func NewCache(path string, flushEvery int, flushInterval time.Duration) (*Cache, error) {
	if flushEvery <= 0 {
		flushEvery = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Minute
	}

	c := &Cache{
		path:          path,
		entries:       make(map[string][]float32),
		flushEvery:    flushEvery,
		flushInterval: flushInterval,
		lastFlush:     time.Now(),
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&c.entries); err != nil {
			return nil, fmt.Errorf("embedclient: decoding cache: %w", err)
		}
	}

	return c, nil
}

// Get returns the cached vector for fingerprint, if present.
func (c *Cache) Get(fingerprint string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[fingerprint]
	return v, ok
}

// Put stores v under fingerprint and flushes to disk if the opportunistic
// threshold (entry count or elapsed time) has been crossed.
func (c *Cache) Put(fingerprint string, v []float32) error {
	c.mu.Lock()
	c.entries[fingerprint] = v
	c.dirty++
	shouldFlush := c.dirty >= c.flushEvery || time.Since(c.lastFlush) >= c.flushInterval
	c.mu.Unlock()

	if shouldFlush {
		return c.Flush()
	}
	return nil
}

// Flush persists the cache to disk via temp-file-then-rename, keeping the
// previous file as a ".backup" copy.
func (c *Cache) Flush() error {
	c.mu.Lock()
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(c.entries)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("embedclient: encoding cache: %w", err)
	}

	if _, err := os.Stat(c.path); err == nil {
		_ = copyFile(c.path, c.path+".backup")
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".embedcache-*.tmp")
	if err != nil {
		return fmt.Errorf("embedclient: creating temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("embedclient: writing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("embedclient: closing temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("embedclient: renaming cache into place: %w", err)
	}

	c.mu.Lock()
	c.dirty = 0
	c.lastFlush = time.Now()
	c.mu.Unlock()
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
