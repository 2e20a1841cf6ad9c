package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDocTextCacheReadsAndCachesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := NewDocTextCache(4)
	text, err := c.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text: %q", text)
	}

	// Overwrite on disk; a cache hit must still return the original text.
	if err := os.WriteFile(path, []byte("changed"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cached, err := c.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cached != "hello world" {
		t.Fatalf("expected cached value to survive disk change, got %q", cached)
	}
}

func TestDocTextCacheMissingFileErrors(t *testing.T) {
	c := NewDocTextCache(4)
	if _, err := c.Get(filepath.Join(t.TempDir(), "does-not-exist.txt")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestDocTextCacheEvictsLeastRecentlyUsed(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 3; i++ {
		p := filepath.Join(dir, string(rune('a'+i))+".txt")
		if err := os.WriteFile(p, []byte("content"), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		paths = append(paths, p)
	}

	c := NewDocTextCache(2)
	for _, p := range paths {
		if _, err := c.Get(p); err != nil {
			t.Fatalf("Get(%s): %v", p, err)
		}
	}

	if c.Len() != 2 {
		t.Fatalf("expected capacity-bounded length of 2, got %d", c.Len())
	}

	// The first path should have been evicted; removing its backing file
	// confirms a re-read (not a cache hit) is required to serve it again.
	if err := os.Remove(paths[0]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := c.Get(paths[0]); err == nil {
		t.Fatal("expected the least-recently-used entry to have been evicted")
	}
}

func TestNewDocTextCacheDefaultsCapacity(t *testing.T) {
	c := NewDocTextCache(0)
	if c.capacity != docTextCacheCapacity {
		t.Fatalf("expected default capacity %d, got %d", docTextCacheCapacity, c.capacity)
	}
}
