package dbops

import (
	"path/filepath"
	"testing"
)

func TestMetadataStoreAddGetDelete(t *testing.T) {
	s := NewMetadataStore()
	s.Add(ChunkMeta{UUID: "a", DocumentPath: "doc1.txt", Text: "hello"})

	m, ok := s.Get("a")
	if !ok || m.Text != "hello" {
		t.Fatalf("Get returned %+v, %v", m, ok)
	}

	s.Delete("a")
	if _, ok := s.Get("a"); ok {
		t.Fatal("expected entry to be deleted")
	}
}

func TestMetadataStoreForDocument(t *testing.T) {
	s := NewMetadataStore()
	s.Add(ChunkMeta{UUID: "a", DocumentPath: "doc1.txt"})
	s.Add(ChunkMeta{UUID: "b", DocumentPath: "doc1.txt"})
	s.Add(ChunkMeta{UUID: "c", DocumentPath: "doc2.txt"})

	got := s.ForDocument("doc1.txt")
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks for doc1.txt, got %d", len(got))
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 total chunks, got %d", s.Len())
	}
}

func TestMetadataStoreCopyForwardFiltersDeadDocuments(t *testing.T) {
	s := NewMetadataStore()
	s.Add(ChunkMeta{UUID: "a", DocumentPath: "live.txt", Text: "keep"})
	s.Add(ChunkMeta{UUID: "b", DocumentPath: "gone.txt", Text: "drop"})

	staging, err := s.CopyForward(map[string]bool{"live.txt": true})
	if err != nil {
		t.Fatalf("CopyForward: %v", err)
	}
	if staging.Len() != 1 {
		t.Fatalf("expected 1 carried-forward chunk, got %d", staging.Len())
	}
	m, ok := staging.Get("a")
	if !ok || m.Text != "keep" {
		t.Fatalf("expected carried-forward chunk 'a' with text 'keep', got %+v", m)
	}

	// Mutating the staging copy must not affect the source store.
	m.Text = "mutated"
	staging.Add(m)
	if orig, _ := s.Get("a"); orig.Text != "keep" {
		t.Fatalf("CopyForward should deep-copy; source mutated to %q", orig.Text)
	}
}

func TestMetadataStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata")

	s := NewMetadataStore()
	s.Add(ChunkMeta{UUID: "a", DocumentPath: "doc1.txt", Text: "hello", ChunkIndex: 0})
	s.Add(ChunkMeta{UUID: "b", DocumentPath: "doc1.txt", Text: "summary", ChunkIndex: -1})

	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadMetadataStore(path)
	if err != nil {
		t.Fatalf("LoadMetadataStore: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected 2 entries after reload, got %d", loaded.Len())
	}
	m, ok := loaded.Get("b")
	if !ok || m.ChunkIndex != -1 || m.Text != "summary" {
		t.Fatalf("unexpected reloaded summary chunk: %+v", m)
	}
}
