package dbops

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tiendc/go-deepcopy"
)

// ChunkMeta is the persisted record for one chunk: its text, the
// document it came from, and enough metadata to support context
// expansion and lazy re-embedding. ChunkIndex is -1 for the synthetic
// summary chunk added per document.
type ChunkMeta struct {
	UUID                 string
	DocumentPath         string
	ChunkIndex           int
	Text                 string
	CharStart            int
	CharEnd              int
	PageStart            int
	PageEnd              int
	TokenCount           int
	EmbeddingFingerprint string
}

// MetadataStore is the uuid -> ChunkMeta table persisted alongside the
// ANN and BM25 indices (the specification's "metadata.pkl or
// equivalent").
type MetadataStore struct {
	mu      sync.RWMutex
	entries map[string]ChunkMeta
}

// NewMetadataStore returns an empty MetadataStore.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{entries: make(map[string]ChunkMeta)}
}

// Add inserts or replaces a chunk's metadata.
func (s *MetadataStore) Add(m ChunkMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[m.UUID] = m
}

// Get returns the metadata for uuid.
func (s *MetadataStore) Get(uuid string) (ChunkMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.entries[uuid]
	return m, ok
}

// Delete removes uuid's metadata.
func (s *MetadataStore) Delete(uuid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, uuid)
}

// ForDocument returns every chunk belonging to path.
func (s *MetadataStore) ForDocument(path string) []ChunkMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ChunkMeta
	for _, m := range s.entries {
		if m.DocumentPath == path {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of tracked chunks.
func (s *MetadataStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// CopyForward deep-copies every entry belonging to a path in liveDocs
// into a fresh MetadataStore, seeding a staging index with every
// still-valid entry from the live index without re-extracting or
// re-embedding unchanged documents.
func (s *MetadataStore) CopyForward(liveDocs map[string]bool) (*MetadataStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	staging := NewMetadataStore()
	for uuid, m := range s.entries {
		if !liveDocs[m.DocumentPath] {
			continue
		}
		var copied ChunkMeta
		if err := deepcopy.Copy(&copied, m); err != nil {
			return nil, fmt.Errorf("dbops: copying metadata forward: %w", err)
		}
		staging.entries[uuid] = copied
	}
	return staging, nil
}

// Save persists the store via gob-encode then temp-file-then-rename.
func (s *MetadataStore) Save(path string) error {
	s.mu.RLock()
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(s.entries)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("dbops: encoding metadata: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("dbops: creating temp metadata file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("dbops: writing temp metadata file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("dbops: closing temp metadata file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// LoadMetadataStore loads a MetadataStore previously written by Save.
func LoadMetadataStore(path string) (*MetadataStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dbops: reading metadata file: %w", err)
	}
	entries := make(map[string]ChunkMeta)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entries); err != nil {
		return nil, fmt.Errorf("dbops: decoding metadata file: %w", err)
	}
	return &MetadataStore{entries: entries}, nil
}
