package vectorindex

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// Store wraps an Index with the external internal_id -> UUID map the
// specification requires: the ANN structure itself knows nothing about
// UUIDs, only internal ids, so every add/query crossing the package
// boundary goes through Store to keep the two in lockstep.
type Store struct {
	Index *Index
	ids   []string // internal_id -> uuid
}

// NewStore returns an empty Store over vectors of the given dimension.
func NewStore(dim int) *Store {
	return &Store{Index: New(dim)}
}

// Add normalizes and adds v under uuid, recording the UUID map entry.
func (s *Store) Add(uuid string, v []float32) error {
	id, err := s.Index.Add(v)
	if err != nil {
		return err
	}
	if id != len(s.ids) {
		return fmt.Errorf("vectorindex: internal id %d out of sequence with uuid map length %d", id, len(s.ids))
	}
	s.ids = append(s.ids, uuid)
	return nil
}

// Build finalizes the underlying ANN index.
func (s *Store) Build(nTrees int) error {
	return s.Index.Build(nTrees)
}

// QueryResult pairs a UUID with its cosine similarity to the query.
type QueryResult struct {
	UUID       string
	Similarity float64
}

// Query returns the n nearest UUIDs to v by cosine similarity, descending.
func (s *Store) Query(v []float32, n int) ([]QueryResult, error) {
	neighbors, err := s.Index.Query(v, n)
	if err != nil {
		return nil, err
	}
	out := make([]QueryResult, 0, len(neighbors))
	for _, nb := range neighbors {
		if nb.ID < 0 || nb.ID >= len(s.ids) {
			continue
		}
		out = append(out, QueryResult{UUID: s.ids[nb.ID], Similarity: nb.Similarity})
	}
	return out, nil
}

// annSnapshot is the gob-serializable form of the ANN file (vdb_data).
// Trees are not persisted; Load rebuilds them deterministically from the
// stored vectors so the on-disk format stays simple and the loaded index
// is always immediately query-ready after an implicit rebuild.
type annSnapshot struct {
	Dim     int
	Vectors [][]float32
	NTrees  int
}

// mapSnapshot is the gob-serializable form of the sidecar UUID map file
// (vdb_data.map).
type mapSnapshot struct {
	IDs []string
}

// Save writes the ANN data to path and the UUID map to path+".map", each
// via a temp-file-then-rename protocol, so concurrent readers never see
// a partially written file.
func (s *Store) Save(path string) error {
	s.Index.mu.RLock()
	nTrees := len(s.Index.trees)
	vectors := make([][]float32, len(s.Index.vectors))
	copy(vectors, s.Index.vectors)
	dim := s.Index.dim
	s.Index.mu.RUnlock()

	if nTrees == 0 {
		nTrees = 1
	}

	if err := writeGobAtomic(path, &annSnapshot{Dim: dim, Vectors: vectors, NTrees: nTrees}); err != nil {
		return fmt.Errorf("vectorindex: saving ann data: %w", err)
	}
	if err := writeGobAtomic(path+".map", &mapSnapshot{IDs: s.ids}); err != nil {
		return fmt.Errorf("vectorindex: saving uuid map: %w", err)
	}
	return nil
}

// Load reads the ANN data and UUID map previously written by Save,
// rebuilds the forest, and validates that the UUID map size matches the
// number of items in the ANN. A mismatch is a fatal load error: callers
// MUST refuse to serve queries against the returned Store.
func Load(path string) (*Store, error) {
	var ann annSnapshot
	if err := readGob(path, &ann); err != nil {
		return nil, fmt.Errorf("vectorindex: loading ann data: %w", err)
	}

	var m mapSnapshot
	if err := readGob(path+".map", &m); err != nil {
		return nil, fmt.Errorf("vectorindex: loading uuid map: %w", err)
	}

	if len(m.IDs) != len(ann.Vectors) {
		return nil, fmt.Errorf("vectorindex: integrity failure: uuid map has %d entries, ann has %d items", len(m.IDs), len(ann.Vectors))
	}

	idx := New(ann.Dim)
	idx.vectors = ann.Vectors
	if err := idx.Build(ann.NTrees); err != nil {
		return nil, fmt.Errorf("vectorindex: rebuilding forest on load: %w", err)
	}

	return &Store{Index: idx, ids: m.IDs}, nil
}

func writeGobAtomic(path string, v interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".vectorindex-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func readGob(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
