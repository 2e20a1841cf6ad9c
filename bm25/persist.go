package bm25

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// snapshot is the gob-serializable form of an Index.
type snapshot struct {
	TermFreq  map[string]map[string]int
	DocFreq   map[string]int
	DocLength map[string]int
	DocOrder  []string
	TotalLen  int
}

// Save writes the index to path using a temp-file-then-rename protocol so
// concurrent readers never observe a partially written file.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	snap := snapshot{
		TermFreq:  idx.termFreq,
		DocFreq:   idx.docFreq,
		DocLength: idx.docLength,
		DocOrder:  idx.docOrder,
		TotalLen:  idx.totalLen,
	}
	idx.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return fmt.Errorf("bm25: encoding index: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".bm25-*.tmp")
	if err != nil {
		return fmt.Errorf("bm25: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("bm25: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("bm25: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("bm25: renaming into place: %w", err)
	}
	return nil
}

// Load reads an index previously written by Save.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bm25: reading index file: %w", err)
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("bm25: decoding index file: %w", err)
	}

	idx := &Index{
		termFreq:  snap.TermFreq,
		docFreq:   snap.DocFreq,
		docLength: snap.DocLength,
		docOrder:  snap.DocOrder,
		totalLen:  snap.TotalLen,
	}
	if idx.termFreq == nil {
		idx.termFreq = make(map[string]map[string]int)
	}
	if idx.docFreq == nil {
		idx.docFreq = make(map[string]int)
	}
	if idx.docLength == nil {
		idx.docLength = make(map[string]int)
	}
	return idx, nil
}
