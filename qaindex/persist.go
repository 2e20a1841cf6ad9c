package qaindex

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// Save writes the matrix's pairs to path via a temp-file-then-rename
// protocol.
func (m *Matrix) Save(path string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m.pairs); err != nil {
		return fmt.Errorf("qaindex: encoding pairs: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".qaindex-*.tmp")
	if err != nil {
		return fmt.Errorf("qaindex: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("qaindex: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("qaindex: closing temp file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load reads a matrix previously written by Save.
func Load(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("qaindex: reading file: %w", err)
	}

	var pairs []Pair
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&pairs); err != nil {
		return nil, fmt.Errorf("qaindex: decoding file: %w", err)
	}

	dim := 0
	if len(pairs) > 0 {
		dim = len(pairs[0].Embedding)
	}
	return &Matrix{dim: dim, pairs: pairs}, nil
}
