// Package opstore is the operational SQLite store backing incremental
// ingest: file history for change detection, an ingestion-run audit log,
// and a query log. Chunk content, embeddings, and keyword search are not
// stored here — they live in the file-based vectorindex/bm25 indices
// (see package dbops), per the specification's file-based index contract.
package opstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Document is a row in the file-history table.
type Document struct {
	ID          int64
	Path        string
	Filename    string
	Format      string
	ContentHash string
	SizeBytes   int64
	MtimeUnix   int64
	Status      string
	CreatedAt   string
	UpdatedAt   string
}

// IngestionRun is one incremental-ingest run's audit record.
type IngestionRun struct {
	ID            int64
	StartedAt     time.Time
	FinishedAt    sql.NullTime
	FilesAdded    int
	FilesRemoved  int
	FilesModified int
	ChunksAdded   int
	QAPairsAdded  int
	ANNTrees      int
	Success       bool
	Error         string
}

// QueryLog is one query's audit record.
type QueryLog struct {
	Query            string
	Mode             string
	ResultCount      int
	RAGInjected      bool
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	LatencyMs        int64
}

// Store wraps the operational SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the operational database at dbPath and installs
// the schema.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("opstore: creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opstore: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opstore: pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("opstore: creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// UpsertDocument inserts or updates a file-history record, returning its id.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (path, filename, format, content_hash, size_bytes, mtime_unix, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			format = excluded.format,
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			mtime_unix = excluded.mtime_unix,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, doc.Path, doc.Filename, doc.Format, doc.ContentHash, doc.SizeBytes, doc.MtimeUnix, doc.Status)
	if err != nil {
		return 0, fmt.Errorf("opstore: upserting document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if id == 0 {
		row := s.db.QueryRowContext(ctx, "SELECT id FROM documents WHERE path = ?", doc.Path)
		if err := row.Scan(&id); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// GetDocumentByPath retrieves a file-history record by path.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	d := &Document{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, path, filename, format, content_hash, size_bytes, mtime_unix, status, created_at, updated_at
		FROM documents WHERE path = ?
	`, path).Scan(&d.ID, &d.Path, &d.Filename, &d.Format, &d.ContentHash,
		&d.SizeBytes, &d.MtimeUnix, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDocuments returns every tracked file-history record.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, filename, format, content_hash, size_bytes, mtime_unix, status, created_at, updated_at
		FROM documents ORDER BY path
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Path, &d.Filename, &d.Format, &d.ContentHash,
			&d.SizeBytes, &d.MtimeUnix, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocumentByPath removes a file-history record, used when a
// previously-ingested file is no longer present on disk.
func (s *Store) DeleteDocumentByPath(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", path)
	return err
}

// RecordIngestionRun persists an ingestion run's audit record.
func (s *Store) RecordIngestionRun(ctx context.Context, r IngestionRun) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_runs (started_at, finished_at, files_added, files_removed,
			files_modified, chunks_added, qa_pairs_added, ann_trees, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.StartedAt, r.FinishedAt, r.FilesAdded, r.FilesRemoved, r.FilesModified,
		r.ChunksAdded, r.QAPairsAdded, r.ANNTrees, boolToInt(r.Success), r.Error)
	if err != nil {
		return 0, fmt.Errorf("opstore: recording ingestion run: %w", err)
	}
	return res.LastInsertId()
}

// LogQuery persists a query audit record.
func (s *Store) LogQuery(ctx context.Context, q QueryLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_log (query, mode, result_count, rag_injected,
			prompt_tokens, completion_tokens, total_tokens, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, q.Query, q.Mode, q.ResultCount, boolToInt(q.RAGInjected),
		q.PromptTokens, q.CompletionTokens, q.TotalTokens, q.LatencyMs)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
