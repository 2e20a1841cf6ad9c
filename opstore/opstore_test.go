//go:build cgo

package opstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDoc(path string) Document {
	return Document{
		Path:        path,
		Filename:    "test.pdf",
		Format:      "pdf",
		ContentHash: "abc123",
		SizeBytes:   1024,
		MtimeUnix:   1700000000,
		Status:      "pending",
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	dbPath := filepath.Join(dir, "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestUpsertAndGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertDocument(ctx, sampleDoc("/docs/a.pdf"))
	if err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := s.GetDocumentByPath(ctx, "/docs/a.pdf")
	if err != nil {
		t.Fatalf("GetDocumentByPath: %v", err)
	}
	if got.ContentHash != "abc123" {
		t.Errorf("expected content hash abc123, got %s", got.ContentHash)
	}
}

func TestUpsertDocumentUpdatesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := sampleDoc("/docs/a.pdf")
	firstID, err := s.UpsertDocument(ctx, doc)
	if err != nil {
		t.Fatalf("first UpsertDocument: %v", err)
	}

	doc.ContentHash = "updated-hash"
	secondID, err := s.UpsertDocument(ctx, doc)
	if err != nil {
		t.Fatalf("second UpsertDocument: %v", err)
	}
	if firstID != secondID {
		t.Errorf("expected same id on update, got %d and %d", firstID, secondID)
	}

	got, err := s.GetDocumentByPath(ctx, "/docs/a.pdf")
	if err != nil {
		t.Fatalf("GetDocumentByPath: %v", err)
	}
	if got.ContentHash != "updated-hash" {
		t.Errorf("expected updated hash, got %s", got.ContentHash)
	}
}

func TestListDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"/docs/a.pdf", "/docs/b.pdf", "/docs/c.pdf"} {
		if _, err := s.UpsertDocument(ctx, sampleDoc(p)); err != nil {
			t.Fatalf("UpsertDocument(%s): %v", p, err)
		}
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
}

func TestDeleteDocumentByPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertDocument(ctx, sampleDoc("/docs/a.pdf")); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	if err := s.DeleteDocumentByPath(ctx, "/docs/a.pdf"); err != nil {
		t.Fatalf("DeleteDocumentByPath: %v", err)
	}
	if _, err := s.GetDocumentByPath(ctx, "/docs/a.pdf"); err == nil {
		t.Error("expected error for deleted document")
	}
}

func TestRecordIngestionRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.RecordIngestionRun(ctx, IngestionRun{
		StartedAt:    time.Now(),
		FinishedAt:   sql.NullTime{Time: time.Now(), Valid: true},
		FilesAdded:   2,
		FilesRemoved: 1,
		ChunksAdded:  50,
		ANNTrees:     50,
		Success:      true,
	})
	if err != nil {
		t.Fatalf("RecordIngestionRun: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero ingestion run id")
	}
}

func TestLogQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.LogQuery(ctx, QueryLog{
		Query:       "what was produced in 2023?",
		Mode:        "both",
		ResultCount: 5,
		RAGInjected: true,
		TotalTokens: 120,
		LatencyMs:   42,
	})
	if err != nil {
		t.Fatalf("LogQuery: %v", err)
	}
}
