package qagen

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveDocumentOutputRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	pairs := []Pair{{Question: "q1", Answer: "a1"}}

	if err := SaveDocumentOutput(path, "My Document", pairs); err != nil {
		t.Fatalf("SaveDocumentOutput: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var out DocumentOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.DocumentTitle != "My Document" || out.QACount != 1 || len(out.Pairs) != 1 || out.Pairs[0].Question != "q1" {
		t.Errorf("unexpected round-tripped output: %+v", out)
	}
}

func TestProcessingReportAccumulatesAndSummarizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	r, err := NewProcessingReport(path)
	if err != nil {
		t.Fatalf("NewProcessingReport: %v", err)
	}

	r.AddDocument(DocumentReport{Filename: "a.pdf", Success: true, QACount: 5, TokensSent: 100, TokensReceived: 50})
	r.AddDocument(DocumentReport{Filename: "b.pdf", Success: false, Error: "parse failed"})

	summary := r.Summary()
	if summary.TotalDocuments != 2 || summary.Successful != 1 || summary.Failed != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.TotalQAPairs != 5 {
		t.Errorf("expected 5 total QA pairs, got %d", summary.TotalQAPairs)
	}
	if len(summary.FailedDocuments) != 1 || summary.FailedDocuments[0].Filename != "b.pdf" {
		t.Errorf("expected failed document tracked, got %+v", summary.FailedDocuments)
	}

	if err := r.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := NewProcessingReport(path)
	if err != nil {
		t.Fatalf("NewProcessingReport reload: %v", err)
	}
	if len(reloaded.documents) != 2 {
		t.Fatalf("expected 2 documents reloaded, got %d", len(reloaded.documents))
	}
}
