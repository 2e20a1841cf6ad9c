package qagen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DocumentOutput is the per-document JSON persisted alongside the Q&A
// index: title, count, generation timestamp, and the final pairs.
type DocumentOutput struct {
	DocumentTitle string    `json:"document_title"`
	QACount       int       `json:"qa_count"`
	GeneratedAt   time.Time `json:"generated_at"`
	Pairs         []Pair    `json:"qa_pairs"`
}

// SaveDocumentOutput writes pairs for one document to path as pretty JSON.
func SaveDocumentOutput(path, title string, pairs []Pair) error {
	out := DocumentOutput{
		DocumentTitle: title,
		QACount:       len(pairs),
		GeneratedAt:   time.Now(),
		Pairs:         pairs,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("qagen: marshaling document output: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("qagen: creating output dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DocumentReport is one document's entry in the processing report.
type DocumentReport struct {
	Filename         string    `json:"filename"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	QACount          int       `json:"qa_count"`
	InvalidCount     int       `json:"invalid_count"`
	TokensSent       int       `json:"tokens_sent"`
	TokensReceived   int       `json:"tokens_received"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// ReportSummary aggregates DocumentReport entries across a whole run.
type ReportSummary struct {
	TotalDocuments      int              `json:"total_documents"`
	Successful          int              `json:"successful"`
	Failed              int              `json:"failed"`
	TotalQAPairs        int              `json:"total_qa_pairs"`
	TotalTokensSent      int              `json:"total_tokens_sent"`
	TotalTokensReceived int              `json:"total_tokens_received"`
	FailedDocuments     []DocumentReport `json:"failed_documents"`
}

// ProcessingReport accumulates per-document results across an ingest run
// and appends them to an on-disk JSON report.
type ProcessingReport struct {
	path      string
	documents []DocumentReport
}

// NewProcessingReport loads an existing report at path, if present, so
// repeated runs append rather than overwrite.
func NewProcessingReport(path string) (*ProcessingReport, error) {
	r := &ProcessingReport{path: path}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &r.documents); err != nil {
			return nil, fmt.Errorf("qagen: decoding existing report: %w", err)
		}
	}
	return r, nil
}

// AddDocument records one document's outcome.
func (r *ProcessingReport) AddDocument(d DocumentReport) {
	d.ProcessedAt = time.Now()
	r.documents = append(r.documents, d)
}

// Summary computes aggregate statistics over every recorded document.
func (r *ProcessingReport) Summary() ReportSummary {
	var s ReportSummary
	s.TotalDocuments = len(r.documents)
	for _, d := range r.documents {
		if d.Success {
			s.Successful++
			s.TotalQAPairs += d.QACount
		} else {
			s.Failed++
			s.FailedDocuments = append(s.FailedDocuments, d)
		}
		s.TotalTokensSent += d.TokensSent
		s.TotalTokensReceived += d.TokensReceived
	}
	return s
}

// Save persists the accumulated per-document entries to disk.
func (r *ProcessingReport) Save() error {
	data, err := json.MarshalIndent(r.documents, "", "  ")
	if err != nil {
		return fmt.Errorf("qagen: marshaling processing report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("qagen: creating report dir: %w", err)
	}
	return os.WriteFile(r.path, data, 0644)
}
