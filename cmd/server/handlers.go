package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/voidtrace/ragcore"
	"github.com/voidtrace/ragcore/orchestrator"
)

type handler struct {
	engine ragcore.Engine
}

func newHandler(e ragcore.Engine) *handler {
	return &handler{engine: e}
}

// POST /ingest
// Triggers one full incremental ingest sweep over the configured docs
// directory. Long-running; the caller should not expect a fast response.
func (h *handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	if err := h.engine.Ingest(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		slog.Error("ingest error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ingested"})
}

// POST /qa/generate
func (h *handler) handleGenerateQA(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	var req struct {
		DocumentPath string `json:"document_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.DocumentPath == "" {
		writeError(w, http.StatusBadRequest, "document_path is required")
		return
	}

	count, err := h.engine.GenerateQA(ctx, req.DocumentPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "q&a generation failed")
		slog.Error("generate qa error", "path", req.DocumentPath, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document_path": req.DocumentPath,
		"qa_pairs_added": count,
	})
}

// enrichMessage mirrors orchestrator.Message over the wire.
type enrichMessage struct {
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	IsRAGContext bool      `json:"is_rag_context,omitempty"`
	RAGTimestamp time.Time `json:"rag_timestamp,omitempty"`
}

// POST /enrich
// Runs the per-turn retrieval flow and returns the (possibly enriched)
// transcript. Mirrors the spec's query-time dataflow: embed -> retrieve ->
// format -> inject, rather than an answer-synthesizing "query" endpoint —
// answer generation belongs to the caller's own chat loop.
func (h *handler) handleEnrich(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var req struct {
		Messages []enrichMessage `json:"messages"`
		Mode     string          `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	mode := orchestrator.Mode(req.Mode)
	if mode != orchestrator.ModeQA && mode != orchestrator.ModeChunk && mode != orchestrator.ModeBoth {
		writeError(w, http.StatusBadRequest, "mode must be one of qa, chunk, both")
		return
	}

	messages := make([]orchestrator.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = orchestrator.Message{
			Role:         m.Role,
			Content:      m.Content,
			IsRAGContext: m.IsRAGContext,
			RAGTimestamp: m.RAGTimestamp,
		}
	}

	out, err := h.engine.Enrich(ctx, &orchestrator.Transcript{Messages: messages}, mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "enrichment failed")
		slog.Error("enrich error", "error", err)
		return
	}

	outMessages := make([]enrichMessage, len(out))
	for i, m := range out {
		outMessages[i] = enrichMessage{
			Role:         m.Role,
			Content:      m.Content,
			IsRAGContext: m.IsRAGContext,
			RAGTimestamp: m.RAGTimestamp,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": outMessages,
	})
}

// POST /reload
func (h *handler) handleReload(w http.ResponseWriter, r *http.Request) {
	h.engine.RequestReload()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reload requested"})
}

// GET /documents
func (h *handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.engine.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		slog.Error("list documents error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.engine.Health()
	status := http.StatusOK
	if report.Overall == ragcore.HealthFail {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s", msg)})
}
