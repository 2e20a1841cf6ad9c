package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/voidtrace/ragcore/qaindex"
	"github.com/voidtrace/ragcore/tokenbudget"
	"github.com/voidtrace/ragcore/ttsfilter"
)

// formatQAContext renders Q&A hits as a numbered list of question,
// answer, source, and similarity, matching §4.6's "structured context
// string that enumerates pairs with source and similarity". Every text
// field passes through the TTS-safe filter before being emitted.
func formatQAContext(results []qaindex.Result) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] Q: %s\nA: %s\n", i+1, ttsfilter.Filter(r.Question), ttsfilter.Filter(r.Answer))
		if r.Context != "" {
			fmt.Fprintf(&b, "Context: %s\n", ttsfilter.Filter(r.Context))
		}
		fmt.Fprintf(&b, "Source: %s", r.SourceFilename)
		if r.Page > 0 {
			fmt.Fprintf(&b, ", page %d", r.Page)
		}
		fmt.Fprintf(&b, "\nRelevance: %.2f\n\n", r.Similarity)
	}
	return strings.TrimSpace(b.String())
}

// summaryLookup resolves a document's extended summary, if any.
type summaryLookup func(documentPath string) (extended string, ok bool)

// formatChunkContext renders budget-selected chunk candidates grouped by
// source document: each document's extended summary is injected once,
// immediately before its first snippet, and at most three snippets per
// document are emitted, each citation-numbered with source, chunk index,
// and relevance, per §4.11's "chunk" dispatch.
func formatChunkContext(selected []tokenbudget.Selected, summaries summaryLookup) string {
	if len(selected) == 0 {
		return ""
	}

	const maxSnippetsPerDoc = 3

	var b strings.Builder
	seenDoc := make(map[string]bool)
	snippetCount := make(map[string]int)
	citation := 1

	for _, s := range selected {
		docPath := s.Metadata["document_path"]
		filename := s.Metadata["filename"]

		if !seenDoc[docPath] {
			seenDoc[docPath] = true
			if extended, ok := summaries(docPath); ok && extended != "" {
				fmt.Fprintf(&b, "Document: %s\n\nSummary:\n%s\n\n---\n\n", filename, ttsfilter.Filter(extended))
			}
		}

		if snippetCount[docPath] >= maxSnippetsPerDoc {
			continue
		}
		snippetCount[docPath]++

		chunkIdx := s.Metadata["chunk_index"]
		fmt.Fprintf(&b, "[%d] Source: %s, chunk %s\nRelevance: %.2f\n\n%s\n\n", citation, filename, chunkIdx, s.Similarity, s.Text)
		citation++
	}

	return strings.TrimSpace(b.String())
}

func chunkIndexLabel(chunkIndex int) string {
	if chunkIndex < 0 {
		return "summary"
	}
	return strconv.Itoa(chunkIndex)
}
