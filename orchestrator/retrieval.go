package orchestrator

import (
	"context"
	"log/slog"

	"github.com/voidtrace/ragcore/contextexpand"
	"github.com/voidtrace/ragcore/dbops"
	"github.com/voidtrace/ragcore/hybridmerge"
	"github.com/voidtrace/ragcore/tokenbudget"
	"github.com/voidtrace/ragcore/ttsfilter"
)

// runQA embeds query, matches it against the precomputed Q&A matrix, and
// formats any hits. Every step is wrapped in the configured retrieval
// timeout; any failure along the way returns "" rather than propagating,
// per §4.11 step 5 and §7's "query path never raises" policy.
func (o *QueryOrchestrator) runQA(ctx context.Context, query string) string {
	qctx, cancel := context.WithTimeout(ctx, o.cfg.RetrievalTimeout)
	defer cancel()

	matrix := o.qaMatrix()
	if matrix == nil || matrix.Len() == 0 {
		return ""
	}

	emb, err := o.embedder.Embed(qctx, query, true)
	if err != nil {
		slog.Warn("orchestrator: qa embedding failed", "error", err)
		return ""
	}
	if isZeroVector(emb) {
		return ""
	}

	results, err := matrix.TopK(emb, o.cfg.NumResults, o.cfg.QAThreshold)
	if err != nil {
		slog.Warn("orchestrator: qa lookup failed", "error", err)
		return ""
	}

	return formatQAContext(results)
}

// runChunk embeds query, runs ANN (optionally hybrid-merged with BM25)
// retrieval, expands surviving hits' context, filters them TTS-safe,
// and packs as many as fit budgetTokens. Like runQA, every failure
// degrades to "" instead of propagating.
func (o *QueryOrchestrator) runChunk(ctx context.Context, query string, budgetTokens int) string {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.RetrievalTimeout)
	defer cancel()

	snap := o.snapshot()
	if snap.VectorIndex == nil || snap.Metadata == nil {
		return ""
	}

	emb, err := o.embedder.Embed(cctx, query, true)
	if err != nil {
		slog.Warn("orchestrator: chunk embedding failed", "error", err)
		return ""
	}
	if isZeroVector(emb) {
		return ""
	}

	k := o.cfg.NumResults
	if k <= 0 {
		k = 5
	}

	vecResults, err := snap.VectorIndex.Query(emb, k*2)
	if err != nil {
		slog.Warn("orchestrator: ann query failed", "error", err)
		return ""
	}

	// Score pairs (uuid, score) to threshold against below. When BM25 is
	// unavailable or hybrid search is disabled, these are raw cosine
	// similarities against the relevance threshold; hybridmerge's min-max
	// normalization only applies once a second ranked list exists to merge
	// against, since normalizing a lone list would stretch its scores to
	// [0,1] and make the configured cosine threshold meaningless.
	type scored struct {
		uuid  string
		score float64
	}
	var ranked []scored

	if o.cfg.HybridSearchEnabled && snap.BM25Index != nil && snap.BM25Index.NumDocs() > 0 {
		semantic := make([]hybridmerge.Result, len(vecResults))
		for i, r := range vecResults {
			semantic[i] = hybridmerge.Result{UUID: r.UUID, Score: r.Similarity}
		}
		bmResults := snap.BM25Index.Search(query, k*2)
		keyword := make([]hybridmerge.Result, len(bmResults))
		for i, r := range bmResults {
			keyword[i] = hybridmerge.Result{UUID: r.UUID, Score: r.Score}
		}
		merged := hybridmerge.Merge(semantic, keyword, o.cfg.HybridSemanticWeight, o.cfg.HybridKeywordWeight)
		ranked = make([]scored, len(merged))
		for i, m := range merged {
			ranked[i] = scored{uuid: m.UUID, score: m.Score}
		}
	} else {
		ranked = make([]scored, len(vecResults))
		for i, r := range vecResults {
			ranked[i] = scored{uuid: r.UUID, score: r.Similarity}
		}
	}

	candidates := make([]tokenbudget.Candidate, 0, k)
	for _, m := range ranked {
		if len(candidates) >= k {
			break
		}
		if m.score < o.cfg.RelevanceThreshold {
			continue
		}
		meta, ok := snap.Metadata.Get(m.uuid)
		if !ok {
			continue
		}

		text := meta.Text
		if o.cfg.ContextExpansionEnabled {
			if docText, err := o.docText.Get(dbops.TextPath(o.dbDir, meta.DocumentPath)); err == nil {
				text = contextexpand.Expand(docText, meta.CharStart, meta.CharEnd, o.cfg.ContextExpansionTokens, o.cfg.SafeEmbeddingSizeChars)
			}
		}
		text = ttsfilter.Filter(text)

		candidates = append(candidates, tokenbudget.Candidate{
			Text:       text,
			Similarity: m.score,
			Metadata: map[string]string{
				"filename":      displayFilename(meta.DocumentPath),
				"document_path": meta.DocumentPath,
				"chunk_index":   chunkIndexLabel(meta.ChunkIndex),
			},
		})
	}

	selected := tokenbudget.Select(candidates, budgetTokens, o.cfg.ReserveTokens)

	summaries := snap.Summaries
	return formatChunkContext(selected, func(documentPath string) (string, bool) {
		if summaries == nil {
			return "", false
		}
		sum, ok := summaries.Get(documentPath)
		return sum.Extended, ok
	})
}
