package ragcore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/voidtrace/ragcore/dbops"
	"github.com/voidtrace/ragcore/qaindex"
	"github.com/voidtrace/ragcore/qagen"
)

// GenerateQA runs the offline Q&A generation state machine for one
// already-ingested document: it reads the document's persisted extracted
// text, prompts the chat LLM for question-answer pairs (splitting first
// if the document is large), deduplicates against both the LLM itself and
// a cosine-similarity pass, embeds each question, and folds the result
// into the live Q&A matrix (held in memory and persisted to qaPath via
// temp+rename, same as every other index file).
func (e *engine) GenerateQA(ctx context.Context, documentPath string) (int, error) {
	if e.chatLLM == nil {
		return 0, ErrQAGenerationUnavailable
	}

	textPath := dbops.TextPath(e.dbDir, documentPath)
	text, err := os.ReadFile(textPath)
	if err != nil {
		return 0, fmt.Errorf("ragcore: reading extracted text for %s: %w", documentPath, err)
	}

	title := filepath.Base(documentPath)
	generator := qagen.NewGenerator(e.chatLLM, e.cfg.Chat.Model)

	pairs, _, err := generator.GenerateQAPairs(ctx, string(text), title, nil)
	if err != nil {
		return 0, fmt.Errorf("ragcore: generating q&a pairs for %s: %w", documentPath, err)
	}
	if len(pairs) == 0 {
		return 0, nil
	}

	embed := func(s string) ([]float32, error) { return e.embedder.Embed(ctx, s, true) }

	pairs, err = qagen.DeduplicateCosine(pairs, embed, 0.92)
	if err != nil {
		return 0, fmt.Errorf("ragcore: deduplicating q&a pairs for %s: %w", documentPath, err)
	}
	pairs, err = qagen.Deduplicate(ctx, pairs, e.chatLLM, e.cfg.Chat.Model, embed)
	if err != nil {
		return 0, fmt.Errorf("ragcore: llm-deduplicating q&a pairs for %s: %w", documentPath, err)
	}

	if err := qagen.SaveDocumentOutput(filepath.Join(e.dbDir, "qa", "dev_outputs", title+".json"), title, pairs); err != nil {
		return 0, fmt.Errorf("ragcore: saving q&a document output for %s: %w", documentPath, err)
	}

	newQAPairs := make([]qaindex.Pair, 0, len(pairs))
	for _, p := range pairs {
		v, err := e.embedder.Embed(ctx, p.Question, true)
		if err != nil {
			return 0, fmt.Errorf("ragcore: embedding question for %s: %w", documentPath, err)
		}
		newQAPairs = append(newQAPairs, qaindex.Pair{
			Question:       p.Question,
			Answer:         p.Answer,
			Context:        p.Context,
			SourceFilename: title,
			Page:           p.PageHint,
			Embedding:      v,
		})
	}

	e.qaMu.Lock()
	defer e.qaMu.Unlock()

	all := newQAPairs
	if existing := e.qaMatrix.Load(); existing != nil {
		all = append(existing.ExceptSource(title), newQAPairs...)
	}

	matrix, err := qaindex.Build(all)
	if err != nil {
		return 0, fmt.Errorf("ragcore: rebuilding q&a matrix: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(e.qaPath()), 0755); err != nil {
		return 0, fmt.Errorf("ragcore: creating qa dir: %w", err)
	}
	if err := matrix.Save(e.qaPath()); err != nil {
		return 0, fmt.Errorf("ragcore: persisting q&a matrix: %w", err)
	}
	e.qaMatrix.Store(matrix)

	return len(newQAPairs), nil
}
