// Package dbops implements database orchestration: startup load,
// incremental ingest with atomic staged-index swap, and the hot-reload
// background task that keeps concurrent readers on a consistent index
// snapshot.
package dbops

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voidtrace/ragcore/bm25"
	"github.com/voidtrace/ragcore/chunking"
	"github.com/voidtrace/ragcore/embedclient"
	"github.com/voidtrace/ragcore/extract"
	"github.com/voidtrace/ragcore/opstore"
	"github.com/voidtrace/ragcore/vectorindex"
)

func newUUID() string {
	return uuid.NewString()
}

// DefaultANNTrees is the tree count used when building the ANN index
// from scratch or after a full rebuild.
const DefaultANNTrees = 50

// file names under DBDir, matching the specification's on-disk layout.
const (
	annFile      = "vdb_data"
	metadataFile = "metadata"
	bm25File     = "bm25_index"
	summaryFile  = "summaries"
)

// Orchestrator owns the live index references and coordinates loading,
// incremental ingest, and atomic swaps. All index reads/writes outside of
// IncrementalIngest/Reload go through the accessor methods so callers
// never observe a partially-updated set of references.
type Orchestrator struct {
	DocsDir string
	DBDir   string

	Extractor    *extract.Registry
	Chunker      *chunking.Chunker
	Embedder     *embedclient.Client
	EmbedCache   *embedclient.Cache
	Summarizer   *Summarizer
	Store        *opstore.Store
	EmbeddingDim int
	ANNTrees     int

	mu                 sync.RWMutex
	vectorIndex        *vectorindex.Store
	bm25Index          *bm25.Index
	metadata           *MetadataStore
	summaries          *SummaryStore
	ragEnabled         bool
	lastDBModifiedTime time.Time

	reloadOnce sync.Once
	reloadSt   *reloadState
}

// New returns an Orchestrator wired to the given components. Call Load
// before serving queries.
func New(docsDir, dbDir string, extractor *extract.Registry, chunker *chunking.Chunker,
	embedder *embedclient.Client, cache *embedclient.Cache, summarizer *Summarizer,
	store *opstore.Store, embeddingDim int) *Orchestrator {
	return &Orchestrator{
		DocsDir:      docsDir,
		DBDir:        dbDir,
		Extractor:    extractor,
		Chunker:      chunker,
		Embedder:     embedder,
		EmbedCache:   cache,
		Summarizer:   summarizer,
		Store:        store,
		EmbeddingDim: embeddingDim,
		ANNTrees:     DefaultANNTrees,
	}
}

// RAGEnabled reports whether the live indices are ready to serve queries.
func (o *Orchestrator) RAGEnabled() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.ragEnabled
}

// LastDBModifiedTime returns the ANN file's recorded mtime at last load.
func (o *Orchestrator) LastDBModifiedTime() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastDBModifiedTime
}

// Snapshot is a consistent, read-only view of the live indices for one
// query. Holding a Snapshot across a query guarantees it never observes a
// partial update from a concurrent swap.
type Snapshot struct {
	VectorIndex *vectorindex.Store
	BM25Index   *bm25.Index
	Metadata    *MetadataStore
	Summaries   *SummaryStore
}

// Acquire returns a Snapshot of the current live references.
func (o *Orchestrator) Acquire() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Snapshot{
		VectorIndex: o.vectorIndex,
		BM25Index:   o.bm25Index,
		Metadata:    o.metadata,
		Summaries:   o.summaries,
	}
}

func (o *Orchestrator) annPath() string      { return filepath.Join(o.DBDir, annFile) }
func (o *Orchestrator) metadataPath() string { return filepath.Join(o.DBDir, metadataFile) }
func (o *Orchestrator) bm25Path() string     { return filepath.Join(o.DBDir, bm25File) }
func (o *Orchestrator) summaryPath() string  { return filepath.Join(o.DBDir, summaryFile) }

// Load implements the startup state machine: NO_DB (index files absent)
// builds fresh indices via a full incremental ingest, unless loadOnly is
// set, in which case rag_enabled stays false and Load returns cleanly.
// DB_PRESENT loads every index file, sets rag_enabled, and records the
// ANN file's mtime.
func (o *Orchestrator) Load(ctx context.Context, loadOnly bool) error {
	if _, err := os.Stat(o.annPath()); os.IsNotExist(err) {
		if loadOnly {
			o.mu.Lock()
			o.ragEnabled = false
			o.mu.Unlock()
			return nil
		}

		o.mu.Lock()
		o.vectorIndex = vectorindex.NewStore(o.EmbeddingDim)
		o.bm25Index = bm25.New()
		o.metadata = NewMetadataStore()
		o.summaries = NewSummaryStore()
		o.mu.Unlock()

		return o.IncrementalIngest(ctx)
	}

	vi, err := vectorindex.Load(o.annPath())
	if err != nil {
		return fmt.Errorf("dbops: loading vector index: %w", err)
	}

	bmIdx, err := bm25.Load(o.bm25Path())
	if err != nil {
		slog.Warn("dbops: no bm25 index found, starting empty", "error", err)
		bmIdx = bm25.New()
	}

	meta, err := LoadMetadataStore(o.metadataPath())
	if err != nil {
		return fmt.Errorf("dbops: loading chunk metadata: %w", err)
	}

	sums, err := LoadSummaryStore(o.summaryPath())
	if err != nil {
		slog.Warn("dbops: no summaries found, starting empty", "error", err)
		sums = NewSummaryStore()
	}

	info, err := os.Stat(o.annPath())
	if err != nil {
		return fmt.Errorf("dbops: statting ann file: %w", err)
	}

	o.mu.Lock()
	o.vectorIndex = vi
	o.bm25Index = bmIdx
	o.metadata = meta
	o.summaries = sums
	o.ragEnabled = true
	o.lastDBModifiedTime = info.ModTime()
	o.mu.Unlock()

	return nil
}

var supportedExtensions = map[string]bool{
	"pdf": true, "docx": true, "doc": true, "xlsx": true, "xls": true, "txt": true, "md": true, "markdown": true,
}

func listDocsDir(dir string) (map[string]os.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dbops: reading docs dir: %w", err)
	}
	out := make(map[string]os.FileInfo)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(e.Name())), ".")
		if !supportedExtensions[ext] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out[filepath.Join(dir, e.Name())] = info
	}
	return out, nil
}

func fileContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IncrementalIngest performs the full §4.9 incremental ingest: diffing
// the file set, building staged indices seeded by copying forward every
// still-valid entry, extracting and embedding new/modified files, and
// atomically swapping the live references behind a lock.
func (o *Orchestrator) IncrementalIngest(ctx context.Context) error {
	started := time.Now()
	run := opstore.IngestionRun{StartedAt: started}

	// Step 1: current file set on disk.
	onDisk, err := listDocsDir(o.DocsDir)
	if err != nil {
		return err
	}

	// Step 2: drop history entries for files no longer present.
	existing, err := o.Store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("dbops: listing tracked documents: %w", err)
	}
	liveDocs := make(map[string]bool, len(onDisk))
	for path := range onDisk {
		liveDocs[path] = true
	}
	for _, d := range existing {
		if !liveDocs[d.Path] {
			if err := o.Store.DeleteDocumentByPath(ctx, d.Path); err != nil {
				return fmt.Errorf("dbops: removing stale history for %s: %w", d.Path, err)
			}
			run.FilesRemoved++
		}
	}

	// Step 3: classify every on-disk file as unchanged, modified, or new by
	// comparing its content hash against tracked history, before seeding
	// the staging indices — a modified file's old chunks must NOT be
	// carried forward alongside the freshly re-ingested ones.
	hashes := make(map[string]string, len(onDisk))
	unchangedDocs := make(map[string]bool, len(onDisk))
	toIngest := make([]string, 0, len(onDisk))

	for path := range onDisk {
		hash, err := fileContentHash(path)
		if err != nil {
			return fmt.Errorf("dbops: hashing %s: %w", path, err)
		}
		hashes[path] = hash

		existingDoc, err := o.Store.GetDocumentByPath(ctx, path)
		switch {
		case err == nil && existingDoc.ContentHash == hash:
			unchangedDocs[path] = true
		case err == nil:
			run.FilesModified++
			toIngest = append(toIngest, path)
		default:
			run.FilesAdded++
			toIngest = append(toIngest, path)
		}
	}

	// Step 4: seed staging indices by copying forward only unchanged
	// entries; new/modified files are (re)ingested from scratch below.
	o.mu.RLock()
	liveMetadata := o.metadata
	liveSummaries := o.summaries
	o.mu.RUnlock()

	stagingMetadata, err := liveMetadata.CopyForward(unchangedDocs)
	if err != nil {
		return err
	}
	stagingVectorIndex := vectorindex.NewStore(o.EmbeddingDim)
	stagingBM25 := bm25.New()

	for _, m := range stagingMetadata.entries {
		v, err := o.cachedOrReembed(ctx, m.Text)
		if err != nil {
			return fmt.Errorf("dbops: re-adding carried-forward chunk %s: %w", m.UUID, err)
		}
		if err := stagingVectorIndex.Add(m.UUID, v); err != nil {
			return fmt.Errorf("dbops: staging carried-forward vector: %w", err)
		}
		stagingBM25.Add(m.UUID, m.Text)
	}

	stagingSummaries := NewSummaryStore()
	for path := range unchangedDocs {
		if sum, ok := liveSummaries.Get(path); ok {
			stagingSummaries.Set(path, sum)
		}
	}

	// Step 5: extract, summarize, chunk, embed every new/modified file.
	for _, path := range toIngest {
		added, err := o.ingestFile(ctx, path, stagingVectorIndex, stagingBM25, stagingMetadata, stagingSummaries)
		if err != nil {
			return fmt.Errorf("dbops: ingesting %s: %w", path, err)
		}
		run.ChunksAdded += added

		info := onDisk[path]
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if _, err := o.Store.UpsertDocument(ctx, opstore.Document{
			Path:        path,
			Filename:    filepath.Base(path),
			Format:      ext,
			ContentHash: hashes[path],
			SizeBytes:   info.Size(),
			MtimeUnix:   info.ModTime().Unix(),
			Status:      "ingested",
		}); err != nil {
			return fmt.Errorf("dbops: recording history for %s: %w", path, err)
		}
	}

	// Step 6: build the staging ANN.
	if err := stagingVectorIndex.Build(o.ANNTrees); err != nil {
		return fmt.Errorf("dbops: building staging ANN: %w", err)
	}
	run.ANNTrees = o.ANNTrees

	// Step 7: swap the live references under lock, then persist all four
	// files via temp+rename so concurrent readers always see a complete set.
	o.mu.Lock()
	o.vectorIndex = stagingVectorIndex
	o.bm25Index = stagingBM25
	o.metadata = stagingMetadata
	o.summaries = stagingSummaries
	o.ragEnabled = true
	o.mu.Unlock()

	if err := os.MkdirAll(o.DBDir, 0755); err != nil {
		return fmt.Errorf("dbops: creating db dir: %w", err)
	}
	if err := stagingVectorIndex.Save(o.annPath()); err != nil {
		return fmt.Errorf("dbops: saving ann index: %w", err)
	}
	if err := stagingMetadata.Save(o.metadataPath()); err != nil {
		return fmt.Errorf("dbops: saving metadata: %w", err)
	}
	if err := stagingBM25.Save(o.bm25Path()); err != nil {
		return fmt.Errorf("dbops: saving bm25 index: %w", err)
	}

	// Step 8: persist history (already incremental above), embeddings
	// cache, and summaries.
	if o.EmbedCache != nil {
		if err := o.EmbedCache.Flush(); err != nil {
			return fmt.Errorf("dbops: flushing embedding cache: %w", err)
		}
	}
	if err := stagingSummaries.Save(o.summaryPath()); err != nil {
		return fmt.Errorf("dbops: saving summaries: %w", err)
	}

	info, err := os.Stat(o.annPath())
	if err == nil {
		o.mu.Lock()
		o.lastDBModifiedTime = info.ModTime()
		o.mu.Unlock()
	}

	finished := time.Now()
	run.FinishedAt.Time = finished
	run.FinishedAt.Valid = true
	run.Success = true
	if _, err := o.Store.RecordIngestionRun(ctx, run); err != nil {
		slog.Warn("dbops: recording ingestion run failed", "error", err)
	}

	return nil
}

// cachedOrReembed looks up text's fingerprint in the embedding cache and
// only calls the embedding service on a miss, avoiding redundant network
// calls for chunks carried forward unchanged.
func (o *Orchestrator) cachedOrReembed(ctx context.Context, text string) ([]float32, error) {
	key := embedclient.FingerprintKey(text)
	if o.EmbedCache != nil {
		if v, ok := o.EmbedCache.Get(key); ok {
			return v, nil
		}
	}
	v, err := o.Embedder.Embed(ctx, text, false)
	if err != nil {
		return nil, err
	}
	if o.EmbedCache != nil {
		_ = o.EmbedCache.Put(key, v)
	}
	return v, nil
}

// ingestFile extracts, summarizes, chunks, and embeds one document,
// staging every chunk (plus a synthetic chunk_index=-1 summary chunk)
// into the given staging indices. Returns the number of chunks added.
func (o *Orchestrator) ingestFile(ctx context.Context, path string, vi *vectorindex.Store, bmIdx *bm25.Index, meta *MetadataStore, sums *SummaryStore) (int, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	result, err := o.Extractor.Extract(ctx, path, ext)
	if err != nil {
		return 0, fmt.Errorf("extracting text: %w", err)
	}
	text := result.Text()

	if err := os.MkdirAll(filepath.Join(o.DBDir, "text"), 0755); err != nil {
		return 0, fmt.Errorf("creating extracted-text dir: %w", err)
	}
	textPath := TextPath(o.DBDir, path)
	if err := os.WriteFile(textPath, []byte(text), 0644); err != nil {
		return 0, fmt.Errorf("persisting extracted text: %w", err)
	}

	var summary Summaries
	if o.Summarizer != nil {
		summary, err = o.Summarizer.Summarize(ctx, filepath.Base(path), text)
		if err != nil {
			slog.Warn("dbops: summarization failed, continuing without summary", "path", path, "error", err)
		} else {
			sums.Set(path, summary)
		}
	}

	chunks := o.Chunker.Chunk(text)

	added := 0
	for i, c := range chunks {
		cleaned := chunking.CleanForEmbedding(c.Text)
		if !chunking.IsValidChunk(cleaned) {
			continue
		}

		v, err := o.cachedOrReembed(ctx, cleaned)
		if err != nil {
			return added, fmt.Errorf("embedding chunk %d: %w", i, err)
		}

		uuid := newUUID()
		if err := vi.Add(uuid, v); err != nil {
			return added, fmt.Errorf("staging vector for chunk %d: %w", i, err)
		}
		bmIdx.Add(uuid, cleaned)
		meta.Add(ChunkMeta{
			UUID:                 uuid,
			DocumentPath:         path,
			ChunkIndex:           i,
			Text:                 cleaned,
			CharStart:            c.CharStart,
			CharEnd:              c.CharEnd,
			TokenCount:           c.TokenCount,
			EmbeddingFingerprint: embedclient.FingerprintKey(cleaned),
		})
		added++
	}

	if summary.Extended != "" {
		v, err := o.cachedOrReembed(ctx, summary.Extended)
		if err != nil {
			return added, fmt.Errorf("embedding summary chunk: %w", err)
		}
		uuid := newUUID()
		if err := vi.Add(uuid, v); err != nil {
			return added, fmt.Errorf("staging summary vector: %w", err)
		}
		bmIdx.Add(uuid, summary.Extended)
		meta.Add(ChunkMeta{
			UUID:                 uuid,
			DocumentPath:         path,
			ChunkIndex:           -1,
			Text:                 summary.Extended,
			EmbeddingFingerprint: embedclient.FingerprintKey(summary.Extended),
		})
		added++
	}

	return added, nil
}

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// TextPath returns the on-disk location of a document's extracted plain
// text, persisted during ingest for lazy re-reads during context
// expansion. It is a pure function of dbDir and documentPath so callers
// outside this package (the query orchestrator) can locate the file
// without holding a reference to the Orchestrator that wrote it.
func TextPath(dbDir, documentPath string) string {
	return filepath.Join(dbDir, "text", sha256Hex(documentPath)+".txt")
}
