package dbops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voidtrace/ragcore/bm25"
	"github.com/voidtrace/ragcore/vectorindex"
)

// pollInterval is how often the background task checks the ANN file's
// mtime for a change written by another process.
const pollInterval = 60 * time.Second

// reloadState's requested flag is set by RequestReload (the
// platform-equivalent of a SIGUSR1 handler) and cleared once the
// background task services it.
type reloadState struct {
	requested int32
	mu        sync.Mutex // reload lock: serializes concurrent reload attempts
}

// RequestReload sets the reload-requested flag; the next poll tick (or an
// explicit TryReload call) picks it up. Safe to call from a signal handler.
func (o *Orchestrator) RequestReload() {
	o.reload().setRequested()
}

func (o *Orchestrator) reload() *reloadState {
	o.reloadOnce.Do(func() { o.reloadSt = &reloadState{} })
	return o.reloadSt
}

func (s *reloadState) setRequested()   { atomic.StoreInt32(&s.requested, 1) }
func (s *reloadState) clearRequested() { atomic.StoreInt32(&s.requested, 0) }
func (s *reloadState) isRequested() bool {
	return atomic.LoadInt32(&s.requested) == 1
}

// RunReloadLoop polls the ANN file's mtime every pollInterval and services
// any pending RequestReload flag, until ctx is cancelled. Intended to run
// as a single long-lived background goroutine per process.
func (o *Orchestrator) RunReloadLoop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.TryReload(ctx); err != nil {
				slog.Warn("dbops: hot reload check failed", "error", err)
			}
		}
	}
}

// TryReload checks whether the on-disk ANN file's mtime is newer than the
// last load, or whether a reload has been explicitly requested, and if so
// reloads every index file and atomically swaps the live references.
// Queries concurrent with a reload keep using the old references (held via
// Acquire) until they finish; the next Acquire after the swap sees the new
// ones.
func (o *Orchestrator) TryReload(ctx context.Context) error {
	st := o.reload()

	info, err := os.Stat(o.annPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("dbops: statting ann file: %w", err)
	}

	o.mu.RLock()
	staleMtime := info.ModTime().After(o.lastDBModifiedTime)
	o.mu.RUnlock()

	if !staleMtime && !st.isRequested() {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.clearRequested()

	vi, err := vectorindex.Load(o.annPath())
	if err != nil {
		return fmt.Errorf("dbops: reloading vector index: %w", err)
	}
	bmIdx, err := bm25.Load(o.bm25Path())
	if err != nil {
		return fmt.Errorf("dbops: reloading bm25 index: %w", err)
	}
	meta, err := LoadMetadataStore(o.metadataPath())
	if err != nil {
		return fmt.Errorf("dbops: reloading chunk metadata: %w", err)
	}
	sums, err := LoadSummaryStore(o.summaryPath())
	if err != nil {
		slog.Warn("dbops: no summaries found on reload, starting empty", "error", err)
		sums = NewSummaryStore()
	}

	refreshedInfo, err := os.Stat(o.annPath())
	if err != nil {
		return fmt.Errorf("dbops: statting ann file after reload: %w", err)
	}

	o.mu.Lock()
	o.vectorIndex = vi
	o.bm25Index = bmIdx
	o.metadata = meta
	o.summaries = sums
	o.ragEnabled = true
	o.lastDBModifiedTime = refreshedInfo.ModTime()
	o.mu.Unlock()

	slog.Info("dbops: hot reload applied", "ann_mtime", refreshedInfo.ModTime())
	return nil
}
