// Package syncer keeps the document store and search index consistent
// with the filesystem. It owns the revision counter that makes
// last-write-wins follow true event recency: every accepted event gets a
// revision before its file read starts, and the store discards writes
// whose revision is older than what it already applied.
package syncer

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/docdex/docdex/internal/async"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/normalize"
	"github.com/docdex/docdex/internal/scanner"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/internal/watcher"
)

// Syncer discovers documents on startup and applies filesystem events to
// the store, rebuilding the index once per delivered batch. It is the
// store's single writer.
type Syncer struct {
	root    string
	cfg     *config.Config
	store   *store.DocumentStore
	index   *index.Index
	scanner *scanner.Scanner
	logger  *slog.Logger

	watch *watcher.HybridWatcher
	rev   atomic.Uint64
}

// New creates a Syncer for the configured root. The root must exist.
func New(cfg *config.Config, st *store.DocumentStore, ix *index.Index, logger *slog.Logger) (*Syncer, error) {
	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	sc, err := scanner.New(scanner.Rules{
		Extensions:  lowercase(cfg.Documents.Extensions),
		ExcludeDirs: cfg.Documents.ExcludeDirs,
		MaxFileSize: cfg.Documents.MaxFileSizeBytes(),
	})
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Syncer{
		root:    absRoot,
		cfg:     cfg,
		store:   st,
		index:   ix,
		scanner: sc,
		logger:  logger,
	}, nil
}

func lowercase(exts []string) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = strings.ToLower(e)
	}
	return out
}

// Root returns the absolute document root.
func (s *Syncer) Root() string {
	return s.root
}

// WatcherType reports which watching mechanism is active, or "none"
// before Run starts the watcher.
func (s *Syncer) WatcherType() string {
	if s.watch == nil {
		return "none"
	}
	return s.watch.WatcherType()
}

// nextRev allocates the next revision. Called at event acceptance, never
// after the file read, so slower reads carry older revisions.
func (s *Syncer) nextRev() uint64 {
	return s.rev.Add(1)
}

// Run performs the initial scan and then consumes watcher batches until
// ctx is cancelled. The watcher starts before the scan so no change
// window is missed; revision ordering resolves scan/event races.
func (s *Syncer) Run(ctx context.Context, progress *async.SyncProgress) error {
	w, err := watcher.NewHybridWatcher(watcher.Options{
		DebounceWindow:  s.cfg.Watch.DebounceDuration(),
		PollInterval:    s.cfg.Watch.PollDuration(),
		EventBufferSize: s.cfg.Watch.BufferSize,
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	s.watch = w
	defer func() { _ = w.Stop() }()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- w.Start(ctx, s.root)
	}()

	if err := s.ScanOnce(ctx, progress); err != nil {
		return err
	}
	if progress != nil {
		progress.SetReady()
	}

	s.logger.Info("initial sync complete",
		slog.Int("documents", s.store.Len()),
		slog.String("watcher", w.WatcherType()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-watchDone:
			if err != nil && err != context.Canceled {
				return fmt.Errorf("watcher stopped: %w", err)
			}
			return err
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			s.applyBatch(ctx, batch)
		case werr, ok := <-w.Errors():
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", slog.String("error", werr.Error()))
		}
	}
}

// ScanOnce enumerates the root, populates the store, and rebuilds the
// index exactly once. Used by Run for the initial sync and by one-shot
// CLI commands that have no watcher.
func (s *Syncer) ScanOnce(ctx context.Context, progress *async.SyncProgress) error {
	results, err := s.scanner.Scan(ctx, s.root)
	if err != nil {
		return fmt.Errorf("scan root: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case result, ok := <-results:
					if !ok {
						return nil
					}
					if result.Error != nil {
						s.logger.Warn("scan error", slog.String("error", result.Error.Error()))
						continue
					}
					// Revision before read; a concurrent watcher event for
					// the same path accepted later carries a higher one.
					s.syncFile(result.File.Path, s.nextRev())
					if progress != nil {
						progress.FileProcessed()
					}
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if progress != nil {
		progress.SetStage(async.StageIndexing)
	}
	if err := s.index.Rebuild(ctx, s.store.Snapshot()); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	return nil
}

// applyBatch applies one debounced event batch, then rebuilds once.
func (s *Syncer) applyBatch(ctx context.Context, batch []watcher.FileEvent) {
	rescan := false
	for _, ev := range batch {
		switch ev.Operation {
		case watcher.OpGitignoreChange:
			rescan = true
		case watcher.OpCreate, watcher.OpModify:
			if ev.IsDir {
				// A moved-in directory delivers one event for its root;
				// the files inside never get their own.
				s.syncTree(ev.Path)
				continue
			}
			if !s.rules().EligiblePath(ev.Path) {
				continue
			}
			s.syncFile(ev.Path, s.nextRev())
		case watcher.OpDelete, watcher.OpRename:
			s.removePath(ev.Path)
		}
	}

	if rescan {
		s.logger.Info("gitignore changed, rescanning root")
		s.scanner.InvalidateGitignoreCache()
		if err := s.Rescan(ctx); err != nil && err != context.Canceled {
			s.logger.Error("rescan failed", slog.String("error", err.Error()))
		}
		return
	}

	if err := s.index.Rebuild(ctx, s.store.Snapshot()); err != nil && err != context.Canceled {
		s.logger.Error("index rebuild failed", slog.String("error", err.Error()))
	}
}

// Rescan clears the store and re-enumerates the root from scratch. The
// clear revision floors out in-flight writes from before the rescan.
func (s *Syncer) Rescan(ctx context.Context) error {
	s.store.Clear(s.nextRev())
	return s.ScanOnce(ctx, nil)
}

// syncFile reads, normalizes and upserts one document. A failed read is
// equivalent to a removal: the file vanished between notification and
// read, or became unreadable, and the next event for the path will
// supersede this one anyway.
func (s *Syncer) syncFile(relPath string, rev uint64) {
	absPath := filepath.Join(s.root, filepath.FromSlash(relPath))

	info, err := os.Stat(absPath)
	if err != nil {
		s.removeStale(relPath, rev, err)
		return
	}
	if info.IsDir() {
		return
	}
	if info.Size() > s.rules().MaxSize() {
		s.logger.Warn("skipping oversized document",
			slog.String("id", relPath),
			slog.Int64("size", info.Size()))
		s.store.Remove(relPath, rev)
		return
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		s.removeStale(relPath, rev, err)
		return
	}
	if isBinary(raw) {
		s.store.Remove(relPath, rev)
		return
	}

	meta, body := normalize.SplitFrontMatter(raw)
	plain, tokens := normalize.Normalize(body)
	doc := store.Document{
		Title:        normalize.ExtractTitle(relPath, meta, body),
		PlainText:    plain,
		Metadata:     meta,
		LastModified: info.ModTime(),
		Tokens:       tokens,
	}

	if s.store.Upsert(relPath, doc, rev) {
		s.logger.Debug("document synced", slog.String("id", relPath), slog.Uint64("rev", rev))
	} else {
		s.logger.Debug("stale write discarded", slog.String("id", relPath), slog.Uint64("rev", rev))
	}
}

// removeStale degrades a failed read into a removal with the read's own
// revision.
func (s *Syncer) removeStale(relPath string, rev uint64, cause error) {
	s.logger.Warn("document read failed, treating as removed",
		slog.String("id", relPath),
		slog.String("error", cause.Error()))
	s.store.Remove(relPath, rev)
}

// removePath removes the document at relPath and, when the path was a
// directory, every document under it. Deleted paths cannot be stat'ed,
// so the prefix sweep covers both cases.
func (s *Syncer) removePath(relPath string) {
	s.store.Remove(relPath, s.nextRev())

	prefix := relPath + "/"
	for _, doc := range s.store.Snapshot() {
		if strings.HasPrefix(doc.ID, prefix) {
			s.store.Remove(doc.ID, s.nextRev())
		}
	}
}

// syncTree walks a directory that appeared wholesale and syncs every
// eligible file inside it.
func (s *Syncer) syncTree(relDir string) {
	absDir := filepath.Join(s.root, filepath.FromSlash(relDir))
	_ = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if s.rules().ExcludedDir(d.Name()) && path != absDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !s.rules().EligiblePath(rel) {
			return nil
		}
		s.syncFile(rel, s.nextRev())
		return nil
	})
}

func (s *Syncer) rules() scanner.Rules {
	return s.scanner.Rules()
}

// isBinary reports whether content sniffs as binary.
func isBinary(content []byte) bool {
	n := len(content)
	if n > 512 {
		n = 512
	}
	return bytes.Contains(content[:n], []byte{0})
}
