package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/docdex/docdex/internal/async"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/query"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/internal/syncer"
	"github.com/docdex/docdex/internal/ui"
)

// oneshotSession is the in-process index built by one-shot commands
// (search, list, similar, get). The store and index are populated by a
// single scan; there is no watcher.
type oneshotSession struct {
	cfg        *config.Config
	dispatcher *query.Dispatcher
	docs       int
	close      func()
}

// openOneshot scans the root and builds a queryable session. The caller
// must invoke close when done.
func openOneshot(ctx context.Context, rootPath string) (*oneshotSession, error) {
	root := resolveRoot(rootPath)
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Root = absRoot

	st := store.NewDocumentStore()
	ix := index.New(index.Config{
		Fuzziness:  cfg.Search.Fuzziness,
		TitleBoost: cfg.Search.TitleBoost,
		BodyBoost:  cfg.Search.BodyBoost,
		TagBoost:   cfg.Search.TagBoost,
	})

	sync, err := syncer.New(cfg, st, ix, slog.Default())
	if err != nil {
		_ = ix.Close()
		return nil, fmt.Errorf("create syncer: %w", err)
	}

	// Scan feedback goes to stderr so stdout stays pipeable; pipes and
	// CI get nothing at all.
	renderer := ui.NewRenderer(ui.NewConfig(os.Stderr,
		ui.WithQuiet(!ui.IsTTY(os.Stderr)),
		ui.WithRootDir(absRoot)))
	_ = renderer.Start(ctx)
	renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageScanning,
		Message: "scanning " + absRoot,
	})

	started := time.Now()
	progress := async.NewSyncProgress()
	if err := sync.ScanOnce(ctx, progress); err != nil {
		renderer.AddError(ui.ErrorEvent{Err: err})
		_ = renderer.Stop()
		_ = ix.Close()
		return nil, fmt.Errorf("scan documents: %w", err)
	}

	snap := progress.Snapshot()
	renderer.Complete(ui.CompletionStats{
		Files:     snap.FilesProcessed,
		Documents: st.Len(),
		Duration:  time.Since(started),
	})
	_ = renderer.Stop()

	return &oneshotSession{
		cfg:        cfg,
		dispatcher: query.New(cfg, st, ix, slog.Default(), nil),
		docs:       st.Len(),
		close:      func() { _ = ix.Close() },
	}, nil
}
