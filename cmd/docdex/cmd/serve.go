package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/async"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/lockfile"
	"github.com/docdex/docdex/internal/logging"
	"github.com/docdex/docdex/internal/mcp"
	"github.com/docdex/docdex/internal/query"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/internal/syncer"
	"github.com/docdex/docdex/internal/telemetry"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	transport string
	root      string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the DocDex MCP server.

The server scans the document root, builds the search index, and keeps
both fresh by watching the filesystem. Queries are answered over the
Model Context Protocol on stdio.

The initial scan runs in the background so MCP clients get their
handshake response immediately; search results fill in as documents
are indexed.

stdout is reserved for JSON-RPC messages. All diagnostics go to
~/.docdex/logs/server.log (view with 'docdex-logs').`,
		Example: `  # Serve the current project over stdio
  docdex serve

  # Serve an explicit document root
  docdex serve --root ~/notes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.transport, "transport", "t", "stdio", "Transport protocol (stdio)")
	cmd.Flags().StringVar(&opts.root, "root", "", "Document root directory (default: project root or cwd)")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	root := resolveRoot(opts.root)
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Root = absRoot

	// MCP-safe logging MUST come before anything that could log: the
	// protocol owns stdout, and a stray log line there corrupts the
	// JSON-RPC stream.
	logCleanup, err := logging.SetupMCPModeWithLevel(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logCleanup()

	if opts.transport == "stdio" {
		if err := verifyStdinForMCP(); err != nil {
			return err
		}
	}

	// One server per root. A second serve against the same root would
	// double-watch the tree and fight over index rebuilds.
	lock := lockfile.ForRoot(filepath.Join(logging.DefaultStateDir(), "locks"), absRoot)
	acquired, err := lock.TryAcquire()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("another docdex server is already watching %s", absRoot)
	}
	defer func() { _ = lock.Release() }()

	// First-run setups may point at a notes dir that does not exist
	// yet; an empty root is servable, a missing one is not.
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return fmt.Errorf("create root: %w", err)
	}

	slog.Info("Starting DocDex server",
		slog.String("root", absRoot),
		slog.String("transport", opts.transport))

	st := store.NewDocumentStore()
	ix := index.New(index.Config{
		Fuzziness:  cfg.Search.Fuzziness,
		TitleBoost: cfg.Search.TitleBoost,
		BodyBoost:  cfg.Search.BodyBoost,
		TagBoost:   cfg.Search.TagBoost,
	})
	defer func() { _ = ix.Close() }()

	sync, err := syncer.New(cfg, st, ix, slog.Default())
	if err != nil {
		return fmt.Errorf("create syncer: %w", err)
	}

	// Query telemetry persists to SQLite under the state dir.
	var metrics *telemetry.QueryMetrics
	if cfg.Telemetry.Enabled {
		metricsStore, err := telemetry.OpenSQLiteMetricsStore(cfg.TelemetryDBPath())
		if err != nil {
			// Telemetry failure never blocks serving
			slog.Warn("Telemetry store unavailable", slog.String("error", err.Error()))
		} else {
			metrics = telemetry.NewQueryMetrics(metricsStore)
			defer func() { _ = metrics.Close() }()
		}
	}

	// A nil *QueryMetrics must not be handed to the dispatcher as a
	// non-nil Recorder interface.
	var recorder query.Recorder
	if metrics != nil {
		recorder = metrics
	}
	dispatcher := query.New(cfg, st, ix, slog.Default(), recorder)

	server, err := mcp.NewServer(dispatcher, st, ix, cfg, absRoot)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}
	defer func() { _ = server.Close() }()

	// Run the sync in the background so the MCP handshake is served
	// while the initial scan is still populating the store.
	bg := async.NewBackgroundSyncer()
	bg.SyncFunc = sync.Run
	bg.Start(ctx)
	defer bg.Stop()

	server.SetSyncProgress(bg.Progress())
	server.SetWatcherType(sync.WatcherType)
	if metrics != nil {
		server.SetMetrics(metrics)
	}

	// Resources want a complete snapshot, so registration waits for the
	// initial scan. The sync goroutine runs for the server's lifetime
	// (it keeps watching after the scan), so poll the progress tracker
	// instead of waiting for it to exit.
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for bg.Progress().IsSyncing() {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
		if bg.Progress().Snapshot().Status != string(async.StatusReady) {
			return
		}
		if err := server.RegisterResources(ctx); err != nil {
			slog.Warn("Failed to register resources", slog.String("error", err.Error()))
		}
	}()

	return server.Serve(ctx, opts.transport, "")
}

// verifyStdinForMCP rejects interactive terminals. The stdio transport
// expects a JSON-RPC client on the other end of the pipe; a human at a
// terminal gets a pointer to the CLI commands instead of a hung server.
func verifyStdinForMCP() error {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("stdin is a terminal: the MCP server expects a JSON-RPC client on stdin\n" +
			"Use 'docdex search <query>' for interactive queries, or configure your\n" +
			"MCP client to launch 'docdex serve'")
	}
	return nil
}
