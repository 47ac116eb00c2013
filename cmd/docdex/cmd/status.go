package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/logging"
	"github.com/docdex/docdex/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool
	var rootPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health and status",
		Long: `Display information about the document index including:
  - Document root and document count (from a fresh scan)
  - Index readiness
  - Watcher status
  - Telemetry database location and size
  - Log file location`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, rootPath, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&rootPath, "root", "", "Document root directory (default: project root or cwd)")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, rootPath string, jsonOutput bool) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if _, cleanup, err := logging.Setup(logCfg); err == nil {
		defer cleanup()
	}

	info, err := collectStatus(ctx, rootPath)
	if err != nil {
		return err
	}

	noColor := ui.DetectNoColor()
	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor)

	if jsonOutput {
		return renderer.RenderJSON(info)
	}

	return renderer.Render(info)
}

// collectStatus scans the root and assembles the status report. The
// scan is the source of truth: the index is process-resident, so a
// one-shot command cannot inspect a running server's copy.
func collectStatus(ctx context.Context, rootPath string) (ui.StatusInfo, error) {
	session, err := openOneshot(ctx, rootPath)
	if err != nil {
		return ui.StatusInfo{}, err
	}
	defer session.close()

	info := ui.StatusInfo{
		RootPath:       session.cfg.Root,
		TotalDocuments: session.docs,
		LastIndexed:    time.Now(),
		IndexStatus:    "ready",
		WatcherStatus:  "none",
		LogPath:        logging.DefaultLogPath(),
	}

	if session.cfg.Telemetry.Enabled {
		info.MetricsDBPath = session.cfg.TelemetryDBPath()
		info.MetricsDBSize = getFileSize(info.MetricsDBPath)
	}

	return info, nil
}

// getFileSize returns the size of a file in bytes.
func getFileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
