package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/logging"
	"github.com/docdex/docdex/internal/output"
)

// similarOptions holds CLI flags for similar.
type similarOptions struct {
	limit  int
	format string
	root   string
}

func newSimilarCmd() *cobra.Command {
	var opts similarOptions

	cmd := &cobra.Command{
		Use:   "similar <id>",
		Short: "Find documents similar to one document",
		Long: `Rank documents by token overlap with the given document.

The id is the document's path relative to the root. Similarity is the
Jaccard coefficient over lower-cased word tokens, so shared vocabulary
drives the ranking, not phrasing.

Examples:
  docdex similar guides/deploy.md
  docdex similar guides/deploy.md --limit 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimilar(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.root, "root", "", "Document root directory (default: project root or cwd)")

	return cmd
}

func runSimilar(ctx context.Context, cmd *cobra.Command, id string, opts similarOptions) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if _, cleanup, err := logging.Setup(logCfg); err == nil {
		defer cleanup()
	}

	out := output.New(cmd.OutOrStdout())

	session, err := openOneshot(ctx, opts.root)
	if err != nil {
		return err
	}
	defer session.close()

	results, err := session.dispatcher.FindSimilar(ctx, id, opts.limit)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		out.Statusf("", "No documents similar to %s", id)
		return nil
	}

	out.Statusf("🔗", "Documents similar to %s:", id)
	out.Newline()
	for i, r := range results {
		out.Statusf("", "%d. %s (similarity: %.3f)", i+1, r.ID, r.Score)
		if r.Title != "" {
			out.Status("", "   "+r.Title)
		}
	}

	return nil
}
