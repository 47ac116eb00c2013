package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/logging"
	"github.com/docdex/docdex/internal/output"
	"github.com/docdex/docdex/internal/query"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	format string // "text", "json"
	root   string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the document index",
		Long: `Search the document root with fuzzy full-text matching.

Builds an in-memory index from a fresh scan, runs the query, and
prints ranked results. Title matches rank above body matches, body
matches above tag matches; each query term tolerates small typos.

Examples:
  docdex search "release checklist"
  docdex search "deploy" --limit 3
  docdex search "meeting notes" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, q, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.root, "root", "", "Document root directory (default: project root or cwd)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, q string, opts searchOptions) error {
	// File logging only; stdout belongs to the results.
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if _, cleanup, err := logging.Setup(logCfg); err == nil {
		defer cleanup()
	}

	slog.Info("search_started", slog.String("query", q), slog.Int("limit", opts.limit))
	out := output.New(cmd.OutOrStdout())

	session, err := openOneshot(ctx, opts.root)
	if err != nil {
		return err
	}
	defer session.close()

	results, err := session.dispatcher.Search(ctx, q, opts.limit)
	if err != nil {
		return err
	}
	slog.Info("search_complete", slog.Int("results", len(results)))

	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", q))
		return nil
	}

	switch opts.format {
	case "json":
		return formatSearchJSON(cmd, results)
	default:
		return formatSearchText(out, q, results)
	}
}

// formatSearchText outputs results in human-readable format.
func formatSearchText(out *output.Writer, q string, results []query.SearchResult) error {
	out.Statusf("🔍", "Found %d results for %q:", len(results), q)
	out.Newline()

	for i, r := range results {
		out.Statusf("", "%d. %s (score: %.3f)", i+1, r.ID, r.Score)
		if r.Title != "" {
			out.Status("", "   "+r.Title)
		}
		if r.Excerpt != "" {
			out.Status("", "   "+r.Excerpt)
		}
		if len(r.Tags) > 0 {
			out.Status("", "   tags: "+strings.Join(r.Tags, ", "))
		}
		out.Newline()
	}

	return nil
}

// formatSearchJSON outputs results in JSON format.
func formatSearchJSON(cmd *cobra.Command, results []query.SearchResult) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
