package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/logging"
)

// getOptions holds CLI flags for get.
type getOptions struct {
	format string
	root   string
}

func newGetCmd() *cobra.Command {
	var opts getOptions

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print one document",
		Long: `Print a document's normalized content.

The id is the document's path relative to the root. Text output prints
the plain-text content; JSON output includes title, front-matter
metadata, and the modification time.

Examples:
  docdex get guides/deploy.md
  docdex get guides/deploy.md --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.root, "root", "", "Document root directory (default: project root or cwd)")

	return cmd
}

func runGet(ctx context.Context, cmd *cobra.Command, id string, opts getOptions) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if _, cleanup, err := logging.Setup(logCfg); err == nil {
		defer cleanup()
	}

	session, err := openOneshot(ctx, opts.root)
	if err != nil {
		return err
	}
	defer session.close()

	doc, err := session.dispatcher.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	// Plain content to stdout, nothing else: keeps 'docdex get' pipeable.
	fmt.Fprintln(cmd.OutOrStdout(), doc.Content)
	return nil
}
