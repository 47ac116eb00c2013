package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/logging"
	"github.com/docdex/docdex/internal/output"
	"github.com/docdex/docdex/internal/query"
)

// listOptions holds CLI flags for list.
type listOptions struct {
	tag    string
	format string
	root   string
}

func newListCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed documents",
		Long: `List every document under the root, or only those carrying a tag.

Tags come from the 'tags' field of a document's YAML front-matter and
match exactly (case-sensitive).

Examples:
  docdex list
  docdex list --tag architecture
  docdex list --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.tag, "tag", "t", "", "Only documents carrying this tag")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.root, "root", "", "Document root directory (default: project root or cwd)")

	return cmd
}

func runList(ctx context.Context, cmd *cobra.Command, opts listOptions) error {
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

	docs, err := session.dispatcher.ListDocuments(ctx, opts.tag)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		if opts.tag != "" {
			out.Status("", fmt.Sprintf("No documents tagged %q", opts.tag))
		} else {
			out.Status("", "No documents found")
		}
		return nil
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	return formatListText(out, opts.tag, docs)
}

func formatListText(out *output.Writer, tag string, docs []query.DocumentSummary) error {
	if tag != "" {
		out.Statusf("📄", "%d documents tagged %q:", len(docs), tag)
	} else {
		out.Statusf("📄", "%d documents:", len(docs))
	}
	out.Newline()

	for _, d := range docs {
		line := d.ID
		if d.Title != "" {
			line += " - " + d.Title
		}
		out.Status("", line)
		out.Statusf("", "   modified %s", d.LastModified.Format("2006-01-02 15:04"))
	}

	return nil
}
