// Package cli implements the colabwize command line tool, which runs the
// citation scanner, position mapper and audit backend against local files.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	jsonOutput bool
	verbose    bool
	excludes   []string
	logger     *zap.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "colabwize",
		Short: "Citation tooling for academic drafts",
		Long: `colabwize checks the citations of local drafts without the editor.

Files may be .txt, .md, .html, .pdf or .docx. Paths accept ** globs.

Example usage:
  colabwize scan "drafts/**/*.md"          # Linked and orphan citations
  colabwize locate essay.docx -t "prior"   # Editor positions of a fragment
  colabwize audit essay.md --style mla     # Send to the audit backend`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.verbose {
				opts.logger = zap.NewNop()
				return nil
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			opts.logger = logger
			return nil
		},
	}
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	cmd.PersistentFlags().StringSliceVar(&opts.excludes, "exclude", nil, "glob patterns to skip")

	cmd.AddCommand(newScanCmd(opts), newLocateCmd(opts), newAuditCmd(opts))
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
