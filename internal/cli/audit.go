package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"colabwize/api/internal/audit"
	"colabwize/api/internal/config"
)

func newAuditCmd(opts *rootOptions) *cobra.Command {
	var (
		style  string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "audit <file>",
		Short: "Run a citation audit through the audit backend",
		Long: `Audit builds the citation audit request for the file and sends it to the
backend named by AUDIT_BACKEND_URL, authenticating with AUDIT_API_KEY.
With --dry-run the request is printed instead of sent.

Examples:
  colabwize audit essay.md
  colabwize audit essay.docx --style chicago
  colabwize audit essay.md --dry-run --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := audit.ParseStyle(style)
			if err != nil {
				return err
			}
			res, err := importFile(args[0])
			if err != nil {
				return err
			}
			if dryRun {
				return printJSON(cmd.OutOrStdout(), audit.BuildRequest(res.Doc, parsed))
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			client, err := audit.NewClient(cfg.AuditBackendURL, cfg.AuditAPIKey, cfg.AuditTimeout, audit.WithLogger(opts.logger))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.AuditTimeout)
			defer cancel()
			result := audit.NewRunner(client, opts.logger).Run(ctx, res.Doc, parsed)

			if opts.jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				printAuditResult(cmd.OutOrStdout(), result)
			}
			if result.State.Failed() {
				return fmt.Errorf("audit %s", result.State)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&style, "style", "apa", "citation style: apa, mla, ieee or chicago")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the request without sending it")
	return cmd
}

func printAuditResult(w io.Writer, r audit.Result) {
	fmt.Fprintln(w, audit.UserFriendlyMessage(r))
	for _, f := range r.Violations {
		if f.Anchor != nil {
			fmt.Fprintf(w, "  [%s] %s (%q at %d-%d)\n", f.RuleID, f.Message, f.Anchor.Text, f.Anchor.Start, f.Anchor.End)
			continue
		}
		fmt.Fprintf(w, "  [%s] %s\n", f.RuleID, f.Message)
	}
	if r.QuotaInfo != nil {
		fmt.Fprintf(w, "  quota %d/%d, resets %s\n", r.QuotaInfo.Used, r.QuotaInfo.Limit, r.QuotaInfo.ResetTime)
	}
}
