package cli

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"colabwize/api/internal/citescan"
)

type scanReport struct {
	Path       string             `json:"path"`
	Title      string             `json:"title"`
	Stats      citescan.Stats     `json:"stats"`
	References []string           `json:"references"`
	Mentions   []citescan.Mention `json:"mentions"`
	Error      string             `json:"error,omitempty"`
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var failOnOrphan bool
	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Classify inline citations as linked or orphan",
		Long: `Scan reports every (Author, Year) citation in each file and whether its
author appears in the reference list.

Examples:
  colabwize scan essay.md
  colabwize scan drafts --exclude "**/old/**"
  colabwize scan "**/*.docx" --fail-on-orphan`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandPaths(args, opts.excludes)
			if err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			if len(files) > 1 && !opts.jsonOutput {
				bar = progressbar.NewOptions(len(files),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription("Scanning"),
					progressbar.OptionClearOnFinish(),
				)
			}

			reports := make([]scanReport, 0, len(files))
			orphans := 0
			for _, path := range files {
				reports = append(reports, scanFile(path, opts.logger))
				orphans += reports[len(reports)-1].Stats.Orphan
				if bar != nil {
					_ = bar.Add(1)
				}
			}
			if bar != nil {
				_ = bar.Finish()
			}

			if opts.jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), reports); err != nil {
					return err
				}
			} else {
				printScanReports(cmd.OutOrStdout(), reports)
			}
			if failOnOrphan && orphans > 0 {
				return fmt.Errorf("%d orphan citations", orphans)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnOrphan, "fail-on-orphan", false, "exit non-zero when any citation is orphaned")
	return cmd
}

func scanFile(path string, logger *zap.Logger) scanReport {
	res, err := importFile(path)
	if err != nil {
		logger.Warn("import failed", zap.String("path", path), zap.Error(err))
		return scanReport{Path: path, Error: err.Error()}
	}
	result := citescan.Scan(res.Doc)
	logger.Debug("scanned", zap.String("path", path), zap.Int("mentions", len(result.Mentions)))
	return scanReport{
		Path:       path,
		Title:      res.Title,
		Stats:      result.Stats(),
		References: result.References,
		Mentions:   result.Mentions,
	}
}

func printScanReports(w io.Writer, reports []scanReport) {
	for _, r := range reports {
		if r.Error != "" {
			fmt.Fprintf(w, "%s: error: %s\n", r.Path, r.Error)
			continue
		}
		fmt.Fprintf(w, "%s: %d linked, %d orphan\n", r.Path, r.Stats.Linked, r.Stats.Orphan)
		for _, m := range r.Mentions {
			if m.Status == citescan.StatusOrphan {
				fmt.Fprintf(w, "  orphan %s at %d-%d\n", m.Text, m.Range.From, m.Range.To)
			}
		}
	}
}
