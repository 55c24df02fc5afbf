package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"colabwize/api/internal/textmatch"
)

func newLocateCmd(opts *rootOptions) *cobra.Command {
	var (
		texts []string
		pos   int
	)
	cmd := &cobra.Command{
		Use:   "locate <file>",
		Short: "Map text fragments to editor positions",
		Long: `Locate finds each fragment in the file's editor document and prints the
position range an editor would highlight.

Examples:
  colabwize locate essay.md -t "prior work"
  colabwize locate essay.docx -t "shown" -t "results" --pos 120`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(texts) == 0 {
				return fmt.Errorf("at least one --text is required")
			}
			res, err := importFile(args[0])
			if err != nil {
				return err
			}

			locators := make([]textmatch.Locator, 0, len(texts))
			for i, text := range texts {
				loc := textmatch.Locator{ID: strconv.Itoa(i + 1), Text: text}
				if cmd.Flags().Changed("pos") {
					estimate := pos
					loc.EstimatedPos = &estimate
				}
				locators = append(locators, loc)
			}
			located := textmatch.Locate(res.Doc, locators)

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), located)
			}
			out := cmd.OutOrStdout()
			for _, l := range located {
				if !l.Found {
					fmt.Fprintf(out, "%q: not found\n", l.Text)
					continue
				}
				fmt.Fprintf(out, "%q: %d-%d (%d occurrences)\n", l.Text, l.Range.From, l.Range.To, l.Occurrences)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&texts, "text", "t", nil, "fragment to locate (repeatable)")
	cmd.Flags().IntVar(&pos, "pos", 0, "estimated position used to pick between occurrences")
	return cmd
}
