package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(global *globalOptions) *cobra.Command {
	var top int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print corpus statistics and the most common terms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := buildPipeline(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer p.close()

			idx := p.engine.Current()
			stats := idx.Stats()
			terms := idx.TopTerms(top)
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"generation": idx.Generation(),
					"stats":      stats,
					"top_terms":  terms,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "documents:      %d\n", stats.DocCount)
			fmt.Fprintf(out, "tokens:         %d\n", stats.TotalTokens)
			fmt.Fprintf(out, "avg doc length: %.2f\n", stats.AvgDocLength)
			fmt.Fprintf(out, "distinct terms: %d\n", stats.TermCount)
			for _, t := range terms {
				fmt.Fprintf(out, "  %-20s %d\n", t.Term, t.DocFreq)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "Number of top terms to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
