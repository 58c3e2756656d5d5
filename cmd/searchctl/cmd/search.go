package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/parser"
)

type searchOptions struct {
	limit            int
	lexicalWeight    float64
	similarityWeight float64
	format           string
}

func newSearchCmd(global *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run one hybrid search",
		Long: `Run one hybrid search against a freshly built index.

Examples:
  searchctl search --corpus corpus.json "arsenal injury"
  searchctl search "nba finals" --limit 5 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer p.close()

			fopts := p.defaultOptions()
			if opts.limit > 0 {
				fopts.MaxResults = min(opts.limit, p.cfg.Search.MaxResults)
			}
			if cmd.Flags().Changed("lexical-weight") {
				fopts.LexicalWeight = opts.lexicalWeight
			}
			if cmd.Flags().Changed("similarity-weight") {
				fopts.SimilarityWeight = opts.similarityWeight
			}

			res, err := p.executor.Execute(cmd.Context(), parser.Parse(strings.Join(args, " ")), fopts)
			if err != nil {
				return err
			}
			if opts.format == "json" {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().Float64Var(&opts.lexicalWeight, "lexical-weight", 0, "Weight of the BM25 signal")
	cmd.Flags().Float64Var(&opts.similarityWeight, "similarity-weight", 0, "Weight of the similarity signal")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}
