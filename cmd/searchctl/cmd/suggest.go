package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/suggest"
)

func newSuggestCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "suggest <text>",
		Short: "Show the category and subcategory suggestions for some text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := suggest.Suggest(strings.Join(args, " "))
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			printSuggestions(cmd.OutOrStdout(), s)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output suggestions as JSON")
	return cmd
}
