package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/auth/apikey"
)

func newKeygenCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an admin API key and its config entry",
		Long: `Generate a random admin API key. The raw key is printed once; the
config entry stores only its digest.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := apikey.GenerateKey()
			if err != nil {
				return fmt.Errorf("generating key: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "key: %s\n\n", key)
			fmt.Fprintln(out, "auth:")
			fmt.Fprintln(out, "  apiKeys:")
			fmt.Fprintf(out, "    - name: %s\n", name)
			fmt.Fprintf(out, "      key: %s%s\n", apikey.HashPrefix, apikey.HashKey(key))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "admin", "Name recorded with the key")
	return cmd
}
