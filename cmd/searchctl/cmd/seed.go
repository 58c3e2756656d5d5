package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
)

func newSeedCmd(global *globalOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load documents from a JSON or YAML file into the SQLite content store",
		Long: `Load documents from a JSON or YAML file into the SQLite content store.
Documents are upserted by id, so seeding the same file twice is harmless.

Examples:
  searchctl seed corpus.yaml
  searchctl seed corpus.json --db /tmp/content.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.SQLite.Path
			}
			docs, err := content.LoadFile(args[0])
			if err != nil {
				return err
			}
			store, err := content.OpenSQLite(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Put(cmd.Context(), docs); err != nil {
				return err
			}
			slog.Info("seeded content store", "path", dbPath, "documents", len(docs))
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d document(s) into %s\n", len(docs), dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	return cmd
}
