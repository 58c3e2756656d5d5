// Package cmd provides the searchctl commands: one-shot search and suggest,
// index statistics, an interactive search-as-you-type loop, seeding the
// SQLite content store and admin key generation.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/logger"
)

// globalOptions are the persistent flags every subcommand reads.
type globalOptions struct {
	configPath string
	corpus     string
	logLevel   string
}

// NewRootCmd creates the root command for the searchctl CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "searchctl",
		Short: "Query the sports content search index from the terminal",
		Long: `searchctl builds the hybrid BM25 + similarity index in process and
runs searches against it, without the HTTP service.

The corpus comes from the configured source, or from --corpus when a JSON
or YAML file is given.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.SetupWriter(cmd.ErrOrStderr(), opts.logLevel, "text")
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&opts.corpus, "corpus", "", "Corpus file (.json/.yaml); overrides the configured source")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newSuggestCmd())
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newReplCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newKeygenCmd())

	return cmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
