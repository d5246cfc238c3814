package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/scopeiq/internal/logger"
)

// rootOptions are the persistent flags shared by every subcommand
type rootOptions struct {
	configPath string
	dbPath     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "scopeiq",
		Short: "Hybrid semantic retrieval over construction documents",
		Long: `ScopeIQ splits construction documents into typed chunks, embeds them and
stores them in per-project and shared reference partitions.

Queries are classified as generic (codes, standards, safety, materials) or
project-specific (schedules, permits, contractors) and routed to the matching
partitions. Ambiguous queries fuse both sides by a configurable weight.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger.SetVerbose(opts.verbose)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $SCOPEIQ_CONFIG or ~/.scopeiq/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "database path (overrides config and $SCOPEIQ_DB_PATH)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging on stderr")

	cmd.AddCommand(
		newServeCmd(opts),
		newIngestCmd(opts),
		newSearchCmd(opts),
		newSmartCmd(opts),
		newClassifyCmd(),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
