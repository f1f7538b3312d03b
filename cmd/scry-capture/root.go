package main

import (
	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

// newRootCmd creates the root scry-capture command with all subcommands attached.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "scry-capture",
		Short: "Durable capture and delivery host",
		Long: "scry-capture queues telemetry, recall scores, feedback and shared links\n" +
			"in durable outboxes and delivers them to the remote service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"path to a config file (defaults to ./config.yaml when present)")

	cmd.AddCommand(
		newServeCmd(opts),
		newDrainCmd(opts),
		newStatusCmd(opts),
	)
	return cmd
}
