package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/phrazzld/scry-capture/internal/delivery"
	"github.com/spf13/cobra"
)

// newStatusCmd creates the "scry-capture status" subcommand.
func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show outbox lengths",
		Long:  "Restores every outbox from storage and prints its length, capacity\nand the age of its oldest entry. Nothing is delivered.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApplication(cmd.Context(), opts.configPath)
			if err != nil {
				return err
			}
			defer app.cleanup()

			status := app.delivery.Status()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}
			writeStatus(cmd.OutOrStdout(), status, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the status as JSON")
	return cmd
}

func writeStatus(out io.Writer, status delivery.Status, now time.Time) {
	for _, box := range status.Outboxes {
		line := fmt.Sprintf("%-16s %d/%d", box.Name, box.Length, box.Capacity)
		if box.Oldest != nil {
			line += fmt.Sprintf("  oldest %s ago", now.Sub(*box.Oldest).Truncate(time.Second))
		}
		if box.Dirty {
			line += "  (unsaved)"
		}
		fmt.Fprintln(out, line)
	}
}
