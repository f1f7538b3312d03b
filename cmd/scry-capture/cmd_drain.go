package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/phrazzld/scry-capture/internal/delivery"
	"github.com/spf13/cobra"
)

// newDrainCmd creates the "scry-capture drain" subcommand.
func newDrainCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Deliver every outbox once and exit",
		Long: "Runs a single drain of all outboxes, prints what was delivered and\n" +
			"exits non-zero when any outbox stopped on a failure.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			app, err := loadApplication(ctx, opts.configPath)
			if err != nil {
				return err
			}
			defer app.cleanup()

			return app.drainOnce(ctx, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "give up after this long (0 disables)")
	return cmd
}

// drainOnce triggers a drain, waits for it and writes a per-outbox summary.
func (app *application) drainOnce(ctx context.Context, out io.Writer) error {
	tok := app.delivery.TriggerDrainNow()
	if err := tok.Wait(ctx); err != nil && ctx.Err() != nil {
		tok.Cancel()
		return fmt.Errorf("drain: %w", ctx.Err())
	}

	status := app.delivery.Status()
	writeDrainSummary(out, status)

	if err := tok.Err(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}

func writeDrainSummary(out io.Writer, status delivery.Status) {
	for _, box := range status.Outboxes {
		result, ok := status.LastDrain[box.Name]
		switch {
		case !ok:
			fmt.Fprintf(out, "%-16s not drained, %d queued\n", box.Name, box.Length)
		case result.Error != "":
			fmt.Fprintf(out, "%-16s delivered %d, %d queued, stopped: %s\n",
				box.Name, result.Delivered, box.Length, result.Error)
		default:
			fmt.Fprintf(out, "%-16s delivered %d, %d queued\n", box.Name, result.Delivered, box.Length)
		}
	}
}
