package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newServeCmd creates the "scry-capture serve" subcommand.
func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background delivery",
		Long: "Loads configuration, opens storage, restores the outboxes, schedules\n" +
			"recurring sync windows and serves the HTTP API until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := loadApplication(ctx, opts.configPath)
			if err != nil {
				return err
			}
			defer app.cleanup()

			return app.serve(ctx)
		},
	}
}

// serve schedules background delivery and blocks in the HTTP server.
func (app *application) serve(ctx context.Context) error {
	router, err := app.setupRouter()
	if err != nil {
		return err
	}

	if err := app.delivery.ScheduleRecurringWindows(); err != nil {
		// Periodic and on-demand triggers still work.
		app.logger.Warn("failed to schedule sync windows", "error", err)
	}

	if interval := app.config.Schedule.ForegroundInterval; interval > 0 {
		go app.delivery.RunPeriodic(ctx, interval)
	}

	// Deliver anything left over from the previous run.
	app.delivery.TriggerDrainNow()

	return app.startHTTPServer(ctx, router)
}
