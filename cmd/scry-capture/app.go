package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-capture/internal/capture"
	"github.com/phrazzld/scry-capture/internal/config"
	"github.com/phrazzld/scry-capture/internal/coordinator"
	"github.com/phrazzld/scry-capture/internal/credential"
	"github.com/phrazzld/scry-capture/internal/delivery"
	"github.com/phrazzld/scry-capture/internal/diag"
	"github.com/phrazzld/scry-capture/internal/events"
	"github.com/phrazzld/scry-capture/internal/platform/logger"
	"github.com/phrazzld/scry-capture/internal/platform/remote"
	"github.com/phrazzld/scry-capture/internal/store"
	"github.com/phrazzld/scry-capture/internal/syncclient"
)

// application holds the wired services of one host process.
type application struct {
	config    *config.Config
	logger    *slog.Logger
	store     store.KVStore
	scheduler *coordinator.TimerScheduler
	delivery  *delivery.Subsystem
	pipeline  *capture.Pipeline
	recall    *capture.RecallService

	closers []func() error
}

// loadApplication reads configuration, installs the default logger and
// builds the application.
func loadApplication(ctx context.Context, configPath string) (*application, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	return newApplication(ctx, cfg, log)
}

// newApplication opens storage and wires every service. On error everything
// already opened is closed.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (app *application, err error) {
	app = &application{config: cfg, logger: log}
	defer func() {
		if err != nil {
			app.cleanup()
			app = nil
		}
	}()

	kv, closeStore, err := openStorage(ctx, cfg.Storage, log)
	if err != nil {
		return app, err
	}
	app.store = kv
	app.closers = append(app.closers, closeStore)

	resolver, err := credential.NewChain(cfg.Remote, cfg.Auth, capture.HashUserID(cfg.Profile.UserID), log)
	if err != nil {
		return app, err
	}

	syncClient, err := syncclient.NewClient(cfg.Remote.BaseURL, resolver,
		syncclient.WithTimeout(cfg.Remote.RequestTimeout),
		syncclient.WithLogger(log))
	if err != nil {
		return app, fmt.Errorf("failed to create sync client: %w", err)
	}

	analysisClient, err := remote.NewClient(log, cfg.Remote, resolver, nil)
	if err != nil {
		return app, fmt.Errorf("failed to create analysis client: %w", err)
	}

	sink := diag.NewLogSink(log)
	emitter := events.NewRouter(log)

	library, err := capture.NewKVContentStore(kv, 0)
	if err != nil {
		return app, fmt.Errorf("failed to open capture library: %w", err)
	}

	app.pipeline, err = capture.NewPipeline(log, analysisClient, emitter,
		library,
		capture.ProfileFromConfig(cfg.Profile),
		capture.WithNotifier(capture.NewLogNotifier(log)),
		capture.WithSink(sink))
	if err != nil {
		return app, fmt.Errorf("failed to create capture pipeline: %w", err)
	}

	app.recall, err = capture.NewRecallService(log, analysisClient, emitter, sink)
	if err != nil {
		return app, fmt.Errorf("failed to create recall service: %w", err)
	}

	app.scheduler = coordinator.NewTimerScheduler(log)
	app.delivery, err = delivery.New(ctx, kv, syncClient, delivery.Options{
		Capacity:         cfg.Outbox.Capacity,
		PendingDeliverer: app.pipeline.DeliverPending,
		Scheduler:        app.scheduler,
		CoordinatorConfig: coordinator.Config{
			OpportunisticInterval: cfg.Schedule.OpportunisticInterval,
			ConstrainedInterval:   cfg.Schedule.ConstrainedInterval,
			WindowDuration:        cfg.Schedule.WindowDuration,
		},
		Sink:   sink,
		Logger: log,
	})
	if err != nil {
		return app, fmt.Errorf("failed to create delivery subsystem: %w", err)
	}
	if err := emitter.RegisterHandler(app.delivery); err != nil {
		return app, fmt.Errorf("failed to route events to delivery: %w", err)
	}

	log.Info("application initialized",
		"storage_driver", cfg.Storage.Driver,
		"outbox_capacity", cfg.Outbox.Capacity,
		"intervention_policy", cfg.Profile.InterventionPolicy,
		"learning_mode", cfg.Profile.LearningMode)
	return app, nil
}

// cleanup stops background work and releases storage. It is safe to call
// on a partially built application.
func (app *application) cleanup() {
	if app.delivery != nil {
		app.delivery.Close()
	}
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	if err := errors.Join(errs...); err != nil {
		app.logger.Error("cleanup failed", "error", err)
	}
}
