package main

import (
	"context"
	"errors"
	"os"
	"time"

	"tesouraria/internal/cli"
	applog "tesouraria/internal/log"
	"tesouraria/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("tesouraria-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	app := cli.InitBackend(context.Background(), logger, cfg)

	wcfg := worker.DefaultConfig()
	wcfg.BatchSize = cfg.LedgerBatchSize
	wcfg.ExportInterval = cfg.ExportInterval
	w := worker.New(app.Ledger, app.Organization, app.Treasury, app.Reports, wcfg, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := w.Stop(ctx); err != nil {
			logger.Error("Worker stop error", applog.FieldError, err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Backend close error", applog.FieldError, err)
		}
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start worker", applog.FieldError, err)
		_ = app.Close()
		os.Exit(1)
	}

	if app.AMQP != nil {
		go func() {
			err := app.AMQP.ConsumePaymentEvents(ctx, w.HandlePaymentEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Payment event consumption stopped", applog.FieldError, err)
			}
		}()
		logger.Info("Consuming payment events")
	} else {
		logger.Info("AMQP disabled, relying on the periodic ledger sweep")
	}

	logger.Info("Starting tesouraria-worker",
		"batch_size", wcfg.BatchSize,
		"export_interval", wcfg.ExportInterval.String(),
		"reports_enabled", app.Reports != nil)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
