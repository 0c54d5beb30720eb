package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tesouraria/internal/cli"
	apphttp "tesouraria/internal/http"
	applog "tesouraria/internal/log"
	"tesouraria/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("tesouraria")
	cfg := cli.LoadAndValidateConfig(logger)

	app := cli.InitBackend(context.Background(), logger, cfg)

	rl := ratelimit.DefaultConfig()
	rl.RequestsPerSecond = cfg.RateLimitRPS
	rl.Burst = cfg.RateLimitBurst

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Organization: app.Organization,
		Members:      app.Members,
		Payments:     app.Payments,
		Treasury:     app.Treasury,
		Ledger:       app.Ledger,
		Events:       app.Events,
		Dashboard:    app.Dashboard,
		Address:      app.Address,
	}, apphttp.Options{
		RateLimit: rl,
		Ready:     app.Repo.Ping,
	}, logger)
	if err != nil {
		logger.Error("Failed to configure HTTP server", applog.FieldError, err)
		_ = app.Close()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Backend close error", applog.FieldError, err)
		}
	})

	logger.Info("Starting tesouraria server",
		"port", cfg.Port,
		"amqp_enabled", app.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		_ = app.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
