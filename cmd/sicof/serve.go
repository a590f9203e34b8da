package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sicof/internal/cli"
	apphttp "sicof/internal/http"
	"sicof/internal/log"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	cfg, logger := app.Config, app.Logger
	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               cfg.Addr(),
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MetricsEnabled:     cfg.MetricsEnabled,
		TrustedProxies:     cfg.TrustedProxies,
	}, app.Services, app.Store, logger)
	if err != nil {
		return err
	}

	srv.ReadTimeout = 10 * time.Second
	// WriteTimeout stays unset: the obligation stream is long-lived and
	// every other route is bounded by the request timeout.
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting server",
		"addr", srv.Addr,
		"data_backend", cfg.DataBackend,
		"events_backend", cfg.EventsBackend,
		"timezone", cfg.Timezone)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed to start", log.FieldError, err, "addr", srv.Addr)
		return err
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}
