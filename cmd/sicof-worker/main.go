// Command sicof-worker mirrors the reports into a Google spreadsheet,
// rewriting the tabs whenever a domain event arrives on the AMQP queue.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"sicof/internal/amqp"
	"sicof/internal/backend"
	"sicof/internal/cache"
	"sicof/internal/cli"
	"sicof/internal/config"
	"sicof/internal/log"
	gsheet "sicof/internal/sheets/google"
	"sicof/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "TOML configuration file (default $"+config.ConfigFileEnv+")")
	flag.Parse()

	cli.LoadEnvFile()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.New(log.DefaultConfig()).Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)
	logger.Info("Starting sicof-worker")

	// The worker always needs the broker and the spreadsheet, whatever
	// EVENTS_BACKEND the API uses.
	problems := cfg.ValidateAMQP()
	problems = append(problems, cfg.ValidateSheets()...)
	if err := errors.Join(cfg.Validate(), config.Join(problems)); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	res, err := backend.NewFactory(logger).CreateStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	caches := cache.NewManager()
	caches.Register(sheetsClient.SheetIDCache())
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer amqpClient.Close()

	reportWorker := worker.NewReportWorker(res.Store, sheetsClient, logger)

	// Events lost while the worker was down are covered here.
	if err := reportWorker.StartupSync(ctx); err != nil {
		logger.Error("Failed startup report sync", log.FieldError, err)
	}

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- amqpClient.Consume(ctx, reportWorker.HandleEvent)
	}()

	var tick <-chan time.Time
	if cfg.SyncInterval > 0 {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			return nil
		case err := <-consumeErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-tick:
			if err := reportWorker.SyncAll(ctx); err != nil {
				logger.Error("Periodic report sync failed", log.FieldError, err)
			}
		}
	}
}
