// Package cli holds the bootstrap shared by cmd/sicof and cmd/sicof-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sicof/internal/backend"
	"sicof/internal/config"
	"sicof/internal/events"
	"sicof/internal/log"
	"sicof/internal/services"
	"sicof/internal/storage"

	"github.com/joho/godotenv"
)

// SetupLogger builds the process logger from cfg and makes it the default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig reads .env, the optional TOML file and the
// environment, then validates the result.
func LoadAndValidateConfig(path string) (*config.Config, error) {
	LoadEnvFile()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App is a fully wired process: store, publisher, sink and services.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Store     storage.Store
	Publisher events.Publisher
	Services  *services.Services

	cleanup []func() error
}

// Bootstrap wires everything cfg selects. Close releases it in reverse.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	factory := backend.NewFactory(logger)
	app := &App{Config: cfg, Logger: logger}

	res, err := factory.CreateStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = res.Store
	app.cleanup = append(app.cleanup, res.Cleanup)

	sink, err := factory.CreateSink(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Publisher = factory.CreatePublisher(ctx, cfg)
	app.cleanup = append(app.cleanup, app.Publisher.Close)

	app.Services = services.New(services.Deps{
		Store:     app.Store,
		Publisher: app.Publisher,
		Logger:    logger,
		Location:  cfg.Location(),
	}, sink)
	return app, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanup = nil
	if len(errs) > 0 {
		return fmt.Errorf("cleanup: %w", errors.Join(errs...))
	}
	return nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs with a deadline of timeout before the context is cancelled; done
// closes once it has returned.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
