// Package backend builds the configured document store, event publisher
// and backup sink.
package backend

import (
	"context"
	"fmt"

	"sicof/internal/amqp"
	"sicof/internal/backup"
	"sicof/internal/config"
	"sicof/internal/events"
	"sicof/internal/events/azqueue"
	"sicof/internal/events/kafka"
	"sicof/internal/log"
	"sicof/internal/storage"
	"sicof/internal/storage/aztables"
	"sicof/internal/storage/memory"
	"sicof/internal/storage/postgres"
)

// CleanupFunc releases what a factory call opened.
type CleanupFunc func() error

type StoreResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentStorage)}
}

// CreateStore opens the store named by cfg.DataBackend.
func (f *Factory) CreateStore(ctx context.Context, cfg *config.Config) (*StoreResult, error) {
	var (
		store storage.Store
		err   error
	)
	switch cfg.DataBackend {
	case "memory":
		store = memory.New()
		f.logger.WarnContext(ctx, "Using in-memory store, data is lost on exit")
	case "sqlite":
		store, err = storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite store", "db_path", cfg.SQLiteDBPath)
	case "postgres":
		store, err = postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Postgres store")
	case "aztables":
		store, err = aztables.New(ctx, cfg.AzureTableServiceURL, cfg.AzureTableName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Azure Table store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Azure Table store", "table", cfg.AzureTableName)
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
	return &StoreResult{Store: store, Cleanup: store.Close}, nil
}

// CreatePublisher connects the configured event transport. A transport that
// cannot be reached degrades to events.Nop with a warning; writes never
// depend on it.
func (f *Factory) CreatePublisher(ctx context.Context, cfg *config.Config) events.Publisher {
	logger := f.logger.WithComponent(log.ComponentEvents)
	switch cfg.EventsBackend {
	case "amqp":
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
			return events.Nop{}
		}
		logger.InfoContext(ctx, "Initialized AMQP publisher", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		return client
	case "kafka":
		logger.InfoContext(ctx, "Initialized Kafka publisher", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	case "azqueue":
		p, err := azqueue.NewPublisher(ctx, cfg.AzureQueueServiceURL, cfg.AzureQueueName)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize Azure queue publisher, continuing without events", "error", err)
			return events.Nop{}
		}
		return p
	default:
		logger.InfoContext(ctx, "Event publishing disabled")
		return events.Nop{}
	}
}

// CreateSink opens the configured backup destination.
func (f *Factory) CreateSink(ctx context.Context, cfg *config.Config) (backup.Sink, error) {
	logger := f.logger.WithComponent(log.ComponentBackup)
	switch cfg.BackupBackend {
	case "file":
		sink, err := backup.NewFileSink(cfg.BackupDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file backup sink: %w", err)
		}
		logger.InfoContext(ctx, "Initialized file backup sink", "dir", cfg.BackupDir)
		return sink, nil
	case "azblob":
		sink, err := backup.NewBlobSink(ctx, cfg.AzureBlobServiceURL, cfg.AzureBlobContainer)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blob backup sink: %w", err)
		}
		logger.InfoContext(ctx, "Initialized blob backup sink", "container", cfg.AzureBlobContainer)
		return sink, nil
	default:
		return nil, fmt.Errorf("unsupported backup backend: %s", cfg.BackupBackend)
	}
}
