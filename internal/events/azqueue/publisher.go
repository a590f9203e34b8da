// Package azqueue publishes domain events to an Azure Storage queue.
package azqueue

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"sicof/internal/azure"
	"sicof/internal/events"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

type Publisher struct {
	queue *azqueue.QueueClient
}

var _ events.Publisher = (*Publisher)(nil)

// NewPublisher connects to queueName under serviceURL, creating the queue
// when missing. Plain http URLs are treated as Azurite.
func NewPublisher(ctx context.Context, serviceURL, queueName string) (*Publisher, error) {
	if serviceURL == "" {
		return nil, fmt.Errorf("azure queue service url is required")
	}
	var service *azqueue.ServiceClient
	if azure.IsLocal(serviceURL) {
		name, key := azure.AzuriteCredentials()
		cred, err := azqueue.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("create shared key credential: %w", err)
		}
		service, err = azqueue.NewServiceClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create queue service client with shared key: %w", err)
		}
	} else {
		cred, err := azure.DefaultCredential()
		if err != nil {
			return nil, fmt.Errorf("create default azure credential: %w", err)
		}
		service, err = azqueue.NewServiceClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create queue service client: %w", err)
		}
	}

	queue := service.NewQueueClient(queueName)
	if _, err := queue.Create(ctx, nil); err != nil && !strings.Contains(err.Error(), "QueueAlreadyExists") {
		slog.Warn("failed to create queue (may already exist)", "queue", queueName, "error", err)
	}
	slog.Info("queue publisher initialized", "queue_url", serviceURL, "queue", queueName)
	return &Publisher{queue: queue}, nil
}

// Publish enqueues e base64 encoded, the format queue-triggered consumers
// expect by default.
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	body, err := Encode(e)
	if err != nil {
		return err
	}
	if _, err := p.queue.EnqueueMessage(ctx, body, nil); err != nil {
		return fmt.Errorf("enqueue %s: %w", e.Type, err)
	}
	return nil
}

// Encode renders e as a queue message body.
func Encode(e events.Event) (string, error) {
	data, err := e.ToJSON()
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (p *Publisher) Close() error { return nil }
