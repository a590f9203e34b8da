// Package kafka publishes domain events to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"time"

	"sicof/internal/events"

	"github.com/segmentio/kafka-go"
)

type Publisher struct {
	writer *kafka.Writer
}

var _ events.Publisher = (*Publisher)(nil)

// NewPublisher writes to topic on brokers. Messages are keyed by entity id
// so every event of one entity lands on the same partition.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	data, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, Message(e, data))
}

// Message builds the record for e with its encoded body.
func Message(e events.Event, body []byte) kafka.Message {
	return kafka.Message{
		Key:   []byte(e.EntityID),
		Value: body,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
			{Key: "event-id", Value: []byte(e.ID)},
		},
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
