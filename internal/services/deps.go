// Package services implements the operations the HTTP API and CLI expose.
// Every service reads and writes through a storage.Store and announces
// persisted changes through an events.Publisher.
package services

import (
	"context"
	"time"

	"sicof/internal/core"
	"sicof/internal/events"
	"sicof/internal/log"
	"sicof/internal/metrics"
	"sicof/internal/storage"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Store     storage.Store
	Publisher events.Publisher
	Logger    *log.Logger
	// Now is the clock; obligations use it for fulfilment and overdue dates.
	Now func() time.Time
	// Location decides which calendar day "today" is.
	Location *time.Location
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	return d
}

func (d Deps) today() core.Date {
	return core.DateOf(d.Now().In(d.Location))
}

// publish never fails the caller: the write it announces is already
// persisted.
func (d Deps) publish(ctx context.Context, e events.Event) {
	logger := d.Logger.WithComponent(log.ComponentEvents)
	if d.Publisher == nil {
		logger.WarnContext(ctx, "Event publisher not available, skipping event",
			log.FieldEventType, e.Type, "entity_id", e.EntityID)
		return
	}
	err := d.Publisher.Publish(ctx, e)
	metrics.EventsPublished.WithLabelValues(string(e.Type), metrics.Result(err)).Inc()
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish event",
			log.NewFields().
				WithError(err, log.ErrorTypeNetwork).
				WithOperation(log.OpPublish).
				With(log.FieldEventType, e.Type).
				With("entity_id", e.EntityID).
				ToSlice()...)
	}
}

func (d Deps) mutated(ctx context.Context, component, op string, fields log.LogFields) {
	metrics.Mutations.WithLabelValues(component, op).Inc()
	log.NewStructuredLogger(d.Logger).LogMutation(ctx, component, op, fields)
}
