// Package events describes the domain notifications emitted after every
// persisted mutation and the publisher contract transports implement.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	CreditCreated       Type = "credit.created"
	CreditUpdated       Type = "credit.updated"
	CreditDeleted       Type = "credit.deleted"
	CreditClosed        Type = "credit.closed"
	CreditReopened      Type = "credit.reopened"
	ExpenseCreated      Type = "expense.created"
	ExpenseUpdated      Type = "expense.updated"
	ExpenseDeleted      Type = "expense.deleted"
	ObligationFulfilled Type = "obligation.fulfilled"
	ObligationGenerated Type = "obligation.generated"
	ObligationLinked    Type = "obligation.linked"
	GoalCreated         Type = "goal.created"
	GoalDeleted         Type = "goal.deleted"
	YearClosed          Type = "year.closed"
	SnapshotImported    Type = "snapshot.imported"
)

// Event carries ids only; consumers read current state from the store.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	EntityID   string    `json:"entityId"`
	CreditIDs  []string  `json:"creditIds,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func New(t Type, entityID string, creditIDs ...string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		EntityID:   entityID,
		CreditIDs:  creditIDs,
		OccurredAt: time.Now().UTC(),
	}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// AffectsReports is true for events that change any report projection.
func (e Event) AffectsReports() bool {
	switch e.Type {
	case GoalCreated, GoalDeleted:
		return false
	default:
		return true
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what was published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the published event types in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
