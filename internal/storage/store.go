// Package storage defines the hierarchical document store the services work
// against and ships its SQLite implementation. Other backends live in the
// sub-packages.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sicof/internal/core"

	"github.com/google/uuid"
)

// Top-level collections.
const (
	Credits     = "credits"
	Expenses    = "expenses"
	Obligations = "accountabilityObligations"
	Goals       = "goalsActions"
	Closings    = "annualClosings"
)

// Collections lists every collection in export order.
var Collections = []string{Credits, Expenses, Obligations, Goals, Closings}

// Snapshot is a full copy of the store: collection -> id -> document.
type Snapshot map[string]map[string]json.RawMessage

// Change describes one write observed by a Subscriber.
type Change struct {
	Collection string
	ID         string // empty when a whole collection changed
	Removed    bool
	Value      json.RawMessage
}

// Path renders the change location.
func (c Change) Path() string {
	if c.ID == "" {
		return c.Collection
	}
	return c.Collection + "/" + c.ID
}

// DocumentStore is a two-level hierarchical store. Paths are "<collection>"
// or "<collection>/<id>".
type DocumentStore interface {
	// Get returns the document at path. For a collection path it returns a
	// JSON object keyed by id. Absent documents yield core.ErrNotFound.
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Set(ctx context.Context, path string, value json.RawMessage) error
	// Update merges fields into the top level of an existing document.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Remove deletes a document, or every document of a collection.
	Remove(ctx context.Context, path string) error
	GenerateID(ctx context.Context, path string) (string, error)
	CheckConnectivity(ctx context.Context) bool
	Export(ctx context.Context) (Snapshot, error)
	// Import replaces the whole store with snapshot.
	Import(ctx context.Context, snapshot Snapshot) error
	Close() error
}

// Subscriber delivers changes under a path until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, path string) (<-chan Change, error)
}

// Store is what every backend provides.
type Store interface {
	DocumentStore
	Subscriber
}

// ParsePath splits a path into collection and optional id.
func ParsePath(path string) (collection, id string, err error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		collection = parts[0]
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		collection, id = parts[0], parts[1]
	default:
		return "", "", fmt.Errorf("%q: %w", path, core.ErrInvalidPath)
	}
	if !isCollection(collection) {
		return "", "", fmt.Errorf("unknown collection %q: %w", collection, core.ErrInvalidPath)
	}
	return collection, id, nil
}

// DocPath joins a collection and an id.
func DocPath(collection, id string) string {
	return collection + "/" + id
}

// NewID returns a time-ordered unique id, so ids sort in creation order.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateIDFor validates path as a collection and allocates an id under it.
// Backends share it for GenerateID.
func GenerateIDFor(path string) (string, error) {
	_, id, err := ParsePath(path)
	if err != nil {
		return "", err
	}
	if id != "" {
		return "", fmt.Errorf("generate id under document %q: %w", path, core.ErrInvalidPath)
	}
	return NewID(), nil
}

// MergeFields applies a shallow update to a JSON object document.
func MergeFields(doc json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	obj := make(map[string]json.RawMessage)
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &obj); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", k, err)
		}
		obj[k] = raw
	}
	return json.Marshal(obj)
}

// CollectionObject renders the documents of a collection as one JSON object.
func CollectionObject(docs map[string]json.RawMessage) (json.RawMessage, error) {
	if docs == nil {
		docs = map[string]json.RawMessage{}
	}
	return json.Marshal(docs)
}

func isCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}
