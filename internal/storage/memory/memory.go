// Package memory is an in-process document store for tests and ephemeral
// runs. Nothing survives a restart.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"sicof/internal/core"
	"sicof/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	docs    map[string]map[string]json.RawMessage
	changes *storage.Broadcaster
	// offline makes every call fail as if the backend were unreachable.
	offline bool
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		docs:    make(map[string]map[string]json.RawMessage),
		changes: storage.NewBroadcaster(),
	}
}

// SetOffline toggles simulated unavailability.
func (s *Store) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

var errOffline = errors.New("memory store offline")

func (s *Store) Get(_ context.Context, path string) (json.RawMessage, error) {
	collection, id, err := storage.ParsePath(path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return nil, core.WrapStore("get "+path, errOffline)
	}
	if id == "" {
		out := make(map[string]json.RawMessage, len(s.docs[collection]))
		for k, v := range s.docs[collection] {
			out[k] = clone(v)
		}
		return storage.CollectionObject(out)
	}
	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return clone(doc), nil
}

func (s *Store) Set(_ context.Context, path string, value json.RawMessage) error {
	collection, id, err := storage.ParsePath(path)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("set on collection %q: %w", path, core.ErrInvalidPath)
	}
	if !json.Valid(value) {
		return fmt.Errorf("set %s: document is not valid JSON", path)
	}
	s.mu.Lock()
	if s.offline {
		s.mu.Unlock()
		return core.WrapStore("set "+path, errOffline)
	}
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]json.RawMessage)
	}
	s.docs[collection][id] = clone(value)
	s.mu.Unlock()

	s.changes.Publish(storage.Change{Collection: collection, ID: id, Value: clone(value)})
	return nil
}

func (s *Store) Update(_ context.Context, path string, fields map[string]any) error {
	collection, id, err := storage.ParsePath(path)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("update on collection %q: %w", path, core.ErrInvalidPath)
	}
	s.mu.Lock()
	if s.offline {
		s.mu.Unlock()
		return core.WrapStore("update "+path, errOffline)
	}
	doc, ok := s.docs[collection][id]
	if !ok {
		s.mu.Unlock()
		return core.ErrNotFound
	}
	merged, err := storage.MergeFields(doc, fields)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("update %s: %w", path, err)
	}
	s.docs[collection][id] = merged
	s.mu.Unlock()

	s.changes.Publish(storage.Change{Collection: collection, ID: id, Value: clone(merged)})
	return nil
}

func (s *Store) Remove(_ context.Context, path string) error {
	collection, id, err := storage.ParsePath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.offline {
		s.mu.Unlock()
		return core.WrapStore("remove "+path, errOffline)
	}
	if id == "" {
		delete(s.docs, collection)
	} else {
		delete(s.docs[collection], id)
	}
	s.mu.Unlock()

	s.changes.Publish(storage.Change{Collection: collection, ID: id, Removed: true})
	return nil
}

func (s *Store) GenerateID(_ context.Context, path string) (string, error) {
	return storage.GenerateIDFor(path)
}

func (s *Store) CheckConnectivity(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.offline
}

func (s *Store) Export(context.Context) (storage.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return nil, core.WrapStore("export", errOffline)
	}
	snap := make(storage.Snapshot, len(storage.Collections))
	for _, c := range storage.Collections {
		docs := make(map[string]json.RawMessage, len(s.docs[c]))
		for id, doc := range s.docs[c] {
			docs[id] = clone(doc)
		}
		snap[c] = docs
	}
	return snap, nil
}

func (s *Store) Import(_ context.Context, snapshot storage.Snapshot) error {
	next := make(map[string]map[string]json.RawMessage, len(snapshot))
	for c, docs := range snapshot {
		if _, _, err := storage.ParsePath(c); err != nil {
			return fmt.Errorf("import: %w", err)
		}
		next[c] = make(map[string]json.RawMessage, len(docs))
		for id, doc := range docs {
			next[c][id] = clone(doc)
		}
	}

	s.mu.Lock()
	if s.offline {
		s.mu.Unlock()
		return core.WrapStore("import", errOffline)
	}
	s.docs = next
	s.mu.Unlock()

	s.changes.PublishSnapshot()
	return nil
}

func (s *Store) Subscribe(ctx context.Context, path string) (<-chan storage.Change, error) {
	return s.changes.Subscribe(ctx, path)
}

func (s *Store) Close() error {
	s.changes.Close()
	return nil
}

func clone(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}
