package services

import (
	"context"
	"encoding/json"
	"fmt"

	"sicof/internal/backup"
	"sicof/internal/core"
	"sicof/internal/events"
	"sicof/internal/log"
	"sicof/internal/storage"
)

// BackupService moves whole-store snapshots in and out of the store.
type BackupService struct {
	deps Deps
	sink backup.Sink
}

// NewBackupService wires sink for Backup, Restore and List. sink may be nil
// when only ExportAll and ImportAll are used.
func NewBackupService(deps Deps, sink backup.Sink) *BackupService {
	return &BackupService{deps: deps.withDefaults(), sink: sink}
}

func (s *BackupService) ExportAll(ctx context.Context) (storage.Snapshot, error) {
	snap, err := s.deps.Store.Export(ctx)
	if err != nil {
		return nil, core.WrapStore("export", err)
	}
	return snap, nil
}

// ImportAll overwrites the whole store with snap. Every document must decode
// as its collection's entity and carry its own key as id; nothing is written
// otherwise.
func (s *BackupService) ImportAll(ctx context.Context, snap storage.Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	if err := s.deps.Store.Import(ctx, snap); err != nil {
		return core.WrapStore("import", err)
	}
	n := 0
	for _, docs := range snap {
		n += len(docs)
	}
	s.deps.mutated(ctx, log.ComponentBackup, log.OpImport, log.NewFields().With("documents", n))
	s.deps.publish(ctx, events.New(events.SnapshotImported, ""))
	return nil
}

func validateSnapshot(snap storage.Snapshot) error {
	v := &core.ValidationError{}
	for collection, docs := range snap {
		decode, ok := decoders[collection]
		if !ok {
			v.Add(collection, "unknown collection")
			continue
		}
		for key, raw := range docs {
			id, err := decode(raw)
			field := collection + "/" + key
			switch {
			case err != nil:
				v.Add(field, "malformed document: "+err.Error())
			case id != key:
				v.Add(field, fmt.Sprintf("document id %q does not match its key", id))
			}
		}
	}
	return v.Err()
}

// decoders check one document of each collection and return its id.
var decoders = map[string]func(json.RawMessage) (string, error){
	storage.Credits:     decodeID[core.Credit](func(c core.Credit) string { return c.ID }),
	storage.Expenses:    decodeID[core.Expense](func(e core.Expense) string { return e.ID }),
	storage.Obligations: decodeID[core.Obligation](func(o core.Obligation) string { return o.ID }),
	storage.Goals:       decodeID[core.GoalAction](func(g core.GoalAction) string { return g.ID }),
	storage.Closings:    decodeID[core.AnnualClosing](func(a core.AnnualClosing) string { return a.ID }),
}

func decodeID[T any](id func(T) string) func(json.RawMessage) (string, error) {
	return func(raw json.RawMessage) (string, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", err
		}
		return id(v), nil
	}
}

// Backup writes the current snapshot to the sink under name, or under a
// timestamped name when name is empty. It returns the name used.
func (s *BackupService) Backup(ctx context.Context, name string) (string, error) {
	if s.sink == nil {
		return "", fmt.Errorf("backup: no sink configured")
	}
	if name == "" {
		name = backup.DefaultName(s.deps.Now())
	}
	name, err := backup.CleanName(name)
	if err != nil {
		return "", err
	}
	snap, err := s.ExportAll(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.sink.Write(ctx, name, data); err != nil {
		return "", fmt.Errorf("write backup %s: %w", name, err)
	}
	s.deps.Logger.WithComponent(log.ComponentBackup).InfoContext(ctx, "Backup written",
		log.FieldBackup, name, "bytes", len(data))
	return name, nil
}

// Restore imports the snapshot stored under name.
func (s *BackupService) Restore(ctx context.Context, name string) error {
	if s.sink == nil {
		return fmt.Errorf("restore: no sink configured")
	}
	data, err := s.sink.Read(ctx, name)
	if err != nil {
		return err
	}
	var snap storage.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return core.NewValidationError("snapshot", "malformed backup: "+err.Error())
	}
	if err := s.ImportAll(ctx, snap); err != nil {
		return err
	}
	s.deps.Logger.WithComponent(log.ComponentBackup).InfoContext(ctx, "Backup restored", log.FieldBackup, name)
	return nil
}

func (s *BackupService) List(ctx context.Context) ([]string, error) {
	if s.sink == nil {
		return []string{}, nil
	}
	return s.sink.List(ctx)
}
