package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"sicof/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every document as a JSON row of a single table keyed by
// (collection, id).
type SQLiteStore struct {
	db      *sql.DB
	changes *Broadcaster
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, changes: NewBroadcaster()}, nil
}

func (s *SQLiteStore) Close() error {
	s.changes.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	collection, id, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	if id == "" {
		docs, err := s.collection(ctx, collection)
		if err != nil {
			return nil, err
		}
		return CollectionObject(docs)
	}

	var body string
	err = s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.WrapStore("get "+path, err)
	}
	return json.RawMessage(body), nil
}

func (s *SQLiteStore) collection(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body FROM documents WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, core.WrapStore("list "+collection, err)
	}
	defer rows.Close()

	docs := make(map[string]json.RawMessage)
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, core.WrapStore("scan "+collection, err)
		}
		docs[id] = json.RawMessage(body)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapStore("list "+collection, err)
	}
	return docs, nil
}

func (s *SQLiteStore) Set(ctx context.Context, path string, value json.RawMessage) error {
	collection, id, err := ParsePath(path)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("set on collection %q: %w", path, core.ErrInvalidPath)
	}
	if !json.Valid(value) {
		return fmt.Errorf("set %s: document is not valid JSON", path)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			body = excluded.body,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		collection, id, string(value))
	if err != nil {
		return core.WrapStore("set "+path, err)
	}
	s.changes.Publish(Change{Collection: collection, ID: id, Value: value})
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, path string, fields map[string]any) error {
	collection, id, err := ParsePath(path)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("update on collection %q: %w", path, core.ErrInvalidPath)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapStore("update "+path, err)
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return core.WrapStore("update "+path, err)
	}
	merged, err := MergeFields(json.RawMessage(body), fields)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET body = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE collection = ? AND id = ?`, string(merged), collection, id); err != nil {
		return core.WrapStore("update "+path, err)
	}
	if err := tx.Commit(); err != nil {
		return core.WrapStore("update "+path, err)
	}
	s.changes.Publish(Change{Collection: collection, ID: id, Value: merged})
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, path string) error {
	collection, id, err := ParsePath(path)
	if err != nil {
		return err
	}
	if id == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	}
	if err != nil {
		return core.WrapStore("remove "+path, err)
	}
	s.changes.Publish(Change{Collection: collection, ID: id, Removed: true})
	return nil
}

func (s *SQLiteStore) GenerateID(_ context.Context, path string) (string, error) {
	return GenerateIDFor(path)
}

func (s *SQLiteStore) CheckConnectivity(ctx context.Context) bool {
	if err := s.db.PingContext(ctx); err != nil {
		slog.WarnContext(ctx, "SQLite connectivity check failed", "error", err)
		return false
	}
	return true
}

func (s *SQLiteStore) Export(ctx context.Context) (Snapshot, error) {
	snap := make(Snapshot, len(Collections))
	for _, c := range Collections {
		docs, err := s.collection(ctx, c)
		if err != nil {
			return nil, err
		}
		snap[c] = docs
	}
	return snap, nil
}

func (s *SQLiteStore) Import(ctx context.Context, snapshot Snapshot) error {
	for c := range snapshot {
		if !isCollection(c) {
			return fmt.Errorf("import collection %q: %w", c, core.ErrInvalidPath)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapStore("import", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return core.WrapStore("import", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`)
	if err != nil {
		return core.WrapStore("import", err)
	}
	defer stmt.Close()

	for c, docs := range snapshot {
		for id, body := range docs {
			if _, err := stmt.ExecContext(ctx, c, id, string(body)); err != nil {
				return core.WrapStore(fmt.Sprintf("import %s/%s", c, id), err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return core.WrapStore("import", err)
	}

	slog.InfoContext(ctx, "Snapshot imported into SQLite", "collections", len(snapshot))
	s.changes.PublishSnapshot()
	return nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context, path string) (<-chan Change, error) {
	return s.changes.Subscribe(ctx, path)
}
