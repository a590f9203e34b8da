// Package postgres stores documents as JSONB rows in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"sicof/internal/core"
	"sicof/internal/storage"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db      *sql.DB
	changes *storage.Broadcaster
}

var _ storage.Store = (*Store)(nil)

// New connects to dsn and applies pending migrations.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := runMigrations(dsn); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, changes: storage.NewBroadcaster()}, nil
}

func runMigrations(dsn string) error {
	migrateDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := migratepg.WithInstance(migrateDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.changes.Close()
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, error) {
	collection, id, err := storage.ParsePath(path)
	if err != nil {
		return nil, err
	}
	if id == "" {
		docs, err := s.collection(ctx, s.db, collection)
		if err != nil {
			return nil, err
		}
		return storage.CollectionObject(docs)
	}
	var body string
	err = s.db.QueryRowContext(ctx,
		`SELECT body::text FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.WrapStore("get "+path, err)
	}
	return json.RawMessage(body), nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) collection(ctx context.Context, q querier, collection string) (map[string]json.RawMessage, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, body::text FROM documents WHERE collection = $1 ORDER BY id`, collection)
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

func (s *Store) Set(ctx context.Context, path string, value json.RawMessage) error {
	collection, id, err := storage.ParsePath(path)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("set on collection %q: %w", path, core.ErrInvalidPath)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		collection, id, string(value))
	if err != nil {
		return core.WrapStore("set "+path, err)
	}
	s.changes.Publish(storage.Change{Collection: collection, ID: id, Value: value})
	return nil
}

// Update merges with the jsonb concatenation operator, which replaces top
// level keys only.
func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	collection, id, err := storage.ParsePath(path)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("update on collection %q: %w", path, core.ErrInvalidPath)
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("update %s: encode fields: %w", path, err)
	}
	var merged string
	err = s.db.QueryRowContext(ctx, `
		UPDATE documents SET body = body || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2
		RETURNING body::text`, collection, id, string(patch)).Scan(&merged)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return core.WrapStore("update "+path, err)
	}
	s.changes.Publish(storage.Change{Collection: collection, ID: id, Value: json.RawMessage(merged)})
	return nil
}

func (s *Store) Remove(ctx context.Context, path string) error {
	collection, id, err := storage.ParsePath(path)
	if err != nil {
		return err
	}
	if id == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1`, collection)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	}
	if err != nil {
		return core.WrapStore("remove "+path, err)
	}
	s.changes.Publish(storage.Change{Collection: collection, ID: id, Removed: true})
	return nil
}

func (s *Store) GenerateID(_ context.Context, path string) (string, error) {
	return storage.GenerateIDFor(path)
}

func (s *Store) CheckConnectivity(ctx context.Context) bool {
	if err := s.db.PingContext(ctx); err != nil {
		slog.WarnContext(ctx, "Postgres connectivity check failed", "error", err)
		return false
	}
	return true
}

func (s *Store) Export(ctx context.Context) (storage.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, core.WrapStore("export", err)
	}
	defer tx.Rollback()

	snap := make(storage.Snapshot, len(storage.Collections))
	for _, c := range storage.Collections {
		docs, err := s.collection(ctx, tx, c)
		if err != nil {
			return nil, err
		}
		snap[c] = docs
	}
	return snap, nil
}

func (s *Store) Import(ctx context.Context, snapshot storage.Snapshot) error {
	for c := range snapshot {
		if _, _, err := storage.ParsePath(c); err != nil {
			return fmt.Errorf("import: %w", err)
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
	for c, docs := range snapshot {
		for id, body := range docs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3::jsonb)`,
				c, id, string(body)); err != nil {
				return core.WrapStore(fmt.Sprintf("import %s/%s", c, id), err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return core.WrapStore("import", err)
	}
	slog.InfoContext(ctx, "Snapshot imported into Postgres", "collections", len(snapshot))
	s.changes.PublishSnapshot()
	return nil
}

func (s *Store) Subscribe(ctx context.Context, path string) (<-chan storage.Change, error) {
	return s.changes.Subscribe(ctx, path)
}
