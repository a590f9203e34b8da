package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"sicof/internal/storage"
	"sicof/internal/storage/storetest"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		s, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "data", "sicof.db"))
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sicof.db")
	s, err := storage.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(context.Background(), "goalsActions/g1", []byte(`{"id":"g1"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Close()

	s, err = storage.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), "goalsActions/g1"); err != nil {
		t.Fatalf("document lost across reopen: %v", err)
	}
}
