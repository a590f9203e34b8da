package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"sicof/internal/core"
	"sicof/internal/storage"
	"sicof/internal/storage/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestOffline(t *testing.T) {
	s := New()
	s.SetOffline(true)
	if s.CheckConnectivity(context.Background()) {
		t.Fatalf("expected offline store to report no connectivity")
	}
	err := s.Set(context.Background(), "credits/a", json.RawMessage(`{}`))
	var se *core.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestReturnedDocumentsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Set(ctx, "credits/a", json.RawMessage(`{"id":"a"}`)); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, "credits/a")
	got[2] = 'X'
	again, _ := s.Get(ctx, "credits/a")
	if string(again) != `{"id":"a"}` {
		t.Fatalf("stored document was mutated: %s", again)
	}
}
