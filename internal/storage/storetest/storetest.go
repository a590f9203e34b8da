// Package storetest runs the same behavioural checks against every
// storage.Store backend.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"sicof/internal/core"
	"sicof/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a fresh store returned by open. open is called once per
// subtest.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Run("SetGetRemove", func(t *testing.T) { testSetGetRemove(t, open(t)) })
	t.Run("CollectionGet", func(t *testing.T) { testCollectionGet(t, open(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, open(t)) })
	t.Run("InvalidPaths", func(t *testing.T) { testInvalidPaths(t, open(t)) })
	t.Run("ExportImport", func(t *testing.T) { testExportImport(t, open(t)) })
	t.Run("Subscribe", func(t *testing.T) { testSubscribe(t, open(t)) })
	t.Run("GenerateID", func(t *testing.T) { testGenerateID(t, open(t)) })
}

func testSetGetRemove(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.True(t, s.CheckConnectivity(ctx))

	_, err := s.Get(ctx, "credits/missing")
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)

	require.NoError(t, s.Set(ctx, "credits/a", json.RawMessage(`{"id":"a","code":"X"}`)))
	got, err := s.Get(ctx, "credits/a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","code":"X"}`, string(got))

	require.NoError(t, s.Set(ctx, "credits/a", json.RawMessage(`{"id":"a","code":"Y"}`)))
	got, err = s.Get(ctx, "credits/a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","code":"Y"}`, string(got))

	require.NoError(t, s.Remove(ctx, "credits/a"))
	_, err = s.Get(ctx, "credits/a")
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)
}

func testCollectionGet(t *testing.T, s storage.Store) {
	ctx := context.Background()

	empty, err := s.Get(ctx, "expenses")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(empty))

	require.NoError(t, s.Set(ctx, "expenses/e1", json.RawMessage(`{"id":"e1"}`)))
	require.NoError(t, s.Set(ctx, "expenses/e2", json.RawMessage(`{"id":"e2"}`)))
	require.NoError(t, s.Set(ctx, "credits/c1", json.RawMessage(`{"id":"c1"}`)))

	all, err := s.Get(ctx, "expenses")
	require.NoError(t, err)
	assert.JSONEq(t, `{"e1":{"id":"e1"},"e2":{"id":"e2"}}`, string(all))

	require.NoError(t, s.Remove(ctx, "expenses"))
	all, err = s.Get(ctx, "expenses")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(all))

	_, err = s.Get(ctx, "credits/c1")
	assert.NoError(t, err, "removing one collection must not touch others")
}

func testUpdate(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "accountabilityObligations/o1",
		json.RawMessage(`{"id":"o1","status":"Pending","linkedExpenseIds":["a"]}`)))

	require.NoError(t, s.Update(ctx, "accountabilityObligations/o1", map[string]any{
		"linkedExpenseIds": []string{"b", "c"},
		"notes":            "n",
	}))
	got, err := s.Get(ctx, "accountabilityObligations/o1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"o1","status":"Pending","linkedExpenseIds":["b","c"],"notes":"n"}`, string(got))

	err = s.Update(ctx, "accountabilityObligations/none", map[string]any{"x": 1})
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)
}

func testInvalidPaths(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for _, p := range []string{"", "unknown/x", "credits/a/b", "/"} {
		_, err := s.Get(ctx, p)
		assert.True(t, errors.Is(err, core.ErrInvalidPath), "path %q: got %v", p, err)
	}
	err := s.Set(ctx, "credits", json.RawMessage(`{}`))
	assert.True(t, errors.Is(err, core.ErrInvalidPath), "got %v", err)
}

func testExportImport(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "credits/old", json.RawMessage(`{"id":"old"}`)))

	snap := storage.Snapshot{
		storage.Credits: {"c1": json.RawMessage(`{"id":"c1"}`)},
		storage.Goals:   {"g1": json.RawMessage(`{"id":"g1","description":"Goal"}`)},
	}
	require.NoError(t, s.Import(ctx, snap))

	_, err := s.Get(ctx, "credits/old")
	assert.True(t, errors.Is(err, core.ErrNotFound), "import must overwrite, got %v", err)

	out, err := s.Export(ctx)
	require.NoError(t, err)
	for _, c := range storage.Collections {
		_, ok := out[c]
		assert.True(t, ok, "export must list collection %s", c)
	}
	require.Len(t, out[storage.Credits], 1)
	assert.JSONEq(t, `{"id":"c1"}`, string(out[storage.Credits]["c1"]))
	assert.JSONEq(t, `{"id":"g1","description":"Goal"}`, string(out[storage.Goals]["g1"]))
	assert.Empty(t, out[storage.Expenses])

	err = s.Import(ctx, storage.Snapshot{"bogus": {}})
	assert.True(t, errors.Is(err, core.ErrInvalidPath), "got %v", err)
}

func testSubscribe(t *testing.T, s storage.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx, "accountabilityObligations")
	require.NoError(t, err)

	require.NoError(t, s.Set(context.Background(), "credits/x", json.RawMessage(`{"id":"x"}`)))
	require.NoError(t, s.Set(context.Background(), "accountabilityObligations/o1", json.RawMessage(`{"id":"o1"}`)))

	select {
	case c := <-ch:
		assert.Equal(t, storage.Obligations, c.Collection)
		assert.Equal(t, "o1", c.ID)
		assert.False(t, c.Removed)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func testGenerateID(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a, err := s.GenerateID(ctx, "expenses")
	require.NoError(t, err)
	b, err := s.GenerateID(ctx, "expenses")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "ids must sort in generation order")

	_, err = s.GenerateID(ctx, "expenses/e1")
	assert.True(t, errors.Is(err, core.ErrInvalidPath), "got %v", err)
}
