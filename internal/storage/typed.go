package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"sicof/internal/core"
)

// GetDoc loads and decodes one document.
func GetDoc[T any](ctx context.Context, s DocumentStore, collection, id string) (T, error) {
	var v T
	path := DocPath(collection, id)
	raw, err := s.Get(ctx, path)
	if err != nil {
		return v, storeErr("get "+path, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, core.WrapStore("decode "+path, err)
	}
	return v, nil
}

// ListDocs decodes every document of a collection, ordered by id. Ids are
// time-ordered so this is creation order.
func ListDocs[T any](ctx context.Context, s DocumentStore, collection string) ([]T, error) {
	raw, err := s.Get(ctx, collection)
	if errors.Is(err, core.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, storeErr("list "+collection, err)
	}
	var docs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, core.WrapStore("decode "+collection, err)
	}
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		var v T
		if err := json.Unmarshal(docs[id], &v); err != nil {
			return nil, core.WrapStore(fmt.Sprintf("decode %s/%s", collection, id), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// PutDoc encodes v and stores it under collection/id.
func PutDoc(ctx context.Context, s DocumentStore, collection, id string, v any) error {
	path := DocPath(collection, id)
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return storeErr("set "+path, s.Set(ctx, path, raw))
}

// RemoveDoc deletes collection/id.
func RemoveDoc(ctx context.Context, s DocumentStore, collection, id string) error {
	path := DocPath(collection, id)
	return storeErr("remove "+path, s.Remove(ctx, path))
}

// storeErr keeps not-found and path errors recognisable and marks every
// other failure as a store failure.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidPath):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return core.WrapStore(op, err)
	}
}
