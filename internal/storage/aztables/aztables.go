// Package aztables keeps documents in one Azure Table: the collection is the
// partition key, the document id the row key and the JSON body a string
// property.
package aztables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"sicof/internal/azure"
	"sicof/internal/core"
	"sicof/internal/storage"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

const bodyProperty = "Body"

type Store struct {
	service *aztables.ServiceClient
	table   *aztables.Client
	changes *storage.Broadcaster
}

var _ storage.Store = (*Store)(nil)

// New connects to serviceURL and makes sure tableName exists. Plain http
// URLs are treated as Azurite and use its shared key.
func New(ctx context.Context, serviceURL, tableName string) (*Store, error) {
	if serviceURL == "" {
		return nil, errors.New("azure table service url is required")
	}
	var service *aztables.ServiceClient
	if azure.IsLocal(serviceURL) {
		slog.Info("using Azurite credentials for table store")
		name, key := azure.AzuriteCredentials()
		cred, err := aztables.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("create shared key credential: %w", err)
		}
		service, err = aztables.NewServiceClientWithSharedKey(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create table service client with shared key: %w", err)
		}
	} else {
		cred, err := azure.DefaultCredential()
		if err != nil {
			return nil, fmt.Errorf("create default azure credential: %w", err)
		}
		service, err = aztables.NewServiceClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create table service client: %w", err)
		}
	}

	if _, err := service.CreateTable(ctx, tableName, nil); err != nil {
		var azErr *azcore.ResponseError
		if !errors.As(err, &azErr) || azErr.ErrorCode != "TableAlreadyExists" {
			return nil, fmt.Errorf("create table %s: %w", tableName, err)
		}
	}

	slog.Info("table store initialized", "table_url", serviceURL, "table", tableName)
	return &Store{
		service: service,
		table:   service.NewClient(tableName),
		changes: storage.NewBroadcaster(),
	}, nil
}

func (s *Store) Close() error {
	s.changes.Close()
	return nil
}

func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, error) {
	collection, id, err := storage.ParsePath(path)
	if err != nil {
		return nil, err
	}
	if id == "" {
		docs, err := s.collection(ctx, collection)
		if err != nil {
			return nil, err
		}
		return storage.CollectionObject(docs)
	}
	resp, err := s.table.GetEntity(ctx, collection, id, nil)
	if isNotFound(err) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.WrapStore("get "+path, err)
	}
	return bodyOf(resp.Value)
}

func (s *Store) collection(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s'", strings.ReplaceAll(collection, "'", "''"))
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	docs := make(map[string]json.RawMessage)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, core.WrapStore("list "+collection, err)
		}
		for _, raw := range page.Entities {
			rowKey, body, err := decodeRow(collection, raw)
			if err != nil {
				return nil, err
			}
			docs[rowKey] = body
		}
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
	if err := s.upsert(ctx, collection, id, value); err != nil {
		return core.WrapStore("set "+path, err)
	}
	s.changes.Publish(storage.Change{Collection: collection, ID: id, Value: value})
	return nil
}

func (s *Store) upsert(ctx context.Context, collection, id string, value json.RawMessage) error {
	entity, err := json.Marshal(map[string]any{
		"PartitionKey": collection,
		"RowKey":       id,
		bodyProperty:   string(value),
	})
	if err != nil {
		return err
	}
	_, err = s.table.UpsertEntity(ctx, entity, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

// Update is a read-modify-write guarded by the entity ETag.
func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	collection, id, err := storage.ParsePath(path)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("update on collection %q: %w", path, core.ErrInvalidPath)
	}
	resp, err := s.table.GetEntity(ctx, collection, id, nil)
	if isNotFound(err) {
		return core.ErrNotFound
	}
	if err != nil {
		return core.WrapStore("update "+path, err)
	}
	body, err := bodyOf(resp.Value)
	if err != nil {
		return err
	}
	merged, err := storage.MergeFields(body, fields)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	entity, err := json.Marshal(map[string]any{
		"PartitionKey": collection,
		"RowKey":       id,
		bodyProperty:   string(merged),
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	etag := resp.ETag
	if _, err := s.table.UpdateEntity(ctx, entity, &aztables.UpdateEntityOptions{
		IfMatch:    &etag,
		UpdateMode: aztables.UpdateModeReplace,
	}); err != nil {
		return core.WrapStore("update "+path, err)
	}
	s.changes.Publish(storage.Change{Collection: collection, ID: id, Value: merged})
	return nil
}

func (s *Store) Remove(ctx context.Context, path string) error {
	collection, id, err := storage.ParsePath(path)
	if err != nil {
		return err
	}
	if id == "" {
		if err := s.clear(ctx, collection); err != nil {
			return core.WrapStore("remove "+path, err)
		}
	} else if _, err := s.table.DeleteEntity(ctx, collection, id, nil); err != nil && !isNotFound(err) {
		return core.WrapStore("remove "+path, err)
	}
	s.changes.Publish(storage.Change{Collection: collection, ID: id, Removed: true})
	return nil
}

func (s *Store) clear(ctx context.Context, collection string) error {
	docs, err := s.collection(ctx, collection)
	if err != nil {
		return err
	}
	for id := range docs {
		if _, err := s.table.DeleteEntity(ctx, collection, id, nil); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete %s/%s: %w", collection, id, err)
		}
	}
	return nil
}

func (s *Store) GenerateID(_ context.Context, path string) (string, error) {
	return storage.GenerateIDFor(path)
}

func (s *Store) CheckConnectivity(ctx context.Context) bool {
	pager := s.service.NewListTablesPager(nil)
	if _, err := pager.NextPage(ctx); err != nil {
		slog.WarnContext(ctx, "table store connectivity check failed", "error", err)
		return false
	}
	return true
}

func (s *Store) Export(ctx context.Context) (storage.Snapshot, error) {
	snap := make(storage.Snapshot, len(storage.Collections))
	for _, c := range storage.Collections {
		docs, err := s.collection(ctx, c)
		if err != nil {
			return nil, err
		}
		snap[c] = docs
	}
	return snap, nil
}

// Import clears every known collection and writes the snapshot. Table
// Storage has no cross-partition transaction, so a failure midway leaves a
// partial import.
func (s *Store) Import(ctx context.Context, snapshot storage.Snapshot) error {
	for c := range snapshot {
		if _, _, err := storage.ParsePath(c); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}
	for _, c := range storage.Collections {
		if err := s.clear(ctx, c); err != nil {
			return core.WrapStore("import", err)
		}
	}
	for c, docs := range snapshot {
		for id, body := range docs {
			if err := s.upsert(ctx, c, id, body); err != nil {
				return core.WrapStore(fmt.Sprintf("import %s/%s", c, id), err)
			}
		}
	}
	slog.InfoContext(ctx, "snapshot imported into table store", "collections", len(snapshot))
	s.changes.PublishSnapshot()
	return nil
}

func (s *Store) Subscribe(ctx context.Context, path string) (<-chan storage.Change, error) {
	return s.changes.Subscribe(ctx, path)
}

var errMissingBody = fmt.Errorf("entity has no %s property", bodyProperty)

func bodyOf(entity []byte) (json.RawMessage, error) {
	var row map[string]any
	if err := json.Unmarshal(entity, &row); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	body, ok := row[bodyProperty].(string)
	if !ok {
		return nil, errMissingBody
	}
	return json.RawMessage(body), nil
}

// decodeRow splits a listed entity into its row key and document body.
func decodeRow(collection string, entity []byte) (string, json.RawMessage, error) {
	var row map[string]any
	if err := json.Unmarshal(entity, &row); err != nil {
		return "", nil, core.WrapStore("decode "+collection, err)
	}
	rowKey, _ := row["RowKey"].(string)
	body, ok := row[bodyProperty].(string)
	if !ok {
		return "", nil, core.WrapStore(fmt.Sprintf("decode %s/%s", collection, rowKey), errMissingBody)
	}
	return rowKey, json.RawMessage(body), nil
}

func isNotFound(err error) bool {
	var azErr *azcore.ResponseError
	return errors.As(err, &azErr) && azErr.StatusCode == http.StatusNotFound
}
