package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"sicof/internal/azure"
	"sicof/internal/core"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// maxSnapshotBytes bounds a downloaded snapshot.
const maxSnapshotBytes = 64 << 20

// BlobSink keeps snapshots as blobs of one container.
type BlobSink struct {
	client    *azblob.Client
	container string
}

var _ Sink = (*BlobSink)(nil)

// NewBlobSink connects to serviceURL, creating container when missing.
// Plain http URLs are treated as Azurite.
func NewBlobSink(ctx context.Context, serviceURL, container string) (*BlobSink, error) {
	if serviceURL == "" {
		return nil, fmt.Errorf("blob service url is required")
	}
	var client *azblob.Client
	if azure.IsLocal(serviceURL) {
		name, key := azure.AzuriteCredentials()
		cred, err := azblob.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("create shared key credential: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create blob client: %w", err)
		}
	} else {
		cred, err := azure.DefaultCredential()
		if err != nil {
			return nil, fmt.Errorf("create default azure credential: %w", err)
		}
		client, err = azblob.NewClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create blob client: %w", err)
		}
	}

	if _, err := client.CreateContainer(ctx, container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("create container %s: %w", container, err)
	}
	slog.Info("blob backup sink initialized", "service_url", serviceURL, "container", container)
	return &BlobSink{client: client, container: container}, nil
}

func (s *BlobSink) Write(ctx context.Context, name string, data []byte) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	if _, err := s.client.UploadBuffer(ctx, s.container, name, data, nil); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

func (s *BlobSink) Read(ctx context.Context, name string) ([]byte, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, fmt.Errorf("backup %s: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// List returns snapshot names, newest first.
func (s *BlobSink) List(ctx context.Context) ([]string, error) {
	var names []string
	pager := s.client.NewListBlobsFlatPager(s.container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list blobs: %w", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil && strings.HasSuffix(*item.Name, extension) {
				names = append(names, *item.Name)
			}
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
