// Package backup stores full document store snapshots outside the store.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sicof/internal/core"
)

// Sink is a named blob area for snapshot files.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

const extension = ".json"

// DefaultName names a snapshot taken at t, e.g. sicof-20240501T120000Z.json.
func DefaultName(t time.Time) string {
	return "sicof-" + t.UTC().Format("20060102T150405Z") + extension
}

// CleanName rejects names that would escape the sink and appends the .json
// extension when missing.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", core.NewValidationError("name", "invalid backup name")
	}
	if !strings.HasSuffix(name, extension) {
		name += extension
	}
	return name, nil
}

// FileSink keeps snapshots in a local directory.
type FileSink struct {
	dir string
}

var _ Sink = (*FileSink)(nil)

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Write(_ context.Context, name string, data []byte) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

func (s *FileSink) Read(_ context.Context, name string) ([]byte, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("backup %s: %w", name, core.ErrNotFound)
	}
	return data, err
}

// List returns snapshot names, newest first.
func (s *FileSink) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), extension) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
