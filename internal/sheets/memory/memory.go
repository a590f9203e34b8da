// Package memory keeps report tabs in process, for tests and runs without a
// spreadsheet.
package memory

import (
	"context"
	"sort"
	"sync"

	"sicof/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]string
	writes int
}

var _ sheets.ReportWriter = (*Store)(nil)

func New() *Store {
	return &Store{tabs: make(map[string][][]string)}
}

func (s *Store) WriteReport(_ context.Context, tab string, records [][]string) error {
	cp := make([][]string, len(records))
	for i, r := range records {
		cp[i] = append([]string(nil), r...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = cp
	s.writes++
	return nil
}

// Records returns the content of tab and whether it was ever written.
func (s *Store) Records(tab string) ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.tabs[tab]
	return r, ok
}

// Tabs lists written tabs in name order.
func (s *Store) Tabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tabs))
	for t := range s.tabs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Writes counts WriteReport calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
