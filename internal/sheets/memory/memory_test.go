package memory

import (
	"context"
	"testing"
)

func TestStore_WriteReportReplaces(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.WriteReport(ctx, "b", [][]string{{"h"}, {"1"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	in := [][]string{{"h"}, {"2"}}
	if err := s.WriteReport(ctx, "b", in); err != nil {
		t.Fatalf("write: %v", err)
	}
	in[1][0] = "mutated"
	if err := s.WriteReport(ctx, "a", nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, ok := s.Records("b")
	if !ok || len(got) != 2 || got[1][0] != "2" {
		t.Fatalf("unexpected records %v", got)
	}
	if tabs := s.Tabs(); len(tabs) != 2 || tabs[0] != "a" {
		t.Fatalf("unexpected tabs %v", tabs)
	}
	if s.Writes() != 3 {
		t.Fatalf("expected 3 writes, got %d", s.Writes())
	}
}
