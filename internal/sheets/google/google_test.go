package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestA1(t *testing.T) {
	cases := []struct{ tab, cells, want string }{
		{"budget-execution", "A1", "'budget-execution'!A1"},
		{"O'Brien", "A:ZZ", "'O''Brien'!A:ZZ"},
	}
	for i, c := range cases {
		if got := a1(c.tab, c.cells); got != c.want {
			t.Fatalf("case %d: got %q want %q", i, got, c.want)
		}
	}
}

func TestToRows(t *testing.T) {
	rows := toRows([][]string{{"a", "b"}, {"1"}})
	if len(rows) != 2 || len(rows[0]) != 2 || rows[0][1] != "b" || rows[1][0] != "1" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

type fakeSheets struct {
	mu      sync.Mutex
	gets    int
	adds    int
	clears  int
	updates map[string][][]interface{}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sid"):
		f.gets++
		io.WriteString(w, `{"sheets":[{"properties":{"sheetId":7,"title":"budget-execution"}}]}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.adds++
		io.WriteString(w, `{"replies":[{"addSheet":{"properties":{"sheetId":9,"title":"new"}}}]}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.clears++
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.updates[path[strings.Index(path, "/values/")+len("/values/"):]] = vr.Values
		io.WriteString(w, `{}`)
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func TestClient_WriteReport(t *testing.T) {
	fake := &fakeSheets{updates: make(map[string][][]interface{})}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	svc, err := gsheet.NewService(ctx,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	c := NewWithService(svc, "sid")

	records := [][]string{{"Code", "Paid"}, {"A-1", "10.00"}}
	if err := c.WriteReport(ctx, "budget-execution", records); err != nil {
		t.Fatalf("write existing tab: %v", err)
	}
	if err := c.WriteReport(ctx, "budget-execution", records); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if err := c.WriteReport(ctx, "credits-by-axis", nil); err != nil {
		t.Fatalf("write new tab: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.gets != 2 {
		t.Fatalf("expected cached sheet id on second write, got %d reads", fake.gets)
	}
	if fake.adds != 1 {
		t.Fatalf("expected one added tab, got %d", fake.adds)
	}
	if fake.clears != 3 {
		t.Fatalf("expected 3 clears, got %d", fake.clears)
	}
	got := fake.updates["'budget-execution'!A1"]
	if len(got) != 2 || got[1][0] != "A-1" {
		t.Fatalf("unexpected values %v (all %v)", got, fake.updates)
	}
	if len(fake.updates) != 1 {
		t.Fatalf("an empty report must not write values, got %v", fake.updates)
	}
}
