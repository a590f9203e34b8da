package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(perMinute int, now *time.Time) *Limiter {
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	rl.now = func() time.Time { return *now }
	return rl
}

func TestAllow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(2, &now)
	defer rl.Stop()

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests must pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request within the window must be rejected")
	}
	if !rl.Allow("b") {
		t.Fatal("clients are counted separately")
	}
	if got := rl.RetryAfter("a"); got != 60 {
		t.Fatalf("RetryAfter = %d, want 60", got)
	}

	now = now.Add(window)
	if !rl.Allow("a") {
		t.Fatal("a new window must reset the count")
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(5, &now)
	defer rl.Stop()

	rl.Allow("old")
	now = now.Add(11 * time.Minute)
	rl.Allow("new")
	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 1 {
		t.Fatalf("ActiveClients = %d, want 1", rl.ActiveClients())
	}
}

func TestMiddlewareOnlyLimitsMutations(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(1, &now)
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "client" }, Mutating, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	cases := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodDelete, http.StatusTooManyRequests},
		{http.MethodGet, http.StatusNoContent},
	}
	for i, c := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(c.method, "/api/credits", nil))
		if rec.Code != c.want {
			t.Fatalf("case %d: %s got %d, want %d", i, c.method, rec.Code, c.want)
		}
	}
}
