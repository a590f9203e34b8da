package azqueue

import (
	"encoding/base64"
	"testing"

	"sicof/internal/events"
)

func TestEncode(t *testing.T) {
	e := events.New(events.YearClosed, "2024")
	body, err := Encode(e)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		t.Fatalf("body is not base64: %v", err)
	}
	got, err := events.FromJSON(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != e.ID || got.Type != events.YearClosed || got.EntityID != "2024" {
		t.Fatalf("unexpected decoded event %+v", got)
	}
}
