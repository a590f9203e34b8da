package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDateUnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want Date
	}{
		{`"2024-01-01"`, NewDate(2024, 1, 1)},
		{`"2024-01-01T22:00:00-03:00"`, NewDate(2024, 1, 1)},
		{`"2024-01-02T01:00:00+03:00"`, NewDate(2024, 1, 2)},
		{`"2024-02-29T23:59:59Z"`, NewDate(2024, 2, 29)},
		{`null`, Date{}},
		{`""`, Date{}},
	}
	for i, c := range cases {
		var d Date
		if err := json.Unmarshal([]byte(c.in), &d); err != nil {
			t.Fatalf("case %d: unexpected error %v", i, err)
		}
		if !d.Equal(c.want) || d.IsZero() != c.want.IsZero() {
			t.Fatalf("case %d: got %s want %s", i, d, c.want)
		}
	}

	var d Date
	if err := json.Unmarshal([]byte(`"01/01/2024"`), &d); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}
