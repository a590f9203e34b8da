package core

import (
	"errors"
	"testing"
)

func creditOf(id string, year int, origin Origin) Credit {
	c := validCredit()
	c.ID, c.Code, c.FiscalYear, c.Origin = id, "code-"+id, year, origin
	return c
}

func TestValidateOrigin(t *testing.T) {
	a := creditOf("a", 2022, CurrentYearOrigin("budget"))
	b := creditOf("b", 2023, PriorYearsOrigin("a"))
	all := []Credit{a, b}

	cases := []struct {
		c     Credit
		ok    bool
		field string
	}{
		{creditOf("", 2024, CurrentYearOrigin("x")), true, ""},
		{creditOf("", 2024, PriorYearsOrigin("a", "b")), true, ""},
		{creditOf("", 2024, PriorYearsOrigin("zzz")), false, "origin.sourceCreditIds[0]"},
		{creditOf("", 2023, PriorYearsOrigin("a", "b")), false, "origin.sourceCreditIds[1]"},
		{creditOf("", 2022, PriorYearsOrigin("a")), false, "origin.sourceCreditIds[0]"},
	}
	for i, tc := range cases {
		err := ValidateOrigin(tc.c, all)
		if tc.ok {
			if err != nil {
				t.Fatalf("case %d expected ok, got %v", i, err)
			}
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
		if _, ok := ve.Fields[tc.field]; !ok {
			t.Fatalf("case %d expected field %q in %v", i, tc.field, ve.Fields)
		}
	}
}

func TestValidateOriginCycle(t *testing.T) {
	// Stored data can hold a loop when years were edited after the fact; an
	// update that keeps pointing into the loop is rejected.
	a := creditOf("a", 2020, PriorYearsOrigin("b"))
	b := creditOf("b", 2019, PriorYearsOrigin("c"))
	c := creditOf("c", 2018, PriorYearsOrigin("a"))
	update := creditOf("a", 2022, PriorYearsOrigin("b"))

	err := ValidateOrigin(update, []Credit{a, b, c})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := ve.Fields["origin.sourceCreditIds"]; !ok {
		t.Fatalf("expected cycle error, got %v", ve.Fields)
	}
}

func TestDerivedCredits(t *testing.T) {
	a := creditOf("a", 2022, CurrentYearOrigin("budget"))
	b := creditOf("b", 2023, PriorYearsOrigin("a"))
	c := creditOf("c", 2024, PriorYearsOrigin("b", "a"))
	got := DerivedCredits("a", []Credit{a, b, c})
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("unexpected derived credits %+v", got)
	}
}
