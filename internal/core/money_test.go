package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseBRL(t *testing.T) {
	cases := []struct {
		in  string
		out int64
	}{
		{"R$ 1.234,56", 123456},
		{"1.234.567,89", 123456789},
		{"1234.56", 123456},
		{"0,5", 50},
	}
	for _, tc := range cases {
		got, err := ParseBRL(tc.in)
		if err != nil || got.Cents != tc.out {
			t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
		}
	}
}

func TestMoneyBRL(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "R$ 0,00"},
		{5, "R$ 0,05"},
		{123456, "R$ 1.234,56"},
		{100000000, "R$ 1.000.000,00"},
		{-250050, "-R$ 2.500,50"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).BRL(); got != tc.want {
			t.Fatalf("%d expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestMoneyPercent(t *testing.T) {
	if got := (Money{Cents: 2500}).Percent(Money{Cents: 10000}).StringFixed(2); got != "25.00" {
		t.Fatalf("expected 25.00, got %s", got)
	}
	if got := (Money{Cents: 1}).Percent(Money{Cents: 3}).StringFixed(2); got != "33.33" {
		t.Fatalf("expected 33.33, got %s", got)
	}
	if !(Money{Cents: 1}).Percent(Money{}).IsZero() {
		t.Fatalf("expected zero for empty total")
	}
}

func TestMoneyJSON(t *testing.T) {
	var payload struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 12.5, "b": "40000", "c": null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A.Cents != 1250 || payload.B.Cents != 4000000 || payload.C.Cents != 0 {
		t.Fatalf("unexpected values %+v", payload)
	}
	for i, raw := range []string{`"184467440737095517.16"`, `1e30`, `"-92233720368547758.09"`} {
		var m Money
		if err := json.Unmarshal([]byte(raw), &m); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("case %d: expected ErrInvalidAmount for %s, got %v (cents=%d)", i, raw, err, m.Cents)
		}
	}
	var edge Money
	if err := json.Unmarshal([]byte(`"92233720368547758.07"`), &edge); err != nil || edge.Cents != math.MaxInt64 {
		t.Fatalf("expected max cents, got %d (err=%v)", edge.Cents, err)
	}

	out, err := json.Marshal(Money{Cents: 1250})
	if err != nil || string(out) != "12.50" {
		t.Fatalf("expected 12.50, got %s (err=%v)", out, err)
	}
}
