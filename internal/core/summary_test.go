package core

import (
	"strings"
	"testing"
)

func TestHealthFor(t *testing.T) {
	global := Money{Cents: 10000}
	cases := []struct {
		available int64
		want      CreditHealth
	}{
		{10000, HealthAvailable},
		{5050, HealthAvailable}, // 50.5% rounds to 51
		{5049, HealthAttention}, // 50.49% rounds to 50
		{5030, HealthAttention}, // 50.3%
		{5000, HealthAttention},
		{2050, HealthAttention}, // 20.5% rounds to 21
		{2049, HealthCritical},  // 20.49% rounds to 20
		{2000, HealthCritical},
		{-10, HealthCritical},
	}
	for i, tc := range cases {
		got := HealthFor(Balances{Available: Money{Cents: tc.available}}, global)
		if got != tc.want {
			t.Fatalf("case %d expected %s, got %s", i, tc.want, got)
		}
	}
}

func TestChartAndPie(t *testing.T) {
	long := strings.Repeat("á", 35)
	credits := []Credit{
		{ID: "a", FiscalYear: 2024, Axes: []string{"Health", long}, GlobalValue: Reais(10)},
		{ID: "b", FiscalYear: 2022, Axes: []string{"Health"}, GlobalValue: Reais(5)},
		{ID: "c", FiscalYear: 2024, Axes: []string{"Education"}, GlobalValue: Reais(1)},
	}

	chart := ChartByYear(credits)
	if len(chart) != 2 || chart[0].FiscalYear != 2022 || chart[1].GlobalValue != Reais(11) {
		t.Fatalf("unexpected chart %+v", chart)
	}

	pie := PieByAxis(credits)
	if len(pie) != 3 {
		t.Fatalf("expected 3 axes, got %+v", pie)
	}
	byAxis := make(map[string]PiePoint)
	for _, p := range pie {
		byAxis[p.Axis] = p
	}
	if byAxis["Health"].Value != Reais(15) {
		t.Fatalf("multi-axis credit must count in each axis: %+v", byAxis["Health"])
	}
	if got := byAxis[long].Name; got != strings.Repeat("á", 30)+"..." {
		t.Fatalf("unexpected truncated name %q", got)
	}

	if years := AvailableYears(credits); len(years) != 2 || years[0] != 2024 || years[1] != 2022 {
		t.Fatalf("unexpected years %v", years)
	}
}

func TestRecentExpenses(t *testing.T) {
	credits := []Credit{{ID: "old", FiscalYear: 2023}, {ID: "new", FiscalYear: 2024}}
	mk := func(id, credit string, committed, paid Date) Expense {
		fs := FundingSource{CreditID: credit, CommitmentNote: "NE", CommitmentDate: committed}
		if !paid.IsZero() {
			fs.PaymentOrder, fs.PaymentDate = "OB", paid
		}
		return Expense{ID: id, FundingSources: []FundingSource{fs}}
	}
	expenses := []Expense{
		mk("e1", "new", NewDate(2024, 1, 10), Date{}),
		mk("e2", "new", NewDate(2024, 1, 1), NewDate(2024, 3, 1)),
		mk("e3", "old", NewDate(2023, 6, 1), Date{}),
		mk("e4", "new", NewDate(2024, 2, 1), Date{}),
		mk("e5", "new", Date{}, Date{}),
		mk("e6", "new", NewDate(2024, 1, 5), Date{}),
	}

	got := RecentExpenses(credits, expenses, 0, 5)
	want := []string{"e2", "e4", "e1", "e6", "e3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d expenses, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("position %d expected %s, got %s", i, want[i], got[i].ID)
		}
	}

	only2023 := RecentExpenses(credits, expenses, 2023, 5)
	if len(only2023) != 1 || only2023[0].ID != "e3" {
		t.Fatalf("unexpected 2023 expenses %+v", only2023)
	}
}
