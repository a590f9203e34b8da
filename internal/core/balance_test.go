package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestComputeCreditBalances(t *testing.T) {
	credit := validCredit()

	b := ComputeCreditBalances(credit, nil)
	if !b.Committed.IsZero() || !b.Paid.IsZero() || b.Available != credit.GlobalValue {
		t.Fatalf("unreferenced credit: unexpected balances %+v", b)
	}

	expenses := []Expense{
		{ID: "e1", FundingSources: []FundingSource{{CreditID: "c1", AmountUsed: Reais(40000)}}},
		{ID: "e2", FundingSources: []FundingSource{committedSource("c1", 1000000)}},
		{ID: "e3", FundingSources: []FundingSource{paidSource("c1", 500000), committedSource("other", 700)}},
	}
	b = ComputeCreditBalances(credit, expenses)
	// e1 is only allocated; e3 is both committed and paid.
	if b.Committed.Cents != 1500000 {
		t.Fatalf("expected committed 1500000, got %d", b.Committed.Cents)
	}
	if b.Paid.Cents != 500000 {
		t.Fatalf("expected paid 500000, got %d", b.Paid.Cents)
	}
	if b.Available.Cents != 10000000-2000000 {
		t.Fatalf("expected available 8000000, got %d", b.Available.Cents)
	}
}

func TestComputeCreditBalancesNegative(t *testing.T) {
	credit := validCredit()
	credit.GlobalValue = Reais(100)
	expenses := []Expense{{FundingSources: []FundingSource{committedSource("c1", 15000)}}}
	if got := ComputeCreditBalances(credit, expenses).Available.Cents; got != -5000 {
		t.Fatalf("expected unclamped -5000, got %d", got)
	}
}

func TestBalancesByCredit(t *testing.T) {
	a, b := validCredit(), validCredit()
	b.ID = "c2"
	expenses := []Expense{{FundingSources: []FundingSource{
		committedSource("c1", 100),
		committedSource("c2", 300),
		committedSource("gone", 900),
	}}}
	got := BalancesByCredit([]Credit{a, b}, expenses)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got["c1"] != ComputeCreditBalances(a, expenses) || got["c2"] != ComputeCreditBalances(b, expenses) {
		t.Fatalf("per-credit balances disagree: %+v", got)
	}
}

func TestValidateFunding(t *testing.T) {
	credit := validCredit()
	credit.GlobalValue = Money{Cents: 10000}
	existing := []Expense{
		{ID: "e1", FundingSources: []FundingSource{committedSource("c1", 4000)}},
	}
	credits := []Credit{credit}

	cases := []struct {
		candidates []FundingSource
		excluding  string
		ok         bool
	}{
		{[]FundingSource{{CreditID: "c1", AmountUsed: Money{Cents: 6000}}}, "", true},
		{[]FundingSource{{CreditID: "c1", AmountUsed: Money{Cents: 6001}}}, "", false},
		{[]FundingSource{{CreditID: "c1", AmountUsed: Money{Cents: 3000}}, {CreditID: "c1", AmountUsed: Money{Cents: 3001}}}, "", false},
		// editing e1 from 4000 to 10000 frees its own previous draw
		{[]FundingSource{{CreditID: "c1", AmountUsed: Money{Cents: 10000}}}, "e1", true},
		{[]FundingSource{{CreditID: "c1", AmountUsed: Money{Cents: 10001}}}, "e1", false},
	}
	for i, tc := range cases {
		err := ValidateFunding(credits, existing, tc.candidates, tc.excluding)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok {
			var ib *InsufficientBalanceError
			if !errors.As(err, &ib) {
				t.Fatalf("case %d expected insufficient balance, got %v", i, err)
			}
			if ib.CreditID != "c1" {
				t.Fatalf("case %d unexpected credit %s", i, ib.CreditID)
			}
		}
	}
}

func TestValidateFundingReportsAvailableAndRequested(t *testing.T) {
	credit := validCredit()
	credit.GlobalValue = Money{Cents: 500}
	err := ValidateFunding([]Credit{credit}, nil, []FundingSource{{CreditID: "c1", AmountUsed: Money{Cents: 800}}}, "")
	var ib *InsufficientBalanceError
	if !errors.As(err, &ib) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if ib.Available.Cents != 500 || ib.Requested.Cents != 800 {
		t.Fatalf("unexpected payload %+v", ib)
	}
}

func TestValidateFundingUnknownCredit(t *testing.T) {
	err := ValidateFunding(nil, nil, []FundingSource{{CreditID: "missing", AmountUsed: Money{Cents: 1}}}, "")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := ve.Fields["fundingSources[0].creditId"]; !ok {
		t.Fatalf("unexpected fields %v", ve.Fields)
	}
}

func TestComputeDashboardTotals(t *testing.T) {
	a := validCredit()
	b := validCredit()
	b.ID, b.FiscalYear, b.GlobalValue = "c2", 2023, Reais(50)
	expenses := []Expense{{FundingSources: []FundingSource{
		paidSource("c1", 1000),
		committedSource("c2", 2000),
	}}}

	all := ComputeDashboardTotals([]Credit{a, b}, expenses, 0)
	if all.CreditCount != 2 || all.GlobalValue.Cents != 10000000+5000 {
		t.Fatalf("unexpected totals %+v", all)
	}
	if all.Committed.Cents != 3000 || all.PaidLiquidated.Cents != 1000 {
		t.Fatalf("unexpected committed/paid %+v", all)
	}
	if all.Available.Cents != 10005000-4000 {
		t.Fatalf("unexpected available %d", all.Available.Cents)
	}

	y2023 := ComputeDashboardTotals([]Credit{a, b}, expenses, 2023)
	if y2023.CreditCount != 1 || y2023.Committed.Cents != 2000 || !y2023.PaidLiquidated.IsZero() {
		t.Fatalf("unexpected 2023 totals %+v", y2023)
	}
	if y2023.Available.Cents != 3000 {
		t.Fatalf("expected 3000 available in 2023, got %d", y2023.Available.Cents)
	}
}

func TestValidateFundingRejectsNonPositiveAmounts(t *testing.T) {
	credit := validCredit()
	credit.GlobalValue = Money{Cents: 1000}
	cases := [][]FundingSource{
		{{CreditID: "c1", AmountUsed: Money{Cents: 5000}}, {CreditID: "c1", AmountUsed: Money{Cents: -4500}}},
		{{CreditID: "c1", AmountUsed: Money{}}},
	}
	for i, candidates := range cases {
		err := ValidateFunding([]Credit{credit}, nil, candidates, "")
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
		field := fmt.Sprintf("fundingSources[%d].amountUsed", len(candidates)-1)
		if _, ok := ve.Fields[field]; !ok {
			t.Fatalf("case %d: expected %s in %v", i, field, ve.Fields)
		}
	}
}
