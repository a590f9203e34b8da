package core

import "fmt"

// Balances is the derived position of one credit.
//
// Committed and Paid only count funding sources carrying the matching
// markers. A source allocated to an expense but not yet committed does not
// reduce Available. Available is never clamped and may be negative.
type Balances struct {
	Committed Money `json:"committed"`
	Paid      Money `json:"paid"`
	Available Money `json:"available"`
}

// ComputeCreditBalances aggregates every funding source that draws on credit.
func ComputeCreditBalances(credit Credit, expenses []Expense) Balances {
	var b Balances
	for _, e := range expenses {
		for _, fs := range e.FundingSources {
			if fs.CreditID != credit.ID {
				continue
			}
			accumulate(&b, fs)
		}
	}
	b.Available = credit.GlobalValue.Sub(b.Committed.Add(b.Paid))
	return b
}

// BalancesByCredit computes the balances of every credit in one pass over
// the expenses. Sources pointing at unknown credits are ignored.
func BalancesByCredit(credits []Credit, expenses []Expense) map[string]Balances {
	out := make(map[string]Balances, len(credits))
	for _, c := range credits {
		out[c.ID] = Balances{}
	}
	for _, e := range expenses {
		for _, fs := range e.FundingSources {
			b, ok := out[fs.CreditID]
			if !ok {
				continue
			}
			accumulate(&b, fs)
			out[fs.CreditID] = b
		}
	}
	for _, c := range credits {
		b := out[c.ID]
		b.Available = c.GlobalValue.Sub(b.Committed.Add(b.Paid))
		out[c.ID] = b
	}
	return out
}

func accumulate(b *Balances, fs FundingSource) {
	if fs.IsCommitted() {
		b.Committed = b.Committed.Add(fs.AmountUsed)
	}
	if fs.IsPaid() {
		b.Paid = b.Paid.Add(fs.AmountUsed)
	}
}

// ValidateFunding checks a candidate allocation against the available
// balance of every credit it draws on. When excludingExpenseID is set, that
// expense's current draw is added back first so an edit is not charged for
// its own previous allocation.
//
// Every amount must be positive. Requests against the same credit are
// summed before comparing. The check
// is inclusive: requesting exactly the available balance is accepted. No
// partial result is returned; the first failing credit is reported.
func ValidateFunding(credits []Credit, expenses []Expense, candidates []FundingSource, excludingExpenseID string) error {
	byID := make(map[string]Credit, len(credits))
	for _, c := range credits {
		byID[c.ID] = c
	}

	others := expenses
	if excludingExpenseID != "" {
		others = make([]Expense, 0, len(expenses))
		for _, e := range expenses {
			if e.ID != excludingExpenseID {
				others = append(others, e)
			}
		}
	}

	requested := make(map[string]Money)
	var order []string
	invalid := &ValidationError{}
	for i, fs := range candidates {
		if !fs.AmountUsed.IsPositive() {
			invalid.Add(fmt.Sprintf("fundingSources[%d].amountUsed", i), "must be greater than zero")
			continue
		}
		if _, ok := byID[fs.CreditID]; !ok {
			invalid.Add(fmt.Sprintf("fundingSources[%d].creditId", i), "unknown credit "+fs.CreditID)
			continue
		}
		if _, seen := requested[fs.CreditID]; !seen {
			order = append(order, fs.CreditID)
		}
		requested[fs.CreditID] = requested[fs.CreditID].Add(fs.AmountUsed)
	}
	if err := invalid.Err(); err != nil {
		return err
	}

	for _, id := range order {
		available := ComputeCreditBalances(byID[id], others).Available
		if requested[id].Cents > available.Cents {
			return &InsufficientBalanceError{
				CreditID:  id,
				Available: available,
				Requested: requested[id],
			}
		}
	}
	return nil
}

// ComputeDashboardTotals sums credits of fiscalYear (0 means every year) and
// the committed and paid draws on them.
func ComputeDashboardTotals(credits []Credit, expenses []Expense, fiscalYear int) DashboardTotals {
	var t DashboardTotals
	inScope := make(map[string]struct{}, len(credits))
	for _, c := range credits {
		if fiscalYear != 0 && c.FiscalYear != fiscalYear {
			continue
		}
		inScope[c.ID] = struct{}{}
		t.GlobalValue = t.GlobalValue.Add(c.GlobalValue)
		t.CreditCount++
	}
	for _, e := range expenses {
		for _, fs := range e.FundingSources {
			if _, ok := inScope[fs.CreditID]; !ok {
				continue
			}
			if fs.IsCommitted() {
				t.Committed = t.Committed.Add(fs.AmountUsed)
			}
			if fs.IsPaid() {
				t.PaidLiquidated = t.PaidLiquidated.Add(fs.AmountUsed)
			}
		}
	}
	t.Available = t.GlobalValue.Sub(t.PaidLiquidated.Add(t.Committed))
	return t
}
