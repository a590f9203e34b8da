package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PieLabelMaxRunes bounds axis names shown in the axis breakdown.
const PieLabelMaxRunes = 30

const (
	HealthAvailable CreditHealth = "Available"
	HealthAttention CreditHealth = "Attention"
	HealthCritical  CreditHealth = "Critical"
)

type (
	// CreditHealth grades how much of a credit is still available.
	CreditHealth string

	// DashboardTotals is the headline block of the dashboard.
	DashboardTotals struct {
		GlobalValue    Money `json:"globalValue"`
		Committed      Money `json:"committed"`
		PaidLiquidated Money `json:"paidLiquidated"`
		Available      Money `json:"available"`
		CreditCount    int   `json:"creditCount"`
	}

	// ChartPoint is the global value of all credits of one fiscal year.
	ChartPoint struct {
		FiscalYear  int   `json:"fiscalYear"`
		GlobalValue Money `json:"globalValue"`
	}

	// PiePoint is the global value of the credits tagged with one axis.
	PiePoint struct {
		Axis  string `json:"axis"`
		Name  string `json:"name"`
		Value Money  `json:"value"`
	}
)

// HealthFor grades available against global using the whole percentage
// left, rounded half away from zero: above 50 is Available, above 20 is
// Attention, anything less is Critical.
func HealthFor(b Balances, global Money) CreditHealth {
	if global.Cents <= 0 {
		return HealthCritical
	}
	left := decimal.NewFromInt(b.Available.Cents).Mul(hundred).
		Div(decimal.NewFromInt(global.Cents)).Round(0).IntPart()
	switch {
	case left > 50:
		return HealthAvailable
	case left > 20:
		return HealthAttention
	default:
		return HealthCritical
	}
}

// FilterCreditsByYear keeps credits of fiscalYear; 0 keeps everything.
func FilterCreditsByYear(credits []Credit, fiscalYear int) []Credit {
	if fiscalYear == 0 {
		return credits
	}
	out := make([]Credit, 0, len(credits))
	for _, c := range credits {
		if c.FiscalYear == fiscalYear {
			out = append(out, c)
		}
	}
	return out
}

// ChartByYear sums global values per fiscal year, oldest first.
func ChartByYear(credits []Credit) []ChartPoint {
	sums := make(map[int]Money)
	for _, c := range credits {
		sums[c.FiscalYear] = sums[c.FiscalYear].Add(c.GlobalValue)
	}
	out := make([]ChartPoint, 0, len(sums))
	for year, v := range sums {
		out = append(out, ChartPoint{FiscalYear: year, GlobalValue: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiscalYear < out[j].FiscalYear })
	return out
}

// PieByAxis sums global values per axis. A credit tagged with several axes
// counts fully in each of them. Points are ordered by axis name.
func PieByAxis(credits []Credit) []PiePoint {
	sums := make(map[string]Money)
	for _, c := range credits {
		for _, axis := range c.Axes {
			sums[axis] = sums[axis].Add(c.GlobalValue)
		}
	}
	out := make([]PiePoint, 0, len(sums))
	for axis, v := range sums {
		out = append(out, PiePoint{Axis: axis, Name: Truncate(axis, PieLabelMaxRunes), Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Axis < out[j].Axis })
	return out
}

// Truncate shortens s to max runes followed by "..." when it is longer.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// LastMovement is the latest payment date among the expense's sources, or
// the latest commitment date when nothing was paid yet.
func (e Expense) LastMovement() Date {
	var paid, committed Date
	for _, fs := range e.FundingSources {
		if fs.PaymentDate.After(paid) {
			paid = fs.PaymentDate
		}
		if fs.CommitmentDate.After(committed) {
			committed = fs.CommitmentDate
		}
	}
	if !paid.IsZero() {
		return paid
	}
	return committed
}

// RecentExpenses returns up to limit expenses ordered by LastMovement, most
// recent first. When fiscalYear is set only expenses drawing on at least one
// credit of that year are considered.
func RecentExpenses(credits []Credit, expenses []Expense, fiscalYear, limit int) []Expense {
	candidates := expenses
	if fiscalYear != 0 {
		inYear := make(map[string]struct{})
		for _, c := range credits {
			if c.FiscalYear == fiscalYear {
				inYear[c.ID] = struct{}{}
			}
		}
		candidates = make([]Expense, 0, len(expenses))
		for _, e := range expenses {
			for _, fs := range e.FundingSources {
				if _, ok := inYear[fs.CreditID]; ok {
					candidates = append(candidates, e)
					break
				}
			}
		}
	}
	sorted := make([]Expense, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastMovement().After(sorted[j].LastMovement())
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// AvailableYears lists the distinct fiscal years of credits, newest first.
func AvailableYears(credits []Credit) []int {
	seen := make(map[int]struct{})
	years := make([]int, 0)
	for _, c := range credits {
		if _, ok := seen[c.FiscalYear]; ok {
			continue
		}
		seen[c.FiscalYear] = struct{}{}
		years = append(years, c.FiscalYear)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}
