// Package reports projects credits and expenses into flat tables for CSV
// export and spreadsheet tabs.
package reports

import (
	"sort"
	"strings"

	"sicof/internal/core"

	"github.com/shopspring/decimal"
)

const (
	StatusComplete = "Complete"
	StatusPending  = "Pending"
)

type BudgetExecutionRow struct {
	Code            string `json:"code" csv:"Code"`
	FiscalYear      int    `json:"fiscalYear" csv:"Fiscal Year"`
	Axes            string `json:"axes" csv:"Axes"`
	Origin          string `json:"origin" csv:"Origin"`
	GlobalValue     string `json:"globalValue" csv:"Global Value"`
	Committed       string `json:"committed" csv:"Committed"`
	Paid            string `json:"paid" csv:"Paid"`
	Available       string `json:"available" csv:"Available"`
	PercentExecuted string `json:"percentExecuted" csv:"% Executed"`
}

type AxisRow struct {
	Axis        string `json:"axis" csv:"Axis"`
	CreditCount int    `json:"creditCount" csv:"Credits"`
	GlobalValue string `json:"globalValue" csv:"Global Value"`
	Committed   string `json:"committed" csv:"Committed"`
	Paid        string `json:"paid" csv:"Paid"`
}

type LiquidatedExpenseRow struct {
	Object             string `json:"object" csv:"Object"`
	ProcessNumber      string `json:"processNumber" csv:"Process Number"`
	Status             string `json:"status" csv:"Status"`
	TotalValue         string `json:"totalValue" csv:"Total Value"`
	Credits            string `json:"credits" csv:"Credits"`
	AccountabilityDate string `json:"accountabilityDate" csv:"Accountability Date"`
}

type ComplianceRow struct {
	Code               string `json:"code" csv:"Code"`
	FiscalYear         int    `json:"fiscalYear" csv:"Fiscal Year"`
	Expenses           int    `json:"expenses" csv:"Expenses"`
	WithAccountability int    `json:"withAccountability" csv:"With Accountability"`
	PercentCompliance  string `json:"percentCompliance" csv:"% Compliance"`
	Status             string `json:"status" csv:"Status"`
}

// BudgetExecution has one row per credit. Percent executed is paid over
// global value.
func BudgetExecution(credits []core.Credit, expenses []core.Expense) []BudgetExecutionRow {
	balances := core.BalancesByCredit(credits, expenses)
	codes := codesByID(credits)
	rows := make([]BudgetExecutionRow, 0, len(credits))
	for _, c := range sortedCredits(credits) {
		b := balances[c.ID]
		rows = append(rows, BudgetExecutionRow{
			Code:            c.Code,
			FiscalYear:      c.FiscalYear,
			Axes:            strings.Join(c.Axes, ", "),
			Origin:          describeOrigin(c.Origin, codes),
			GlobalValue:     c.GlobalValue.String(),
			Committed:       b.Committed.String(),
			Paid:            b.Paid.String(),
			Available:       b.Available.String(),
			PercentExecuted: percent(b.Paid.Percent(c.GlobalValue)),
		})
	}
	return rows
}

// CreditsByAxis groups credits by axis label. A credit tagged with several
// axes counts fully in each.
func CreditsByAxis(credits []core.Credit, expenses []core.Expense) []AxisRow {
	type acc struct {
		count                   int
		global, committed, paid core.Money
	}
	balances := core.BalancesByCredit(credits, expenses)
	groups := make(map[string]*acc)
	for _, c := range credits {
		b := balances[c.ID]
		for _, axis := range c.Axes {
			g, ok := groups[axis]
			if !ok {
				g = &acc{}
				groups[axis] = g
			}
			g.count++
			g.global = g.global.Add(c.GlobalValue)
			g.committed = g.committed.Add(b.Committed)
			g.paid = g.paid.Add(b.Paid)
		}
	}
	axes := make([]string, 0, len(groups))
	for axis := range groups {
		axes = append(axes, axis)
	}
	sort.Strings(axes)

	rows := make([]AxisRow, 0, len(axes))
	for _, axis := range axes {
		g := groups[axis]
		rows = append(rows, AxisRow{
			Axis:        axis,
			CreditCount: g.count,
			GlobalValue: g.global.String(),
			Committed:   g.committed.String(),
			Paid:        g.paid.String(),
		})
	}
	return rows
}

// LiquidatedExpenses lists Liquidated and Paid expenses with the codes of
// every credit funding them. Unknown credits are skipped.
func LiquidatedExpenses(credits []core.Credit, expenses []core.Expense) []LiquidatedExpenseRow {
	codes := codesByID(credits)
	rows := make([]LiquidatedExpenseRow, 0)
	for _, e := range expenses {
		if !e.Status.IsLiquidated() {
			continue
		}
		var names []string
		for _, id := range e.CreditIDs() {
			if code, ok := codes[id]; ok {
				names = append(names, code)
			}
		}
		date := ""
		if !e.AccountabilityDate.IsZero() {
			date = e.AccountabilityDate.String()
		}
		rows = append(rows, LiquidatedExpenseRow{
			Object:             e.Object,
			ProcessNumber:      e.ProcessNumber,
			Status:             string(e.Status),
			TotalValue:         e.TotalValue.String(),
			Credits:            strings.Join(names, ", "),
			AccountabilityDate: date,
		})
	}
	return rows
}

// Compliance reports, per credit, how many of the expenses it funds carry an
// accountability date. A credit is Complete only at 100%; one without
// expenses is Pending.
func Compliance(credits []core.Credit, expenses []core.Expense) []ComplianceRow {
	rows := make([]ComplianceRow, 0, len(credits))
	for _, c := range sortedCredits(credits) {
		var total, done int
		for _, e := range expenses {
			if !fundedBy(e, c.ID) {
				continue
			}
			total++
			if !e.AccountabilityDate.IsZero() {
				done++
			}
		}
		pct := decimal.Zero
		if total > 0 {
			pct = decimal.NewFromInt(int64(done)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(total)))
		}
		status := StatusPending
		if total > 0 && done == total {
			status = StatusComplete
		}
		rows = append(rows, ComplianceRow{
			Code:               c.Code,
			FiscalYear:         c.FiscalYear,
			Expenses:           total,
			WithAccountability: done,
			PercentCompliance:  percent(pct),
			Status:             status,
		})
	}
	return rows
}

func fundedBy(e core.Expense, creditID string) bool {
	for _, fs := range e.FundingSources {
		if fs.CreditID == creditID {
			return true
		}
	}
	return false
}

func describeOrigin(o core.Origin, codes map[string]string) string {
	switch o.Kind {
	case core.OriginPriorYears:
		names := make([]string, 0, len(o.SourceCreditIDs))
		for _, id := range o.SourceCreditIDs {
			if code, ok := codes[id]; ok {
				names = append(names, code)
			} else {
				names = append(names, id)
			}
		}
		return "Prior years: " + strings.Join(names, ", ")
	default:
		if o.Description == "" {
			return "Current year"
		}
		return "Current year: " + o.Description
	}
}

func codesByID(credits []core.Credit) map[string]string {
	out := make(map[string]string, len(credits))
	for _, c := range credits {
		out[c.ID] = c.Code
	}
	return out
}

func sortedCredits(credits []core.Credit) []core.Credit {
	out := append([]core.Credit(nil), credits...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FiscalYear != out[j].FiscalYear {
			return out[i].FiscalYear < out[j].FiscalYear
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func percent(d decimal.Decimal) string {
	return d.StringFixed(2)
}
