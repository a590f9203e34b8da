package reports

import (
	"errors"
	"fmt"

	"sicof/internal/core"
)

// Report names, as used in URLs, CLI arguments and spreadsheet tab titles.
const (
	NameBudgetExecution    = "budget-execution"
	NameCreditsByAxis      = "credits-by-axis"
	NameLiquidatedExpenses = "liquidated-expenses"
	NameCompliance         = "accountability-compliance"
)

// Names lists every report in display order.
var Names = []string{NameBudgetExecution, NameCreditsByAxis, NameLiquidatedExpenses, NameCompliance}

var ErrUnknownReport = errors.New("unknown report")

// Table is one built report. Rows keeps the typed rows for JSON; Records
// is nil when there are no rows.
type Table struct {
	Name    string     `json:"name"`
	Rows    any        `json:"rows"`
	Records [][]string `json:"-"`
}

// Build projects credits and expenses into the named report. When
// fiscalYear is set, only credits of that year and the expenses drawing on
// them are considered.
func Build(name string, credits []core.Credit, expenses []core.Expense, fiscalYear int) (Table, error) {
	credits, expenses = scope(credits, expenses, fiscalYear)
	switch name {
	case NameBudgetExecution:
		return table(name, BudgetExecution(credits, expenses))
	case NameCreditsByAxis:
		return table(name, CreditsByAxis(credits, expenses))
	case NameLiquidatedExpenses:
		return table(name, LiquidatedExpenses(credits, expenses))
	case NameCompliance:
		return table(name, Compliance(credits, expenses))
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownReport, name)
	}
}

func table[T any](name string, rows []T) (Table, error) {
	t := Table{Name: name, Rows: rows}
	if len(rows) == 0 {
		return t, nil
	}
	records, err := ToRecords(rows)
	if err != nil {
		return Table{}, err
	}
	t.Records = records
	return t, nil
}

func scope(credits []core.Credit, expenses []core.Expense, fiscalYear int) ([]core.Credit, []core.Expense) {
	if fiscalYear == 0 {
		return credits, expenses
	}
	credits = core.FilterCreditsByYear(credits, fiscalYear)
	inYear := make(map[string]struct{}, len(credits))
	for _, c := range credits {
		inYear[c.ID] = struct{}{}
	}
	kept := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		for _, fs := range e.FundingSources {
			if _, ok := inYear[fs.CreditID]; ok {
				kept = append(kept, e)
				break
			}
		}
	}
	return credits, kept
}
