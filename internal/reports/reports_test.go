package reports

import (
	"bytes"
	"errors"
	"testing"

	"sicof/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() ([]core.Credit, []core.Expense) {
	a := core.Credit{ID: "a", Code: "A-1", FiscalYear: 2024, Axes: []string{"Health", "Education"},
		GlobalValue: core.Reais(1000), Origin: core.CurrentYearOrigin("budget")}
	b := core.Credit{ID: "b", Code: "B-1", FiscalYear: 2023, Axes: []string{"Health"},
		GlobalValue: core.Reais(400), Origin: core.CurrentYearOrigin("")}
	c := core.Credit{ID: "c", Code: "C-1", FiscalYear: 2025, Axes: []string{"Culture"},
		GlobalValue: core.Reais(100), Origin: core.PriorYearsOrigin("b", "gone")}

	committed := func(id string, reais int64) core.FundingSource {
		return core.FundingSource{CreditID: id, AmountUsed: core.Reais(reais),
			CommitmentNote: "NE", CommitmentDate: core.NewDate(2024, 2, 1)}
	}
	paid := func(id string, reais int64) core.FundingSource {
		fs := committed(id, reais)
		fs.PaymentOrder, fs.PaymentDate = "OB", core.NewDate(2024, 3, 1)
		return fs
	}
	e1 := core.Expense{ID: "e1", Object: "Chairs, desks", ProcessNumber: "P1", Status: core.StatusPaid,
		FundingSources:     []core.FundingSource{paid("a", 250), paid("b", 100)},
		AccountabilityDate: core.NewDate(2024, 4, 1)}
	e2 := core.Expense{ID: "e2", Object: "Books", ProcessNumber: "P2", Status: core.StatusCommitted,
		FundingSources: []core.FundingSource{committed("a", 100)}}
	e3 := core.Expense{ID: "e3", Object: "Paint", ProcessNumber: "P3", Status: core.StatusLiquidated,
		FundingSources: []core.FundingSource{committed("ghost", 5)}}
	for _, e := range []*core.Expense{&e1, &e2, &e3} {
		e.RecomputeTotal()
	}
	return []core.Credit{a, b, c}, []core.Expense{e1, e2, e3}
}

func TestBudgetExecution(t *testing.T) {
	credits, expenses := fixture()
	rows := BudgetExecution(credits, expenses)
	require.Len(t, rows, 3)

	assert.Equal(t, "B-1", rows[0].Code)
	assert.Equal(t, "Current year", rows[0].Origin)
	assert.Equal(t, "25.00", rows[0].PercentExecuted)

	a := rows[1]
	assert.Equal(t, "A-1", a.Code)
	assert.Equal(t, "Health, Education", a.Axes)
	assert.Equal(t, "Current year: budget", a.Origin)
	assert.Equal(t, "1000.00", a.GlobalValue)
	assert.Equal(t, "350.00", a.Committed)
	assert.Equal(t, "250.00", a.Paid)
	assert.Equal(t, "400.00", a.Available)
	assert.Equal(t, "25.00", a.PercentExecuted)

	assert.Equal(t, "Prior years: B-1, gone", rows[2].Origin)
	assert.Equal(t, "0.00", rows[2].PercentExecuted)
}

func TestCreditsByAxis(t *testing.T) {
	credits, expenses := fixture()
	rows := CreditsByAxis(credits, expenses)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Culture", "Education", "Health"}, []string{rows[0].Axis, rows[1].Axis, rows[2].Axis})

	health := rows[2]
	assert.Equal(t, 2, health.CreditCount)
	assert.Equal(t, "1400.00", health.GlobalValue)
	assert.Equal(t, "450.00", health.Committed)
	assert.Equal(t, "350.00", health.Paid)
}

func TestLiquidatedExpenses(t *testing.T) {
	credits, expenses := fixture()
	rows := LiquidatedExpenses(credits, expenses)
	require.Len(t, rows, 2)
	assert.Equal(t, "A-1, B-1", rows[0].Credits)
	assert.Equal(t, "350.00", rows[0].TotalValue)
	assert.Equal(t, "2024-04-01", rows[0].AccountabilityDate)
	assert.Equal(t, "", rows[1].Credits, "unknown credits are skipped")
	assert.Equal(t, "", rows[1].AccountabilityDate)
}

func TestCompliance(t *testing.T) {
	credits, expenses := fixture()
	rows := Compliance(credits, expenses)
	require.Len(t, rows, 3)

	cases := []struct {
		code        string
		total, done int
		pct, status string
	}{
		{"B-1", 1, 1, "100.00", StatusComplete},
		{"A-1", 2, 1, "50.00", StatusPending},
		{"C-1", 0, 0, "0.00", StatusPending},
	}
	for i, c := range cases {
		r := rows[i]
		if r.Code != c.code || r.Expenses != c.total || r.WithAccountability != c.done ||
			r.PercentCompliance != c.pct || r.Status != c.status {
			t.Fatalf("case %d: got %+v", i, r)
		}
	}
}

func TestEmptyProjections(t *testing.T) {
	assert.Empty(t, BudgetExecution(nil, nil))
	assert.NotNil(t, BudgetExecution(nil, nil))
	assert.Empty(t, CreditsByAxis(nil, nil))
	assert.Empty(t, LiquidatedExpenses(nil, nil))
	assert.Empty(t, Compliance(nil, nil))
}

func TestWriteCSV(t *testing.T) {
	rows := []LiquidatedExpenseRow{{
		Object:        `Chairs, "ergonomic"`,
		ProcessNumber: "P1",
		Status:        "Paid",
		TotalValue:    "10.00",
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	want := "Object,Process Number,Status,Total Value,Credits,Accountability Date\n" +
		`"Chairs, ""ergonomic""",P1,Paid,10.00,,` + "\n"
	assert.Equal(t, want, buf.String())

	err := WriteCSV(&buf, []LiquidatedExpenseRow{})
	assert.True(t, errors.Is(err, core.ErrEmptyReport), "got %v", err)
}

func TestToRecordsIntColumns(t *testing.T) {
	records, err := ToRecords([]ComplianceRow{{Code: "X", FiscalYear: 2024, Expenses: 3}})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Fiscal Year", records[0][1])
	assert.Equal(t, "2024", records[1][1])
	assert.Equal(t, "3", records[1][2])
}

func TestBuild(t *testing.T) {
	credits, expenses := fixture()

	tbl, err := Build(NameLiquidatedExpenses, credits, expenses, 2023)
	require.NoError(t, err)
	rows := tbl.Rows.([]LiquidatedExpenseRow)
	require.Len(t, rows, 1)
	assert.Equal(t, "B-1", rows[0].Credits)
	assert.Len(t, tbl.Records, 2)

	tbl, err = Build(NameBudgetExecution, credits, expenses, 1999)
	require.NoError(t, err)
	assert.Nil(t, tbl.Records)
	assert.True(t, errors.Is(WriteRecords(&bytes.Buffer{}, tbl.Records), core.ErrEmptyReport))

	_, err = Build("nope", credits, expenses, 0)
	assert.True(t, errors.Is(err, ErrUnknownReport), "got %v", err)

	for i, name := range Names {
		if _, err := Build(name, credits, expenses, 0); err != nil {
			t.Fatalf("case %d: %s: %v", i, name, err)
		}
	}
}
