package services

import (
	"context"
	"testing"

	"sicof/internal/core"
	"sicof/internal/reports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_Summary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.credit(t, 2024, 1000)
	b := f.credit(t, 2023, 500)
	f.expense(t, core.StatusCommitted, committed(a.ID, 100))
	f.expense(t, core.StatusPaid, paid(a.ID, 50), paid(b.ID, 20))

	all, err := f.svc.Dashboard.Summary(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Totals.CreditCount)
	assert.Equal(t, core.Reais(1500), all.Totals.GlobalValue)
	assert.Equal(t, core.Reais(170), all.Totals.Committed)
	assert.Equal(t, core.Reais(70), all.Totals.PaidLiquidated)
	assert.Equal(t, core.Reais(1260), all.Totals.Available)
	assert.Equal(t, []int{2024, 2023}, all.Years)
	require.Len(t, all.Chart, 2)
	assert.Equal(t, 2023, all.Chart[0].FiscalYear)
	assert.Len(t, all.RecentExpenses, 2)
	// both first obligations are due before 2024-06-15
	assert.Equal(t, 2, all.OverdueObligations)

	y, err := f.svc.Dashboard.Summary(ctx, 2023)
	require.NoError(t, err)
	assert.Equal(t, 1, y.Totals.CreditCount)
	assert.Equal(t, core.Reais(40), y.Totals.Committed.Add(y.Totals.PaidLiquidated))
	require.Len(t, y.Chart, 1)
	assert.Equal(t, core.ChartPoint{FiscalYear: 2023, GlobalValue: core.Reais(500)}, y.Chart[0])
	assert.Equal(t, []int{2024, 2023}, y.Years)
	assert.Len(t, y.RecentExpenses, 1)
	assert.Equal(t, 1, y.OverdueObligations)
	require.Len(t, y.Pie, 1)
	assert.Equal(t, core.Reais(500), y.Pie[0].Value)
}

func TestDashboardService_Empty(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.Dashboard.Summary(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, d.Totals.CreditCount)
	assert.Empty(t, d.Years)
	assert.Empty(t, d.RecentExpenses)
}

func TestReportService_Build(t *testing.T) {
	f := newFixture(t)
	old := f.credit(t, 2023, 100)
	cur := f.credit(t, 2024, 200)
	f.expense(t, core.StatusPaid, paid(old.ID, 10))
	f.expense(t, core.StatusPaid, paid(cur.ID, 20))
	ctx := context.Background()

	tbl, err := f.svc.Reports.Build(ctx, reports.NameLiquidatedExpenses, 2024)
	require.NoError(t, err)
	rows := tbl.Rows.([]reports.LiquidatedExpenseRow)
	require.Len(t, rows, 1)
	assert.Equal(t, "20.00", rows[0].TotalValue)

	_, err = f.svc.Reports.Build(ctx, "nope", 0)
	assert.ErrorIs(t, err, reports.ErrUnknownReport)
}
