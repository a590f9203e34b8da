package services

import (
	"context"
	"testing"

	"sicof/internal/core"
	"sicof/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryService_SearchExpenses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.credit(t, 2024, 1000)

	note := committed(c.ID, 10)
	note.CommitmentNote = "2024NE00123"
	byNote := f.expense(t, core.StatusCommitted, note)

	order := paid(c.ID, 10)
	order.PaymentOrder = "2024OB00999"
	byOrder := f.expense(t, core.StatusPaid, order)

	other := expenseInput(core.StatusPlanned, planned(c.ID, 10))
	other.Object = "Laboratory reagents"
	other.ProcessNumber = "SEI-4242"
	_, err := f.svc.Expenses.Create(ctx, other)
	require.NoError(t, err)

	cases := []struct {
		term string
		want []string
	}{
		{"2024ne00123", []string{byNote.ID}},
		{"OB00999", []string{byOrder.ID}},
	}
	for i, tc := range cases {
		got, err := f.svc.Query.SearchExpenses(ctx, tc.term)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		ids := make([]string, len(got))
		for j, e := range got {
			ids[j] = e.ID
		}
		assert.Equal(t, tc.want, ids, "case %d", i)
	}

	got, err := f.svc.Query.SearchExpenses(ctx, "reagents")
	require.NoError(t, err)
	require.Len(t, got, 1)
	got, err = f.svc.Query.SearchExpenses(ctx, "sei-4242")
	require.NoError(t, err)
	require.Len(t, got, 1)

	all, err := f.svc.Query.SearchExpenses(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestQueryService_SearchCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Credits.Create(ctx, creditInput("PT-2024.10.302", 2024, 10, core.NewDate(2024, 1, 1)))
	require.NoError(t, err)
	_, err = f.svc.Credits.Create(ctx, creditInput("PT-2024.12.361", 2024, 10, core.NewDate(2024, 1, 1)))
	require.NoError(t, err)

	got, err := f.svc.Query.SearchCredits(ctx, "pt-2024.12")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "PT-2024.12.361", got[0].Code)

	all, err := f.svc.Query.SearchCredits(ctx, " ")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestQueryService_DetailDropsDanglingSources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.credit(t, 2024, 1000)
	b := f.credit(t, 2024, 2000)
	e := f.expense(t, core.StatusPlanned, planned(a.ID, 10), planned(b.ID, 20))

	require.NoError(t, storage.RemoveDoc(ctx, f.store, storage.Credits, b.ID))

	detail, err := f.svc.Query.GetExpenseDetail(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, detail.Sources, 1)
	assert.Equal(t, a.ID, detail.Sources[0].Credit.ID)
	assert.Equal(t, a.Code, detail.Sources[0].Credit.Code)
	assert.Len(t, detail.Expense.FundingSources, 2)
}
