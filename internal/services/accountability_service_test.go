package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"sicof/internal/core"
	"sicof/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstObligation(t *testing.T, f *fixture, creditID string) ObligationView {
	t.Helper()
	list, err := f.svc.Accountability.ListByCredit(context.Background(), creditID)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	return list[0]
}

func TestAccountability_FulfilGeneratesSuccessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.credit(t, 2024, 1000)
	first := firstObligation(t, f, c.ID)

	done, next, err := f.svc.Accountability.Fulfil(ctx, first.ID, "  SEI-77  ", "delivered")
	require.NoError(t, err)
	assert.Equal(t, core.ObligationFulfilled, done.Status)
	assert.Equal(t, "SEI-77", done.FulfillmentProcessNumber)
	assert.Equal(t, "2024-06-15", done.FulfillmentDate.String())
	require.NotNil(t, next)
	assert.Equal(t, 2, next.Ordinal)
	assert.Equal(t, "2024-09-01", next.DueDate.String())
	assert.Equal(t, "2nd Obligation (due 01/09/2024)", next.PeriodLabel)
	assert.Equal(t, core.ObligationPending, next.Status)

	_, _, err = f.svc.Accountability.Fulfil(ctx, first.ID, "SEI-78", "")
	var v *core.ValidationError
	assert.True(t, errors.As(err, &v), "fulfilling twice must fail, got %v", err)

	list, err := f.svc.Accountability.ListByCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2, "a rejected fulfilment must not generate")
}

func TestAccountability_FulfilRequiresProcessNumber(t *testing.T) {
	f := newFixture(t)
	c := f.credit(t, 2024, 1000)
	first := firstObligation(t, f, c.ID)

	_, next, err := f.svc.Accountability.Fulfil(context.Background(), first.ID, " ", "")
	var v *core.ValidationError
	require.True(t, errors.As(err, &v), "got %v", err)
	assert.Nil(t, next)

	_, _, err = f.svc.Accountability.Fulfil(context.Background(), "missing", "SEI", "")
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)
}

func TestAccountability_OverdueIsReadTimeOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.credit(t, 2024, 1000)
	first := firstObligation(t, f, c.ID)

	assert.Equal(t, core.ObligationOverdue, first.Status)
	assert.Equal(t, "2024-01-01", first.OpeningDate.String())

	stored, err := storage.GetDoc[core.Obligation](ctx, f.store, storage.Obligations, first.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ObligationPending, stored.Status)

	f.now = time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	got, err := f.svc.Accountability.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ObligationPending, got.Status, "due today is not overdue")
}

func TestAccountability_LinkExpensesReplaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.credit(t, 2024, 1000)
	first := firstObligation(t, f, c.ID)

	o, err := f.svc.Accountability.LinkExpenses(ctx, first.ID, []string{"a", "b", "a", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, o.LinkedExpenseIDs)

	_, err = f.svc.Accountability.LinkExpenses(ctx, first.ID, []string{"c"})
	require.NoError(t, err)
	got, err := f.svc.Accountability.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, got.LinkedExpenseIDs)

	_, err = f.svc.Accountability.LinkExpenses(ctx, first.ID, nil)
	require.NoError(t, err)
	got, err = f.svc.Accountability.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, got.LinkedExpenseIDs)
}

func TestAccountability_CheckEligible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.credit(t, 2024, 1000)
	p := f.expense(t, core.StatusPlanned, planned(c.ID, 1))
	l := f.expense(t, core.StatusLiquidated, committed(c.ID, 1))
	pd := f.expense(t, core.StatusPaid, paid(c.ID, 1))

	require.NoError(t, f.svc.Accountability.CheckEligible(ctx, []string{l.ID, pd.ID}))

	err := f.svc.Accountability.CheckEligible(ctx, []string{l.ID, p.ID, "ghost"})
	var v *core.ValidationError
	require.True(t, errors.As(err, &v), "got %v", err)
	assert.Contains(t, v.Fields, "expenseIds[1]")
	assert.Contains(t, v.Fields, "expenseIds[2]")
	assert.NotContains(t, v.Fields, "expenseIds[0]")
}

func TestAccountability_Watch(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := f.credit(t, 2024, 1000)

	ch, err := f.svc.Accountability.Watch(ctx, c.ID)
	require.NoError(t, err)

	initial := <-ch
	require.Len(t, initial, 1)

	_, _, err = f.svc.Accountability.Fulfil(context.Background(), initial[0].ID, "SEI-1", "")
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case list := <-ch:
			if len(list) == 2 {
				assert.Equal(t, core.ObligationFulfilled, list[0].Status)
				cancel()
				for range ch {
				}
				return
			}
		case <-deadline:
			t.Fatal("watch did not deliver the successor")
		}
	}
}

func TestAccountability_FulfilRetriesAfterFailedWrite(t *testing.T) {
	// obligation writes: 1 first obligation, then successor, then fulfilment
	cases := []struct {
		failAt int
	}{
		{2}, // successor write fails, nothing changed
		{3}, // fulfilment write fails after the successor was saved
	}
	for i, tc := range cases {
		f := newFlakyFixture(t, storage.Obligations, tc.failAt)
		ctx := context.Background()
		c := f.credit(t, 2024, 1000)
		first := firstObligation(t, f, c.ID)

		_, _, err := f.svc.Accountability.Fulfil(ctx, first.ID, "SEI-1", "")
		if !errors.Is(err, errTransient) {
			t.Fatalf("case %d: expected transient failure, got %v", i, err)
		}

		done, next, err := f.svc.Accountability.Fulfil(ctx, first.ID, "SEI-1", "")
		if err != nil {
			t.Fatalf("case %d: retry failed: %v", i, err)
		}
		if done.Status != core.ObligationFulfilled || next == nil || next.Ordinal != 2 {
			t.Fatalf("case %d: unexpected result %+v next=%+v", i, done, next)
		}

		list, err := f.svc.Accountability.ListByCredit(ctx, c.ID)
		require.NoError(t, err)
		if len(list) != 2 || list[0].Status != core.ObligationFulfilled || list[1].Status != core.ObligationPending {
			t.Fatalf("case %d: expected one fulfilled and one pending obligation, got %+v", i, list)
		}
	}
}

func TestAccountability_FulfilRestoresLostSuccessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.credit(t, 2024, 1000)
	first := firstObligation(t, f, c.ID)

	_, next, err := f.svc.Accountability.Fulfil(ctx, first.ID, "SEI-1", "")
	require.NoError(t, err)
	require.NoError(t, storage.RemoveDoc(ctx, f.store, storage.Obligations, next.ID))

	done, again, err := f.svc.Accountability.Fulfil(ctx, first.ID, "SEI-2", "")
	require.NoError(t, err)
	assert.Equal(t, "SEI-1", done.FulfillmentProcessNumber, "the recorded fulfilment is kept")
	require.NotNil(t, again)
	assert.Equal(t, 2, again.Ordinal)

	list, err := f.svc.Accountability.ListByCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
