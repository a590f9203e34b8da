package services

import (
	"context"
	"errors"
	"testing"

	"sicof/internal/core"
	"sicof/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosingService_CloseYear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.credit(t, 2023, 1000)
	b := f.credit(t, 2023, 500)
	other := f.credit(t, 2024, 700)
	f.expense(t, core.StatusCommitted, committed(a.ID, 300))

	closing, err := f.svc.Closings.CloseYear(ctx, 2023, "  auditor  ")
	require.NoError(t, err)
	assert.Equal(t, core.Reais(1200), closing.TotalReturned)
	assert.Equal(t, "auditor", closing.ResponsibleUser)
	assert.Equal(t, "2024-06-15", closing.ClosingDate.String())

	for _, id := range []string{a.ID, b.ID} {
		v, err := f.svc.Credits.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, v.Closed, "credit %s must be closed", id)
	}
	v, err := f.svc.Credits.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, v.Closed)

	types := f.events.Types()
	assert.Equal(t, events.YearClosed, types[len(types)-1])

	_, err = f.svc.Closings.CloseYear(ctx, 2023, "auditor")
	var ve *core.ValidationError
	assert.True(t, errors.As(err, &ve), "closing twice must fail, got %v", err)

	_, err = f.svc.Closings.CloseYear(ctx, 2030, "auditor")
	assert.True(t, errors.As(err, &ve), "empty year must fail, got %v", err)

	_, err = f.svc.Closings.CloseYear(ctx, 2024, "")
	assert.True(t, errors.As(err, &ve), "user is required, got %v", err)

	_, err = f.svc.Closings.CloseYear(ctx, 2024, "auditor")
	require.NoError(t, err)
	list, err := f.svc.Closings.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2024, list[0].FiscalYear)
}

func TestClosingService_ExpensesStillAccepted(t *testing.T) {
	f := newFixture(t)
	c := f.credit(t, 2023, 1000)
	_, err := f.svc.Closings.CloseYear(context.Background(), 2023, "auditor")
	require.NoError(t, err)
	f.expense(t, core.StatusPlanned, planned(c.ID, 10))
}
