package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"sicof/internal/core"
	"sicof/internal/events"
	"sicof/internal/storage/memory"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Services
	store  *memory.Store
	events *events.Recorder
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), events: &events.Recorder{}, now: fixedNow}
	f.svc = New(Deps{
		Store:     f.store,
		Publisher: f.events,
		Now:       func() time.Time { return f.now },
	}, nil)
	t.Cleanup(func() { f.store.Close() })
	return f
}

func creditInput(code string, year int, reais int64, launch core.Date) core.Credit {
	return core.Credit{
		Code:        code,
		FiscalYear:  year,
		Axes:        []string{"Health"},
		GlobalValue: core.Reais(reais),
		Origin:      core.CurrentYearOrigin("state budget"),
		Nature:      "339030",
		LaunchDate:  launch,
	}
}

func (f *fixture) credit(t *testing.T, year int, reais int64) CreditView {
	t.Helper()
	c := creditInput(fmt.Sprintf("CR-%d-%d", year, reais), year, reais, core.NewDate(year, 1, 1))
	v, err := f.svc.Credits.Create(context.Background(), c)
	require.NoError(t, err)
	return v
}

func expenseInput(status core.ExpenseStatus, sources ...core.FundingSource) core.Expense {
	return core.Expense{
		Object:         "Office supplies",
		ProcessNumber:  "SEI-0001/2024",
		Status:         status,
		FundingSources: sources,
		GoalRef:        "Goal 1",
		ActionRef:      "Action 1.1",
	}
}

func (f *fixture) expense(t *testing.T, status core.ExpenseStatus, sources ...core.FundingSource) core.Expense {
	t.Helper()
	e, err := f.svc.Expenses.Create(context.Background(), expenseInput(status, sources...))
	require.NoError(t, err)
	return e
}

func planned(creditID string, reais int64) core.FundingSource {
	return core.FundingSource{CreditID: creditID, AmountUsed: core.Reais(reais)}
}

func committed(creditID string, reais int64) core.FundingSource {
	fs := planned(creditID, reais)
	fs.CommitmentNote = "2024NE00001"
	fs.CommitmentDate = core.NewDate(2024, 2, 1)
	return fs
}

func paid(creditID string, reais int64) core.FundingSource {
	fs := committed(creditID, reais)
	fs.PaymentOrder = "2024OB00001"
	fs.PaymentDate = core.NewDate(2024, 3, 1)
	return fs
}

var errTransient = errors.New("transient write failure")

// flakyStore fails chosen writes under one collection, counted from 1.
type flakyStore struct {
	*memory.Store
	collection string

	mu     sync.Mutex
	sets   int
	failAt map[int]bool
}

func (s *flakyStore) Set(ctx context.Context, path string, value json.RawMessage) error {
	if strings.HasPrefix(path, s.collection+"/") {
		s.mu.Lock()
		s.sets++
		fail := s.failAt[s.sets]
		s.mu.Unlock()
		if fail {
			return errTransient
		}
	}
	return s.Store.Set(ctx, path, value)
}

// newFlakyFixture is newFixture over a store whose failAt-th writes to
// collection fail.
func newFlakyFixture(t *testing.T, collection string, failAt ...int) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), events: &events.Recorder{}, now: fixedNow}
	flaky := &flakyStore{Store: f.store, collection: collection, failAt: map[int]bool{}}
	for _, n := range failAt {
		flaky.failAt[n] = true
	}
	f.svc = New(Deps{
		Store:     flaky,
		Publisher: f.events,
		Now:       func() time.Time { return f.now },
	}, nil)
	t.Cleanup(func() { f.store.Close() })
	return f
}
