package services

import (
	"context"
	"errors"
	"fmt"

	"sicof/internal/core"
	"sicof/internal/storage"

	"golang.org/x/sync/errgroup"
)

// ledger is one consistent-enough read of the collections the aggregation
// engine needs. Collections are read concurrently; there is no snapshot
// isolation between them.
type ledger struct {
	credits     []core.Credit
	expenses    []core.Expense
	obligations []core.Obligation
	closings    []core.AnnualClosing
}

type ledgerParts uint8

const (
	withCredits ledgerParts = 1 << iota
	withExpenses
	withObligations
	withClosings
)

func loadLedger(ctx context.Context, s storage.DocumentStore, parts ledgerParts) (ledger, error) {
	var l ledger
	g, ctx := errgroup.WithContext(ctx)
	if parts&withCredits != 0 {
		g.Go(func() (err error) {
			l.credits, err = storage.ListDocs[core.Credit](ctx, s, storage.Credits)
			return err
		})
	}
	if parts&withExpenses != 0 {
		g.Go(func() (err error) {
			l.expenses, err = storage.ListDocs[core.Expense](ctx, s, storage.Expenses)
			return err
		})
	}
	if parts&withObligations != 0 {
		g.Go(func() (err error) {
			l.obligations, err = storage.ListDocs[core.Obligation](ctx, s, storage.Obligations)
			return err
		})
	}
	if parts&withClosings != 0 {
		g.Go(func() (err error) {
			l.closings, err = storage.ListDocs[core.AnnualClosing](ctx, s, storage.Closings)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return ledger{}, fmt.Errorf("load ledger: %w", err)
	}
	return l, nil
}

func (l ledger) credit(id string) (core.Credit, bool) {
	for _, c := range l.credits {
		if c.ID == id {
			return c, true
		}
	}
	return core.Credit{}, false
}

func (l ledger) yearClosed(year int) bool {
	for _, c := range l.closings {
		if c.FiscalYear == year {
			return true
		}
	}
	return false
}

func (l ledger) obligationsOf(creditID string) []core.Obligation {
	var out []core.Obligation
	for _, o := range l.obligations {
		if o.CreditID == creditID {
			out = append(out, o)
		}
	}
	return out
}

// notFound builds the error returned for a missing entity.
func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, core.ErrNotFound)
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
