package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"sicof/internal/core"
	"sicof/internal/events"
	"sicof/internal/log"
	"sicof/internal/storage"
)

// ClosingService runs the annual closing: every credit of a year is closed
// and what is left available is recorded as returned.
type ClosingService struct {
	deps Deps
}

func NewClosingService(deps Deps) *ClosingService {
	return &ClosingService{deps: deps.withDefaults()}
}

// CloseYear closes fiscalYear on behalf of responsibleUser. A year can be
// closed once and must have at least one credit.
func (s *ClosingService) CloseYear(ctx context.Context, fiscalYear int, responsibleUser string) (core.AnnualClosing, error) {
	closing := core.AnnualClosing{
		FiscalYear:      fiscalYear,
		ClosingDate:     s.deps.today(),
		ResponsibleUser: strings.TrimSpace(responsibleUser),
	}
	if err := closing.Validate(); err != nil {
		return core.AnnualClosing{}, err
	}
	l, err := loadLedger(ctx, s.deps.Store, withCredits|withExpenses|withClosings)
	if err != nil {
		return core.AnnualClosing{}, err
	}
	if l.yearClosed(fiscalYear) {
		return core.AnnualClosing{}, core.NewValidationError("fiscalYear", fmt.Sprintf("%d is already closed", fiscalYear))
	}
	credits := core.FilterCreditsByYear(l.credits, fiscalYear)
	if len(credits) == 0 {
		return core.AnnualClosing{}, core.NewValidationError("fiscalYear", fmt.Sprintf("no credits in %d", fiscalYear))
	}

	balances := core.BalancesByCredit(credits, l.expenses)
	ids := make([]string, 0, len(credits))
	for _, c := range credits {
		closing.TotalReturned = closing.TotalReturned.Add(balances[c.ID].Available)
		ids = append(ids, c.ID)
		if c.Closed {
			continue
		}
		c.Closed = true
		c.ClosedAt = closing.ClosingDate
		if err := storage.PutDoc(ctx, s.deps.Store, storage.Credits, c.ID, c); err != nil {
			return core.AnnualClosing{}, fmt.Errorf("close credit %s: %w", c.ID, err)
		}
	}

	id, err := s.deps.Store.GenerateID(ctx, storage.Closings)
	if err != nil {
		return core.AnnualClosing{}, core.WrapStore("generate closing id", err)
	}
	closing.ID = id
	if err := storage.PutDoc(ctx, s.deps.Store, storage.Closings, id, closing); err != nil {
		return core.AnnualClosing{}, fmt.Errorf("save closing: %w", err)
	}
	s.deps.mutated(ctx, log.ComponentClosing, log.OpClose,
		log.NewFields().
			With(log.FieldFiscalYear, fiscalYear).
			With("credits", len(credits)).
			With("returned_cents", closing.TotalReturned.Cents))
	s.deps.publish(ctx, events.New(events.YearClosed, id, ids...))
	return closing, nil
}

// List returns closings, most recent fiscal year first.
func (s *ClosingService) List(ctx context.Context) ([]core.AnnualClosing, error) {
	closings, err := storage.ListDocs[core.AnnualClosing](ctx, s.deps.Store, storage.Closings)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(closings, func(i, j int) bool {
		return closings[i].FiscalYear > closings[j].FiscalYear
	})
	return closings, nil
}
