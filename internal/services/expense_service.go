package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sicof/internal/core"
	"sicof/internal/events"
	"sicof/internal/log"
	"sicof/internal/metrics"
	"sicof/internal/storage"
)

// ExpenseService validates expenses against the credits they draw on before
// persisting them.
type ExpenseService struct {
	deps Deps
}

func NewExpenseService(deps Deps) *ExpenseService {
	return &ExpenseService{deps: deps.withDefaults()}
}

// prepare normalises e before validation: missing funding source ids are
// generated and the total is derived from the sources.
func prepare(e *core.Expense) {
	e.Object = strings.TrimSpace(e.Object)
	e.ProcessNumber = strings.TrimSpace(e.ProcessNumber)
	for i := range e.FundingSources {
		if strings.TrimSpace(e.FundingSources[i].ID) == "" {
			e.FundingSources[i].ID = storage.NewID()
		}
	}
	e.RecomputeTotal()
}

// Create stores a new expense after checking its fields and that every
// credit it draws on can afford it.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = ""
	prepare(&e)
	if err := s.check(ctx, e, ""); err != nil {
		return core.Expense{}, err
	}

	id, err := s.deps.Store.GenerateID(ctx, storage.Expenses)
	if err != nil {
		return core.Expense{}, core.WrapStore("generate expense id", err)
	}
	e.ID = id
	if err := storage.PutDoc(ctx, s.deps.Store, storage.Expenses, id, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.deps.mutated(ctx, log.ComponentExpense, log.OpCreate,
		log.NewFields().WithExpense(id, string(e.Status), e.TotalValue.Cents))
	s.deps.publish(ctx, events.New(events.ExpenseCreated, id, e.CreditIDs()...))
	return e, nil
}

// Update replaces expense id. Its own previous draw is not counted against
// the new allocation.
func (s *ExpenseService) Update(ctx context.Context, id string, e core.Expense) (core.Expense, error) {
	existing, err := storage.GetDoc[core.Expense](ctx, s.deps.Store, storage.Expenses, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	e.ID = id
	prepare(&e)
	if err := s.check(ctx, e, id); err != nil {
		return core.Expense{}, err
	}
	if err := storage.PutDoc(ctx, s.deps.Store, storage.Expenses, id, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.deps.mutated(ctx, log.ComponentExpense, log.OpUpdate,
		log.NewFields().WithExpense(id, string(e.Status), e.TotalValue.Cents))
	s.deps.publish(ctx, events.New(events.ExpenseUpdated, id, unionIDs(existing.CreditIDs(), e.CreditIDs())...))
	return e, nil
}

func (s *ExpenseService) check(ctx context.Context, e core.Expense, excludingID string) error {
	if err := e.Validate(); err != nil {
		metrics.FundingRejections.WithLabelValues("validation").Inc()
		return err
	}
	return s.ValidateFunding(ctx, e.FundingSources, excludingID)
}

// ValidateFunding checks candidates against current balances without
// writing anything. excludingID names the expense being edited, if any.
func (s *ExpenseService) ValidateFunding(ctx context.Context, candidates []core.FundingSource, excludingID string) error {
	l, err := loadLedger(ctx, s.deps.Store, withCredits|withExpenses)
	if err != nil {
		return err
	}
	err = core.ValidateFunding(l.credits, l.expenses, candidates, excludingID)
	var insufficient *core.InsufficientBalanceError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &insufficient):
		metrics.FundingRejections.WithLabelValues("insufficient_balance").Inc()
		s.deps.Logger.WithComponent(log.ComponentExpense).InfoContext(ctx, "Funding rejected",
			log.NewFields().
				With(log.FieldCreditID, insufficient.CreditID).
				With("available_cents", insufficient.Available.Cents).
				With("requested_cents", insufficient.Requested.Cents).
				WithError(err, log.ErrorTypeBalance).
				ToSlice()...)
	default:
		metrics.FundingRejections.WithLabelValues("validation").Inc()
	}
	return err
}

// Delete removes expense id. Balances of its credits recompute on read.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	existing, err := storage.GetDoc[core.Expense](ctx, s.deps.Store, storage.Expenses, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if err := storage.RemoveDoc(ctx, s.deps.Store, storage.Expenses, id); err != nil {
		return fmt.Errorf("remove expense: %w", err)
	}
	s.deps.mutated(ctx, log.ComponentExpense, log.OpDelete,
		log.NewFields().WithExpense(id, string(existing.Status), existing.TotalValue.Cents))
	s.deps.publish(ctx, events.New(events.ExpenseDeleted, id, existing.CreditIDs()...))
	return nil
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return storage.GetDoc[core.Expense](ctx, s.deps.Store, storage.Expenses, id)
}

// List returns expenses with the given status (empty for any) matching
// term, in creation order.
func (s *ExpenseService) List(ctx context.Context, status core.ExpenseStatus, term string) ([]core.Expense, error) {
	if status != "" && !status.IsValid() {
		return nil, core.NewValidationError("status", "unknown status "+string(status))
	}
	expenses, err := storage.ListDocs[core.Expense](ctx, s.deps.Store, storage.Expenses)
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if status != "" && e.Status != status {
			continue
		}
		if matchesExpense(e, term) {
			out = append(out, e)
		}
	}
	return out, nil
}

func unionIDs(a, b []string) []string {
	return dedupe(append(append([]string(nil), a...), b...))
}
