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

// CreditView is a credit with its derived position.
type CreditView struct {
	core.Credit
	Balances core.Balances     `json:"balances"`
	Health   core.CreditHealth `json:"health"`
}

func newCreditView(c core.Credit, expenses []core.Expense) CreditView {
	b := core.ComputeCreditBalances(c, expenses)
	return CreditView{Credit: c, Balances: b, Health: core.HealthFor(b, c.GlobalValue)}
}

type CreditService struct {
	deps           Deps
	accountability *AccountabilityService
}

func NewCreditService(deps Deps, accountability *AccountabilityService) *CreditService {
	deps = deps.withDefaults()
	if accountability == nil {
		accountability = NewAccountabilityService(deps)
	}
	return &CreditService{deps: deps, accountability: accountability}
}

func (s *CreditService) logger() *log.Logger {
	return s.deps.Logger.WithComponent(log.ComponentCredit)
}

// Create validates c, stores it under a new id and opens its obligation
// schedule.
func (s *CreditService) Create(ctx context.Context, c core.Credit) (CreditView, error) {
	c.ID = ""
	c.Closed = false
	c.ClosedAt = core.Date{}
	c.Code = strings.TrimSpace(c.Code)
	if err := c.Validate(); err != nil {
		return CreditView{}, err
	}
	l, err := loadLedger(ctx, s.deps.Store, withCredits|withClosings)
	if err != nil {
		return CreditView{}, err
	}
	if l.yearClosed(c.FiscalYear) {
		return CreditView{}, fmt.Errorf("create credit in %d: %w", c.FiscalYear, core.ErrYearClosed)
	}
	if err := core.ValidateOrigin(c, l.credits); err != nil {
		return CreditView{}, err
	}

	id, err := s.deps.Store.GenerateID(ctx, storage.Credits)
	if err != nil {
		return CreditView{}, core.WrapStore("generate credit id", err)
	}
	c.ID = id
	if err := storage.PutDoc(ctx, s.deps.Store, storage.Credits, id, c); err != nil {
		return CreditView{}, fmt.Errorf("save credit: %w", err)
	}

	// a credit without its schedule is removed again so the call can be
	// repeated
	if _, err := s.accountability.generate(ctx, core.FirstObligation(c)); err != nil {
		if rmErr := storage.RemoveDoc(ctx, s.deps.Store, storage.Credits, id); rmErr != nil {
			s.logger().ErrorContext(ctx, "Credit saved without its first obligation",
				log.NewFields().WithCredit(id, c.FiscalYear).WithError(rmErr, log.ErrorTypeDatabase).ToSlice()...)
		}
		return CreditView{}, fmt.Errorf("generate first obligation of %s: %w", id, err)
	}
	s.deps.mutated(ctx, log.ComponentCredit, log.OpCreate,
		log.NewFields().WithCredit(id, c.FiscalYear).With("code", c.Code))
	s.deps.publish(ctx, events.New(events.CreditCreated, id, id))
	return newCreditView(c, nil), nil
}

// Update replaces credit id. Closing state is kept and existing obligations
// are not rescheduled.
func (s *CreditService) Update(ctx context.Context, id string, c core.Credit) (CreditView, error) {
	existing, err := storage.GetDoc[core.Credit](ctx, s.deps.Store, storage.Credits, id)
	if err != nil {
		return CreditView{}, fmt.Errorf("update credit: %w", err)
	}
	c.ID = id
	c.Closed = existing.Closed
	c.ClosedAt = existing.ClosedAt
	c.Code = strings.TrimSpace(c.Code)
	if err := c.Validate(); err != nil {
		return CreditView{}, err
	}
	l, err := loadLedger(ctx, s.deps.Store, withCredits|withExpenses)
	if err != nil {
		return CreditView{}, err
	}
	if err := core.ValidateOrigin(c, l.credits); err != nil {
		return CreditView{}, err
	}
	v := &core.ValidationError{}
	for _, d := range core.DerivedCredits(id, l.credits) {
		if d.FiscalYear <= c.FiscalYear {
			v.Add("fiscalYear", fmt.Sprintf("credit %s of %d derives from this credit and must stay in a later year", d.Code, d.FiscalYear))
		}
	}
	if err := v.Err(); err != nil {
		return CreditView{}, err
	}

	if err := storage.PutDoc(ctx, s.deps.Store, storage.Credits, id, c); err != nil {
		return CreditView{}, fmt.Errorf("save credit: %w", err)
	}
	s.deps.mutated(ctx, log.ComponentCredit, log.OpUpdate,
		log.NewFields().WithCredit(id, c.FiscalYear).With("code", c.Code))
	s.deps.publish(ctx, events.New(events.CreditUpdated, id, id))
	return newCreditView(c, l.expenses), nil
}

// Delete removes credit id and its obligations. It fails with a
// ReferentialIntegrityError while any expense still draws on it.
func (s *CreditService) Delete(ctx context.Context, id string) error {
	if _, err := storage.GetDoc[core.Credit](ctx, s.deps.Store, storage.Credits, id); err != nil {
		return fmt.Errorf("delete credit: %w", err)
	}
	l, err := loadLedger(ctx, s.deps.Store, withExpenses|withObligations)
	if err != nil {
		return err
	}
	var refs []string
	for _, e := range l.expenses {
		for _, fs := range e.FundingSources {
			if fs.CreditID == id {
				refs = append(refs, e.ID)
				break
			}
		}
	}
	if len(refs) > 0 {
		return &core.ReferentialIntegrityError{Entity: "credit", ID: id, ReferencedBy: refs}
	}

	for _, o := range l.obligationsOf(id) {
		if err := storage.RemoveDoc(ctx, s.deps.Store, storage.Obligations, o.ID); err != nil && !isNotFound(err) {
			return fmt.Errorf("remove obligations of %s: %w", id, err)
		}
	}
	if err := storage.RemoveDoc(ctx, s.deps.Store, storage.Credits, id); err != nil {
		return fmt.Errorf("remove credit: %w", err)
	}
	s.deps.mutated(ctx, log.ComponentCredit, log.OpDelete,
		log.NewFields().With(log.FieldCreditID, id).With("obligations_removed", len(l.obligationsOf(id))))
	s.deps.publish(ctx, events.New(events.CreditDeleted, id, id))
	return nil
}

func (s *CreditService) Get(ctx context.Context, id string) (CreditView, error) {
	c, err := storage.GetDoc[core.Credit](ctx, s.deps.Store, storage.Credits, id)
	if err != nil {
		return CreditView{}, err
	}
	expenses, err := storage.ListDocs[core.Expense](ctx, s.deps.Store, storage.Expenses)
	if err != nil {
		return CreditView{}, err
	}
	return newCreditView(c, expenses), nil
}

// List returns credits of fiscalYear (0 for all) whose code contains term,
// ordered by year then code.
func (s *CreditService) List(ctx context.Context, fiscalYear int, term string) ([]CreditView, error) {
	l, err := loadLedger(ctx, s.deps.Store, withCredits|withExpenses)
	if err != nil {
		return nil, err
	}
	credits := core.FilterCreditsByYear(l.credits, fiscalYear)
	balances := core.BalancesByCredit(credits, l.expenses)
	out := make([]CreditView, 0, len(credits))
	for _, c := range credits {
		if !matchesCredit(c, term) {
			continue
		}
		b := balances[c.ID]
		out = append(out, CreditView{Credit: c, Balances: b, Health: core.HealthFor(b, c.GlobalValue)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FiscalYear != out[j].FiscalYear {
			return out[i].FiscalYear < out[j].FiscalYear
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

// Close stops the obligation chain of credit id: fulfilling its open
// obligation no longer generates a successor.
func (s *CreditService) Close(ctx context.Context, id string) (CreditView, error) {
	c, err := storage.GetDoc[core.Credit](ctx, s.deps.Store, storage.Credits, id)
	if err != nil {
		return CreditView{}, fmt.Errorf("close credit: %w", err)
	}
	if c.Closed {
		return CreditView{}, core.NewValidationError("closed", "credit already closed")
	}
	c.Closed = true
	c.ClosedAt = s.deps.today()
	if err := storage.PutDoc(ctx, s.deps.Store, storage.Credits, id, c); err != nil {
		return CreditView{}, fmt.Errorf("save credit: %w", err)
	}
	s.deps.mutated(ctx, log.ComponentCredit, log.OpClose, log.NewFields().WithCredit(id, c.FiscalYear))
	s.deps.publish(ctx, events.New(events.CreditClosed, id, id))
	return s.Get(ctx, id)
}

// Reopen resumes the obligation chain of a closed credit. When no obligation
// is open, the successor of the latest fulfilled one is generated, or the
// first one if the credit has none. Credits of a closed fiscal year stay
// closed.
func (s *CreditService) Reopen(ctx context.Context, id string) (CreditView, error) {
	c, err := storage.GetDoc[core.Credit](ctx, s.deps.Store, storage.Credits, id)
	if err != nil {
		return CreditView{}, fmt.Errorf("reopen credit: %w", err)
	}
	if !c.Closed {
		return CreditView{}, core.NewValidationError("closed", "credit is not closed")
	}
	l, err := loadLedger(ctx, s.deps.Store, withObligations|withClosings)
	if err != nil {
		return CreditView{}, err
	}
	if l.yearClosed(c.FiscalYear) {
		return CreditView{}, fmt.Errorf("reopen credit %s: %w", id, core.ErrYearClosed)
	}

	// the schedule is resumed first; a retry finds the open obligation
	if next, ok := resumeSchedule(c, l.obligationsOf(id)); ok {
		if _, err := s.accountability.generate(ctx, next); err != nil {
			return CreditView{}, fmt.Errorf("resume obligations of %s: %w", id, err)
		}
	}

	c.Closed = false
	c.ClosedAt = core.Date{}
	if err := storage.PutDoc(ctx, s.deps.Store, storage.Credits, id, c); err != nil {
		return CreditView{}, fmt.Errorf("save credit: %w", err)
	}
	s.deps.mutated(ctx, log.ComponentCredit, log.OpReopen, log.NewFields().WithCredit(id, c.FiscalYear))
	s.deps.publish(ctx, events.New(events.CreditReopened, id, id))
	return s.Get(ctx, id)
}

// resumeSchedule returns the obligation to generate when a credit is
// reopened, if any.
func resumeSchedule(c core.Credit, obligations []core.Obligation) (core.Obligation, bool) {
	var latest *core.Obligation
	for i := range obligations {
		o := obligations[i]
		if o.IsOpen() {
			return core.Obligation{}, false
		}
		if latest == nil || o.Ordinal > latest.Ordinal {
			latest = &obligations[i]
		}
	}
	if latest == nil {
		return core.FirstObligation(c), true
	}
	return core.NextObligation(*latest), true
}
