package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"sicof/internal/core"
	"sicof/internal/events"
	"sicof/internal/log"
	"sicof/internal/metrics"
	"sicof/internal/storage"
)

// ObligationView is an obligation as readers see it: Status is the
// effective status for today.
type ObligationView struct {
	core.Obligation
	Status      core.ObligationStatus `json:"status"`
	OpeningDate core.Date             `json:"openingDate"`
}

// AccountabilityService runs the four-month obligation schedule of every
// credit.
type AccountabilityService struct {
	deps Deps
}

func NewAccountabilityService(deps Deps) *AccountabilityService {
	return &AccountabilityService{deps: deps.withDefaults()}
}

func (s *AccountabilityService) view(o core.Obligation, today core.Date) ObligationView {
	return ObligationView{
		Obligation:  o,
		Status:      o.EffectiveStatus(today),
		OpeningDate: o.OpeningDate(),
	}
}

// GenerateFirst opens the schedule of an existing credit.
func (s *AccountabilityService) GenerateFirst(ctx context.Context, creditID string) (core.Obligation, error) {
	credit, err := storage.GetDoc[core.Credit](ctx, s.deps.Store, storage.Credits, creditID)
	if err != nil {
		return core.Obligation{}, fmt.Errorf("generate first obligation: %w", err)
	}
	return s.generate(ctx, core.FirstObligation(credit))
}

// generate assigns an id to o and persists it.
func (s *AccountabilityService) generate(ctx context.Context, o core.Obligation) (core.Obligation, error) {
	id, err := s.deps.Store.GenerateID(ctx, storage.Obligations)
	if err != nil {
		return core.Obligation{}, core.WrapStore("generate obligation id", err)
	}
	o.ID = id
	if err := storage.PutDoc(ctx, s.deps.Store, storage.Obligations, o.ID, o); err != nil {
		return core.Obligation{}, fmt.Errorf("save obligation: %w", err)
	}
	metrics.ObligationsGenerated.Inc()
	s.deps.mutated(ctx, log.ComponentAccountability, log.OpCreate,
		log.NewFields().WithObligation(o.ID, o.CreditID, string(o.Status)).With("due_date", o.DueDate.String()))
	s.deps.publish(ctx, events.New(events.ObligationGenerated, o.ID, o.CreditID))
	return o, nil
}

// Fulfil records the delivery of obligation id and, unless the credit is
// closed, generates its successor due four months after it. next is nil
// when the chain does not continue.
//
// The successor is written before the fulfilment, and an existing successor
// is reused, so a call that failed half way can be repeated. Fulfilling an
// obligation that is already fulfilled but lost its successor regenerates
// the successor.
func (s *AccountabilityService) Fulfil(ctx context.Context, id, processNumber, notes string) (fulfilled core.Obligation, next *core.Obligation, err error) {
	current, err := storage.GetDoc[core.Obligation](ctx, s.deps.Store, storage.Obligations, id)
	if err != nil {
		return core.Obligation{}, nil, fmt.Errorf("fulfil obligation: %w", err)
	}

	chainOpen := true
	credit, err := storage.GetDoc[core.Credit](ctx, s.deps.Store, storage.Credits, current.CreditID)
	switch {
	case isNotFound(err):
		s.deps.Logger.WithComponent(log.ComponentAccountability).WarnContext(ctx,
			"Obligation of a missing credit, no successor generated",
			log.FieldObligationID, id, log.FieldCreditID, current.CreditID)
		chainOpen = false
	case err != nil:
		return core.Obligation{}, nil, fmt.Errorf("load credit: %w", err)
	case credit.Closed:
		chainOpen = false
	}

	all, err := storage.ListDocs[core.Obligation](ctx, s.deps.Store, storage.Obligations)
	if err != nil {
		return core.Obligation{}, nil, err
	}
	successor, hasSuccessor := successorOf(current, all)

	repair := chainOpen && !current.IsOpen() && !hasSuccessor
	fulfilled = current
	if !repair {
		if fulfilled, err = current.Fulfil(processNumber, notes, s.deps.today()); err != nil {
			return core.Obligation{}, nil, err
		}
	}

	if chainOpen && !hasSuccessor {
		if successor, err = s.generate(ctx, core.NextObligation(fulfilled)); err != nil {
			return core.Obligation{}, nil, err
		}
	}

	if !repair {
		if err := storage.PutDoc(ctx, s.deps.Store, storage.Obligations, id, fulfilled); err != nil {
			return core.Obligation{}, nil, fmt.Errorf("save obligation: %w", err)
		}
		s.deps.mutated(ctx, log.ComponentAccountability, log.OpFulfil,
			log.NewFields().WithObligation(id, fulfilled.CreditID, string(fulfilled.Status)))
		s.deps.publish(ctx, events.New(events.ObligationFulfilled, id, fulfilled.CreditID))
	}

	if !chainOpen {
		return fulfilled, nil, nil
	}
	return fulfilled, &successor, nil
}

// successorOf finds the obligation following o in its credit's chain.
func successorOf(o core.Obligation, all []core.Obligation) (core.Obligation, bool) {
	for _, other := range all {
		if other.CreditID == o.CreditID && other.Ordinal == o.Ordinal+1 {
			return other, true
		}
	}
	return core.Obligation{}, false
}

// LinkExpenses replaces the evidence list of obligation id with expenseIDs.
// Duplicates are dropped; eligibility is the caller's concern, see
// CheckEligible.
func (s *AccountabilityService) LinkExpenses(ctx context.Context, id string, expenseIDs []string) (core.Obligation, error) {
	o, err := storage.GetDoc[core.Obligation](ctx, s.deps.Store, storage.Obligations, id)
	if err != nil {
		return core.Obligation{}, fmt.Errorf("link expenses: %w", err)
	}
	ids := dedupe(expenseIDs)
	path := storage.DocPath(storage.Obligations, id)
	if err := s.deps.Store.Update(ctx, path, map[string]any{"linkedExpenseIds": ids}); err != nil {
		return core.Obligation{}, core.WrapStore("update "+path, err)
	}
	o.LinkedExpenseIDs = ids
	s.deps.mutated(ctx, log.ComponentAccountability, log.OpLink,
		log.NewFields().WithObligation(id, o.CreditID, string(o.Status)).With("linked", len(ids)))
	s.deps.publish(ctx, events.New(events.ObligationLinked, id, o.CreditID))
	return o, nil
}

// CheckEligible rejects ids that are unknown or not yet liquidated.
func (s *AccountabilityService) CheckEligible(ctx context.Context, expenseIDs []string) error {
	expenses, err := storage.ListDocs[core.Expense](ctx, s.deps.Store, storage.Expenses)
	if err != nil {
		return err
	}
	byID := make(map[string]core.Expense, len(expenses))
	for _, e := range expenses {
		byID[e.ID] = e
	}
	v := &core.ValidationError{}
	for i, id := range expenseIDs {
		field := fmt.Sprintf("expenseIds[%d]", i)
		e, ok := byID[id]
		switch {
		case !ok:
			v.Add(field, "unknown expense "+id)
		case !e.Status.IsLiquidated():
			v.Add(field, fmt.Sprintf("expense %s is %s, only Liquidated or Paid expenses can be linked", id, e.Status))
		}
	}
	return v.Err()
}

// ListByCredit returns the schedule of a credit ordered by due date.
func (s *AccountabilityService) ListByCredit(ctx context.Context, creditID string) ([]ObligationView, error) {
	all, err := storage.ListDocs[core.Obligation](ctx, s.deps.Store, storage.Obligations)
	if err != nil {
		return nil, err
	}
	return s.views(all, creditID), nil
}

func (s *AccountabilityService) views(all []core.Obligation, creditID string) []ObligationView {
	today := s.deps.today()
	out := make([]ObligationView, 0)
	for _, o := range all {
		if o.CreditID == creditID {
			out = append(out, s.view(o, today))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[j].DueDate.After(out[i].DueDate)
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	return out
}

func (s *AccountabilityService) Get(ctx context.Context, id string) (ObligationView, error) {
	o, err := storage.GetDoc[core.Obligation](ctx, s.deps.Store, storage.Obligations, id)
	if err != nil {
		return ObligationView{}, err
	}
	return s.view(o, s.deps.today()), nil
}

// Watch sends the schedule of creditID now and again after every change to
// the obligations collection. The channel closes when ctx is done or the
// store subscription ends. A reader that falls behind only sees the latest
// list.
func (s *AccountabilityService) Watch(ctx context.Context, creditID string) (<-chan []ObligationView, error) {
	changes, err := s.deps.Store.Subscribe(ctx, storage.Obligations)
	if err != nil {
		return nil, core.WrapStore("subscribe "+storage.Obligations, err)
	}
	first, err := s.ListByCredit(ctx, creditID)
	if err != nil {
		return nil, err
	}

	out := make(chan []ObligationView, 1)
	out <- first
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				list, err := s.ListByCredit(ctx, creditID)
				if err != nil {
					s.deps.Logger.WithComponent(log.ComponentAccountability).WarnContext(ctx,
						"Failed to refresh watched obligations", log.FieldCreditID, creditID, log.FieldError, err)
					continue
				}
				// replace a pending, unread list
				select {
				case <-out:
				default:
				}
				out <- list
			}
		}
	}()
	return out, nil
}

// overdue counts obligations reading as Overdue today, restricted to
// creditIDs when it is not nil.
func (s *AccountabilityService) overdue(all []core.Obligation, creditIDs map[string]struct{}) int {
	today := s.deps.today()
	n := 0
	for _, o := range all {
		if creditIDs != nil {
			if _, ok := creditIDs[o.CreditID]; !ok {
				continue
			}
		}
		if o.EffectiveStatus(today) == core.ObligationOverdue {
			n++
		}
	}
	return n
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
