package services

import (
	"context"
	"strings"

	"sicof/internal/core"
	"sicof/internal/storage"
)

// SourceDetail is a funding source joined with the credit it draws on.
type SourceDetail struct {
	core.FundingSource
	Credit core.Credit `json:"credit"`
}

type ExpenseDetail struct {
	Expense core.Expense   `json:"expense"`
	Sources []SourceDetail `json:"sources"`
}

// QueryService answers read-only searches over expenses and credits.
type QueryService struct {
	deps Deps
}

func NewQueryService(deps Deps) *QueryService {
	return &QueryService{deps: deps.withDefaults()}
}

// SearchExpenses matches term case-insensitively against object, process
// number and every source's commitment note and payment order. An empty
// term matches everything.
func (s *QueryService) SearchExpenses(ctx context.Context, term string) ([]core.Expense, error) {
	expenses, err := storage.ListDocs[core.Expense](ctx, s.deps.Store, storage.Expenses)
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if matchesExpense(e, term) {
			out = append(out, e)
		}
	}
	return out, nil
}

// SearchCredits matches term case-insensitively against the credit code.
func (s *QueryService) SearchCredits(ctx context.Context, term string) ([]core.Credit, error) {
	credits, err := storage.ListDocs[core.Credit](ctx, s.deps.Store, storage.Credits)
	if err != nil {
		return nil, err
	}
	out := make([]core.Credit, 0, len(credits))
	for _, c := range credits {
		if matchesCredit(c, term) {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetExpenseDetail joins expense id with its credits. Sources whose credit
// no longer exists are left out.
func (s *QueryService) GetExpenseDetail(ctx context.Context, id string) (ExpenseDetail, error) {
	e, err := storage.GetDoc[core.Expense](ctx, s.deps.Store, storage.Expenses, id)
	if err != nil {
		return ExpenseDetail{}, err
	}
	credits, err := storage.ListDocs[core.Credit](ctx, s.deps.Store, storage.Credits)
	if err != nil {
		return ExpenseDetail{}, err
	}
	l := ledger{credits: credits}
	detail := ExpenseDetail{Expense: e, Sources: make([]SourceDetail, 0, len(e.FundingSources))}
	for _, fs := range e.FundingSources {
		c, ok := l.credit(fs.CreditID)
		if !ok {
			continue
		}
		detail.Sources = append(detail.Sources, SourceDetail{FundingSource: fs, Credit: c})
	}
	return detail, nil
}

func matchesExpense(e core.Expense, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if contains(e.Object, term) || contains(e.ProcessNumber, term) {
		return true
	}
	for _, fs := range e.FundingSources {
		if contains(fs.CommitmentNote, term) || contains(fs.PaymentOrder, term) {
			return true
		}
	}
	return false
}

func matchesCredit(c core.Credit, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	return term == "" || contains(c.Code, term)
}

// contains expects needle already lower-cased.
func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
