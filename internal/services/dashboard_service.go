package services

import (
	"context"

	"sicof/internal/core"
)

// RecentLimit is how many expenses the dashboard lists.
const RecentLimit = 5

type Dashboard struct {
	FiscalYear         int                  `json:"fiscalYear,omitempty"`
	Totals             core.DashboardTotals `json:"totals"`
	Chart              []core.ChartPoint    `json:"chart"`
	Pie                []core.PiePoint      `json:"pie"`
	RecentExpenses     []core.Expense       `json:"recentExpenses"`
	Years              []int                `json:"years"`
	OverdueObligations int                  `json:"overdueObligations"`
}

type DashboardService struct {
	deps           Deps
	accountability *AccountabilityService
}

func NewDashboardService(deps Deps, accountability *AccountabilityService) *DashboardService {
	deps = deps.withDefaults()
	if accountability == nil {
		accountability = NewAccountabilityService(deps)
	}
	return &DashboardService{deps: deps, accountability: accountability}
}

// Summary builds the dashboard for fiscalYear, 0 meaning every year. Only
// Years ignores the filter.
func (s *DashboardService) Summary(ctx context.Context, fiscalYear int) (Dashboard, error) {
	l, err := loadLedger(ctx, s.deps.Store, withCredits|withExpenses|withObligations)
	if err != nil {
		return Dashboard{}, err
	}
	inYear := core.FilterCreditsByYear(l.credits, fiscalYear)

	var scope map[string]struct{}
	if fiscalYear != 0 {
		scope = make(map[string]struct{}, len(inYear))
		for _, c := range inYear {
			scope[c.ID] = struct{}{}
		}
	}

	return Dashboard{
		FiscalYear:         fiscalYear,
		Totals:             core.ComputeDashboardTotals(l.credits, l.expenses, fiscalYear),
		Chart:              core.ChartByYear(inYear),
		Pie:                core.PieByAxis(inYear),
		RecentExpenses:     core.RecentExpenses(l.credits, l.expenses, fiscalYear, RecentLimit),
		Years:              core.AvailableYears(l.credits),
		OverdueObligations: s.accountability.overdue(l.obligations, scope),
	}, nil
}
