package services

import (
	"context"

	"sicof/internal/reports"
)

type ReportService struct {
	deps Deps
}

func NewReportService(deps Deps) *ReportService {
	return &ReportService{deps: deps.withDefaults()}
}

// Build renders report name over fiscalYear, 0 meaning every year.
func (s *ReportService) Build(ctx context.Context, name string, fiscalYear int) (reports.Table, error) {
	l, err := loadLedger(ctx, s.deps.Store, withCredits|withExpenses)
	if err != nil {
		return reports.Table{}, err
	}
	return reports.Build(name, l.credits, l.expenses, fiscalYear)
}
