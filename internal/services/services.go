package services

import "sicof/internal/backup"

// Services bundles every service over one set of dependencies.
type Services struct {
	Credits        *CreditService
	Expenses       *ExpenseService
	Accountability *AccountabilityService
	Query          *QueryService
	Dashboard      *DashboardService
	Goals          *GoalsService
	Closings       *ClosingService
	Backup         *BackupService
	Reports        *ReportService
}

func New(deps Deps, sink backup.Sink) *Services {
	deps = deps.withDefaults()
	accountability := NewAccountabilityService(deps)
	return &Services{
		Credits:        NewCreditService(deps, accountability),
		Expenses:       NewExpenseService(deps),
		Accountability: accountability,
		Query:          NewQueryService(deps),
		Dashboard:      NewDashboardService(deps, accountability),
		Goals:          NewGoalsService(deps),
		Closings:       NewClosingService(deps),
		Backup:         NewBackupService(deps, sink),
		Reports:        NewReportService(deps),
	}
}
