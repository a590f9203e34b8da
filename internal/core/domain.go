package core

import (
	"fmt"
	"strings"
)

const (
	StatusPlanned    ExpenseStatus = "Planned"
	StatusCommitted  ExpenseStatus = "Committed"
	StatusLiquidated ExpenseStatus = "Liquidated"
	StatusPaid       ExpenseStatus = "Paid"
	StatusCancelled  ExpenseStatus = "Cancelled"
)

const (
	ObligationPending   ObligationStatus = "Pending"
	ObligationOverdue   ObligationStatus = "Overdue"
	ObligationFulfilled ObligationStatus = "Fulfilled"
)

const (
	OriginCurrentYear OriginKind = "CurrentYear"
	OriginPriorYears  OriginKind = "PriorYears"
)

const (
	MinFiscalYear = 2000
	MaxFiscalYear = 2100
)

type (
	ExpenseStatus    string
	ObligationStatus string
	OriginKind       string

	// Origin records where a credit's money came from. Exactly one variant is
	// populated, selected by Kind.
	Origin struct {
		Kind            OriginKind `json:"kind"`
		Description     string     `json:"description,omitempty"`
		SourceCreditIDs []string   `json:"sourceCreditIds,omitempty"`
	}

	Credit struct {
		ID          string   `json:"id"`
		Code        string   `json:"code"`
		FiscalYear  int      `json:"fiscalYear"`
		Axes        []string `json:"axes"`
		GlobalValue Money    `json:"globalValue"`
		Origin      Origin   `json:"origin"`
		Nature      string   `json:"nature"`
		LaunchDate  Date     `json:"launchDate"`
		Closed      bool     `json:"closed,omitempty"`
		ClosedAt    Date     `json:"closedAt"`
	}

	// FundingSource is one credit's slice of an expense. Its own commitment
	// and payment markers drive balance aggregation.
	FundingSource struct {
		ID             string `json:"id"`
		CreditID       string `json:"creditId"`
		AmountUsed     Money  `json:"amountUsed"`
		CommitmentNote string `json:"commitmentNote,omitempty"`
		CommitmentDate Date   `json:"commitmentDate"`
		PaymentOrder   string `json:"paymentOrder,omitempty"`
		PaymentDate    Date   `json:"paymentDate"`
	}

	Expense struct {
		ID                  string          `json:"id"`
		Object              string          `json:"object"`
		ProcessNumber       string          `json:"processNumber"`
		Status              ExpenseStatus   `json:"status"`
		FundingSources      []FundingSource `json:"fundingSources"`
		TotalValue          Money           `json:"totalValue"`
		AccountabilityDate  Date            `json:"accountabilityDate"`
		AccountabilityNotes string          `json:"accountabilityNotes,omitempty"`
		GoalRef             string          `json:"goalRef"`
		ActionRef           string          `json:"actionRef"`
	}

	Obligation struct {
		ID                       string           `json:"id"`
		CreditID                 string           `json:"creditId"`
		FiscalYear               int              `json:"fiscalYear"`
		Ordinal                  int              `json:"ordinal"`
		PeriodLabel              string           `json:"periodLabel"`
		DueDate                  Date             `json:"dueDate"`
		Status                   ObligationStatus `json:"status"`
		FulfillmentDate          Date             `json:"fulfillmentDate"`
		FulfillmentProcessNumber string           `json:"fulfillmentProcessNumber,omitempty"`
		Notes                    string           `json:"notes,omitempty"`
		LinkedExpenseIDs         []string         `json:"linkedExpenseIds"`
	}

	GoalAction struct {
		ID          string `json:"id"`
		Description string `json:"description"`
	}

	AnnualClosing struct {
		ID              string `json:"id"`
		FiscalYear      int    `json:"fiscalYear"`
		TotalReturned   Money  `json:"totalReturned"`
		ClosingDate     Date   `json:"closingDate"`
		ResponsibleUser string `json:"responsibleUser"`
	}
)

// CurrentYearOrigin builds the origin variant for money from the running year.
func CurrentYearOrigin(description string) Origin {
	return Origin{Kind: OriginCurrentYear, Description: description}
}

// PriorYearsOrigin builds the origin variant for money carried over from
// earlier credits.
func PriorYearsOrigin(sourceCreditIDs ...string) Origin {
	return Origin{Kind: OriginPriorYears, SourceCreditIDs: sourceCreditIDs}
}

func (s ExpenseStatus) IsValid() bool {
	switch s {
	case StatusPlanned, StatusCommitted, StatusLiquidated, StatusPaid, StatusCancelled:
		return true
	default:
		return false
	}
}

// RequiresCommitment reports whether every funding source must carry a
// commitment note and date.
func (s ExpenseStatus) RequiresCommitment() bool {
	return s != StatusPlanned
}

// RequiresPayment reports whether every funding source must carry a payment
// order and date.
func (s ExpenseStatus) RequiresPayment() bool {
	return s == StatusPaid
}

// IsLiquidated is true for expenses eligible as accountability evidence.
func (s ExpenseStatus) IsLiquidated() bool {
	return s == StatusLiquidated || s == StatusPaid
}

func (o Origin) Validate() error {
	v := &ValidationError{}
	switch o.Kind {
	case OriginCurrentYear:
		if len(o.SourceCreditIDs) > 0 {
			v.Add("origin.sourceCreditIds", "must be empty for current-year origin")
		}
	case OriginPriorYears:
		if len(o.SourceCreditIDs) == 0 {
			v.Add("origin.sourceCreditIds", "at least one source credit is required")
		}
		for i, id := range o.SourceCreditIDs {
			if strings.TrimSpace(id) == "" {
				v.Add(fmt.Sprintf("origin.sourceCreditIds[%d]", i), "empty credit id")
			}
		}
	default:
		v.Add("origin.kind", "must be CurrentYear or PriorYears")
	}
	return v.Err()
}

// Validate checks the credit on its own. Rules that need other credits
// (source existence, year ordering, cycles) live in ValidateOrigin.
func (c Credit) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(c.Code) == "" {
		v.Add("code", "required")
	}
	if c.FiscalYear < MinFiscalYear || c.FiscalYear > MaxFiscalYear {
		v.Add("fiscalYear", fmt.Sprintf("must be between %d and %d", MinFiscalYear, MaxFiscalYear))
	}
	if len(c.Axes) == 0 {
		v.Add("axes", "at least one axis is required")
	}
	for i, axis := range c.Axes {
		if strings.TrimSpace(axis) == "" {
			v.Add(fmt.Sprintf("axes[%d]", i), "empty axis")
		}
	}
	if !c.GlobalValue.IsPositive() {
		v.Add("globalValue", "must be greater than zero")
	}
	if strings.TrimSpace(c.Nature) == "" {
		v.Add("nature", "required")
	}
	if c.LaunchDate.IsZero() {
		v.Add("launchDate", "required")
	}
	if err := c.Origin.Validate(); err != nil {
		v.Merge(err)
	}
	for _, id := range c.Origin.SourceCreditIDs {
		if c.ID != "" && id == c.ID {
			v.Add("origin.sourceCreditIds", "a credit cannot derive from itself")
			break
		}
	}
	return v.Err()
}

func (fs FundingSource) IsCommitted() bool {
	return strings.TrimSpace(fs.CommitmentNote) != "" && !fs.CommitmentDate.IsZero()
}

func (fs FundingSource) IsPaid() bool {
	return strings.TrimSpace(fs.PaymentOrder) != "" && !fs.PaymentDate.IsZero()
}

// RecomputeTotal sets TotalValue to the sum of the funding amounts.
func (e *Expense) RecomputeTotal() {
	var total Money
	for _, fs := range e.FundingSources {
		total = total.Add(fs.AmountUsed)
	}
	e.TotalValue = total
}

// CreditIDs returns the distinct credits funding the expense in source order.
func (e Expense) CreditIDs() []string {
	seen := make(map[string]struct{}, len(e.FundingSources))
	ids := make([]string, 0, len(e.FundingSources))
	for _, fs := range e.FundingSources {
		if _, ok := seen[fs.CreditID]; ok {
			continue
		}
		seen[fs.CreditID] = struct{}{}
		ids = append(ids, fs.CreditID)
	}
	return ids
}

// Validate applies the single expense ruleset. The commitment and payment
// requirements depend on Status.
func (e Expense) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(e.Object) == "" {
		v.Add("object", "required")
	}
	if strings.TrimSpace(e.ProcessNumber) == "" {
		v.Add("processNumber", "required")
	}
	if strings.TrimSpace(e.GoalRef) == "" {
		v.Add("goalRef", "required")
	}
	if strings.TrimSpace(e.ActionRef) == "" {
		v.Add("actionRef", "required")
	}
	if !e.Status.IsValid() {
		v.Add("status", "must be one of Planned, Committed, Liquidated, Paid, Cancelled")
	}
	if len(e.FundingSources) == 0 {
		v.Add("fundingSources", "at least one funding source is required")
	}
	for i, fs := range e.FundingSources {
		prefix := fmt.Sprintf("fundingSources[%d].", i)
		if strings.TrimSpace(fs.CreditID) == "" {
			v.Add(prefix+"creditId", "required")
		}
		if !fs.AmountUsed.IsPositive() {
			v.Add(prefix+"amountUsed", "must be greater than zero")
		}
		if e.Status.RequiresCommitment() {
			if strings.TrimSpace(fs.CommitmentNote) == "" {
				v.Add(prefix+"commitmentNote", fmt.Sprintf("required when status is %s", e.Status))
			}
			if fs.CommitmentDate.IsZero() {
				v.Add(prefix+"commitmentDate", fmt.Sprintf("required when status is %s", e.Status))
			}
		}
		if e.Status.RequiresPayment() {
			if strings.TrimSpace(fs.PaymentOrder) == "" {
				v.Add(prefix+"paymentOrder", "required when status is Paid")
			}
			if fs.PaymentDate.IsZero() {
				v.Add(prefix+"paymentDate", "required when status is Paid")
			}
		}
	}
	return v.Err()
}

func (g GoalAction) Validate() error {
	if strings.TrimSpace(g.Description) == "" {
		return NewValidationError("description", "required")
	}
	return nil
}

func (a AnnualClosing) Validate() error {
	v := &ValidationError{}
	if a.FiscalYear < MinFiscalYear || a.FiscalYear > MaxFiscalYear {
		v.Add("fiscalYear", fmt.Sprintf("must be between %d and %d", MinFiscalYear, MaxFiscalYear))
	}
	if strings.TrimSpace(a.ResponsibleUser) == "" {
		v.Add("responsibleUser", "required")
	}
	return v.Err()
}
