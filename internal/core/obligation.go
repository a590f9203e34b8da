package core

import (
	"fmt"
	"strings"
)

// ObligationPeriodMonths is the spacing between consecutive accountability
// deadlines of a credit.
const ObligationPeriodMonths = 4

// FirstObligation opens the schedule of a credit, due four months after its
// launch date.
func FirstObligation(credit Credit) Obligation {
	due := credit.LaunchDate.AddMonths(ObligationPeriodMonths)
	return Obligation{
		CreditID:         credit.ID,
		FiscalYear:       credit.FiscalYear,
		Ordinal:          1,
		PeriodLabel:      ObligationLabel(1, due),
		DueDate:          due,
		Status:           ObligationPending,
		LinkedExpenseIDs: []string{},
	}
}

// NextObligation returns the successor of prev, anchored at prev's due date.
func NextObligation(prev Obligation) Obligation {
	ordinal := prev.Ordinal + 1
	due := prev.DueDate.AddMonths(ObligationPeriodMonths)
	return Obligation{
		CreditID:         prev.CreditID,
		FiscalYear:       prev.FiscalYear,
		Ordinal:          ordinal,
		PeriodLabel:      ObligationLabel(ordinal, due),
		DueDate:          due,
		Status:           ObligationPending,
		LinkedExpenseIDs: []string{},
	}
}

// ObligationLabel renders e.g. "1st Obligation (due 01/05/2024)".
func ObligationLabel(ordinal int, due Date) string {
	return fmt.Sprintf("%s Obligation (due %s)", Ordinal(ordinal), due.BR())
}

// Ordinal renders n with its English suffix: 1st, 2nd, 3rd, 4th, 11th, 21st.
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// EffectiveStatus derives the status shown to readers. A pending obligation
// whose due date is strictly before today reads as Overdue; nothing is
// written back.
func (o Obligation) EffectiveStatus(today Date) ObligationStatus {
	if o.Status == ObligationFulfilled {
		return ObligationFulfilled
	}
	if today.After(o.DueDate) {
		return ObligationOverdue
	}
	return ObligationPending
}

// OpeningDate is the start of the period the obligation accounts for.
func (o Obligation) OpeningDate() Date {
	return o.DueDate.AddMonths(-ObligationPeriodMonths)
}

// IsOpen is true until the obligation is fulfilled.
func (o Obligation) IsOpen() bool {
	return o.Status != ObligationFulfilled
}

// Fulfil returns o marked as delivered under processNumber on date at.
func (o Obligation) Fulfil(processNumber, notes string, at Date) (Obligation, error) {
	if strings.TrimSpace(processNumber) == "" {
		return o, NewValidationError("processNumber", "required to fulfil an obligation")
	}
	if o.Status == ObligationFulfilled {
		return o, NewValidationError("status", "obligation already fulfilled")
	}
	o.Status = ObligationFulfilled
	o.FulfillmentDate = at
	o.FulfillmentProcessNumber = strings.TrimSpace(processNumber)
	o.Notes = notes
	return o, nil
}
