package alert

import (
	"fmt"

	"github.com/frahmantamala/association-treasury/internal/loan"
	"github.com/frahmantamala/association-treasury/internal/request"
	"github.com/frahmantamala/association-treasury/internal/treasury"
)

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

const (
	TypeLowBalance           = "low_balance"
	TypeNegativeBalance      = "negative_balance"
	TypeLateRepayments       = "late_repayments"
	TypeLargePendingExpenses = "large_pending_expenses"
)

// Alert is one human-readable financial warning. Amounts are in cents.
type Alert struct {
	Type          string `json:"type"`
	Severity      string `json:"severity"`
	Message       string `json:"message"`
	AssociationID int64  `json:"association_id"`
	Amount        int64  `json:"amount,omitempty"`
	RequestID     int64  `json:"request_id,omitempty"`
}

// Derive is a pure function of balance engine and repayment tracker output.
func Derive(snapshot *treasury.BalanceSnapshot, threshold int64, overdue []*loan.Repayment, open []*request.ExpenseRequest) []Alert {
	alerts := []Alert{}

	switch {
	case snapshot.AvailableBalance < 0:
		alerts = append(alerts, Alert{
			Type:          TypeNegativeBalance,
			Severity:      SeverityCritical,
			Message:       fmt.Sprintf("available balance is negative (%d cents)", snapshot.AvailableBalance),
			AssociationID: snapshot.AssociationID,
			Amount:        snapshot.AvailableBalance,
		})
	case snapshot.AvailableBalance < threshold:
		alerts = append(alerts, Alert{
			Type:          TypeLowBalance,
			Severity:      SeverityWarning,
			Message:       fmt.Sprintf("available balance %d cents is below the %d cents threshold", snapshot.AvailableBalance, threshold),
			AssociationID: snapshot.AssociationID,
			Amount:        snapshot.AvailableBalance,
		})
	}

	if len(overdue) > 0 {
		maxDaysLate := 0
		for _, rep := range overdue {
			if rep.DaysLate > maxDaysLate {
				maxDaysLate = rep.DaysLate
			}
		}
		alerts = append(alerts, Alert{
			Type:          TypeLateRepayments,
			Severity:      SeverityWarning,
			Message:       fmt.Sprintf("%d overdue loan installment(s), the oldest %d day(s) late", len(overdue), maxDaysLate),
			AssociationID: snapshot.AssociationID,
		})
	}

	for _, req := range open {
		if req.AmountRequested > snapshot.AvailableBalance {
			alerts = append(alerts, Alert{
				Type:          TypeLargePendingExpenses,
				Severity:      SeverityInfo,
				Message:       fmt.Sprintf("request %d asks for %d cents, more than the available balance", req.ID, req.AmountRequested),
				AssociationID: snapshot.AssociationID,
				Amount:        req.AmountRequested,
				RequestID:     req.ID,
			})
		}
	}

	return alerts
}
