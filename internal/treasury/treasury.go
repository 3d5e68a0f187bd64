package treasury

import (
	"time"

	"github.com/frahmantamala/association-treasury/internal"
)

// BalanceSnapshot is the derived financial position of one association.
// All amounts are in cents.
type BalanceSnapshot struct {
	AssociationID            int64     `json:"association_id"`
	TotalIncome              int64     `json:"total_income"`
	TotalExpensesPaid        int64     `json:"total_expenses_paid"`
	OutstandingLoanPrincipal int64     `json:"outstanding_loan_principal"`
	AvailableBalance         int64     `json:"available_balance"`
	ComputedAt               time.Time `json:"computed_at"`
}

// FundsCheck is the result of a sufficiency check for a proposed amount.
type FundsCheck struct {
	Sufficient       bool  `json:"sufficient"`
	AvailableBalance int64 `json:"available_balance"`
	Shortage         int64 `json:"shortage"`
}

// Summary window identifiers.
const (
	WindowAll     = "all"
	WindowMonth   = "month"
	WindowQuarter = "quarter"
	WindowYear    = "year"
)

// WindowStart resolves a window name to its inclusive lower bound
// [now - window, now], or nil for the unbounded window.
func WindowStart(window string, now time.Time) (*time.Time, error) {
	switch window {
	case "", WindowAll:
		return nil, nil
	case WindowMonth:
		start := now.AddDate(0, -1, 0)
		return &start, nil
	case WindowQuarter:
		start := now.AddDate(0, -3, 0)
		return &start, nil
	case WindowYear:
		start := now.AddDate(-1, 0, 0)
		return &start, nil
	}
	return nil, internal.NewValidationError("window must be one of all, month, quarter, year", internal.ErrCodeInvalidWindow)
}

// FinancialSummary reports the association's position over a window.
type FinancialSummary struct {
	AssociationID      int64            `json:"association_id"`
	Window             string           `json:"window"`
	AvailableBalance   int64            `json:"available_balance"`
	TotalIncome        int64            `json:"total_income"`
	TotalExpensesPaid  int64            `json:"total_expenses_paid"`
	PendingExpenses    int64            `json:"pending_expenses"`
	UpcomingRepayments int64            `json:"upcoming_repayments"`
	ProjectedBalance   int64            `json:"projected_balance"`
	ExpenseBreakdown   map[string]int64 `json:"expense_breakdown"`
	ComputedAt         time.Time        `json:"computed_at"`
}

// BalanceInputs is what one consistent read of the stores yields; the engine
// composes it into a snapshot.
type BalanceInputs struct {
	TotalIncome              int64
	TotalExpensesPaid        int64
	OutstandingLoanPrincipal int64
}

// LedgerReader is the read-only aggregation contract over the completed
// financial events of one association. Snapshot must be computed from a
// single consistent read.
type LedgerReader interface {
	Snapshot(associationID int64) (*BalanceInputs, error)
	PendingExpenseTotal(associationID int64) (int64, error)
	UpcomingRepaymentTotal(associationID int64) (int64, error)
	IncomeSince(associationID int64, since *time.Time) (int64, error)
	ExpenseBreakdown(associationID int64, since *time.Time) (map[string]int64, error)
}
