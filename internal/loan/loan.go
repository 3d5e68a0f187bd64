package loan

import (
	"time"

	repaymentDatamodel "github.com/frahmantamala/association-treasury/internal/core/datamodel/repayment"
)

const (
	RepaymentStatusPending   = "pending"
	RepaymentStatusValidated = "validated"
	RepaymentStatusLate      = "late"
)

// Derived repayment status of the loan as a whole.
const (
	LoanStatusNotStarted = "not_started"
	LoanStatusInProgress = "in_progress"
	LoanStatusCompleted  = "completed"
)

// Repayment is one installment against a loan-flagged expense request.
type Repayment struct {
	ID               int64      `json:"id"`
	ExpenseRequestID int64      `json:"expense_request_id"`
	AssociationID    int64      `json:"association_id"`
	Amount           int64      `json:"amount"`
	PrincipalAmount  int64      `json:"principal_amount"`
	InterestAmount   int64      `json:"interest_amount"`
	PaymentDate      *time.Time `json:"payment_date,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	InstallmentNo    *int       `json:"installment_number,omitempty"`
	Status           string     `json:"status"`
	ValidatedBy      *int64     `json:"validated_by,omitempty"`
	ValidatedAt      *time.Time `json:"validated_at,omitempty"`
	DaysLate         int        `json:"days_late"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ComputeDaysLate derives lateness on read; it is never persisted stale.
func ComputeDaysLate(status string, dueDate *time.Time, now time.Time) int {
	if status != RepaymentStatusPending || dueDate == nil {
		return 0
	}
	days := int(now.Sub(*dueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Progress is the derived repayment state of one loan.
type Progress struct {
	ExpenseRequestID     int64  `json:"expense_request_id"`
	LoanAmount           int64  `json:"loan_amount"`
	TotalRepaid          int64  `json:"total_repaid"`
	OutstandingBalance   int64  `json:"outstanding_balance"`
	CompletionPercentage int    `json:"completion_percentage"`
	RepaymentStatus      string `json:"repayment_status"`
	OverRepaid           bool   `json:"over_repaid"`
}

// ComputeProgress derives the loan's state purely from validated principal.
// Outstanding is floored at 0 for display; over-repayment is surfaced as a
// flag, never as negative debt. Completion is round(100*repaid/amount)
// clamped to [0,100].
func ComputeProgress(requestID, loanAmount, repaidPrincipal int64) Progress {
	p := Progress{
		ExpenseRequestID: requestID,
		LoanAmount:       loanAmount,
		TotalRepaid:      repaidPrincipal,
	}

	outstanding := loanAmount - repaidPrincipal
	if outstanding < 0 {
		p.OverRepaid = true
		outstanding = 0
	}
	p.OutstandingBalance = outstanding

	if loanAmount > 0 {
		pct := int((repaidPrincipal*100 + loanAmount/2) / loanAmount)
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		p.CompletionPercentage = pct
	}

	switch {
	case repaidPrincipal == 0:
		p.RepaymentStatus = LoanStatusNotStarted
	case outstanding == 0:
		p.RepaymentStatus = LoanStatusCompleted
	default:
		p.RepaymentStatus = LoanStatusInProgress
	}
	return p
}

// Schedule is the full installment view of one loan.
type Schedule struct {
	Progress   Progress     `json:"progress"`
	Repayments []*Repayment `json:"repayments"`
}

func FromDataModel(row *repaymentDatamodel.LoanRepayment, now time.Time) *Repayment {
	return &Repayment{
		ID:               row.ID,
		ExpenseRequestID: row.ExpenseRequestID,
		AssociationID:    row.AssociationID,
		Amount:           row.Amount,
		PrincipalAmount:  row.PrincipalAmount,
		InterestAmount:   row.InterestAmount,
		PaymentDate:      row.PaymentDate,
		DueDate:          row.DueDate,
		InstallmentNo:    row.InstallmentNo,
		Status:           row.Status,
		ValidatedBy:      row.ValidatedBy,
		ValidatedAt:      row.ValidatedAt,
		DaysLate:         ComputeDaysLate(row.Status, row.DueDate, now),
		CreatedAt:        row.CreatedAt,
	}
}

func ToDataModel(r *Repayment) *repaymentDatamodel.LoanRepayment {
	return &repaymentDatamodel.LoanRepayment{
		ID:               r.ID,
		ExpenseRequestID: r.ExpenseRequestID,
		AssociationID:    r.AssociationID,
		Amount:           r.Amount,
		PrincipalAmount:  r.PrincipalAmount,
		InterestAmount:   r.InterestAmount,
		PaymentDate:      r.PaymentDate,
		DueDate:          r.DueDate,
		InstallmentNo:    r.InstallmentNo,
		Status:           r.Status,
		ValidatedBy:      r.ValidatedBy,
		ValidatedAt:      r.ValidatedAt,
		CreatedAt:        r.CreatedAt,
	}
}
