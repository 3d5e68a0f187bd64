package repayment

import "time"

// LoanRepayment is one installment against a loan-flagged expense request.
// Amounts are in cents. Rows are appended and status-updated, never deleted.
type LoanRepayment struct {
	ID               int64      `json:"id" gorm:"primaryKey"`
	ExpenseRequestID int64      `json:"expense_request_id" gorm:"column:expense_request_id;not null;index"`
	AssociationID    int64      `json:"association_id" gorm:"column:association_id;not null;index"`
	Amount           int64      `json:"amount" gorm:"column:amount;not null"`
	PrincipalAmount  int64      `json:"principal_amount" gorm:"column:principal_amount;not null"`
	InterestAmount   int64      `json:"interest_amount" gorm:"column:interest_amount;default:0"`
	PaymentDate      *time.Time `json:"payment_date,omitempty" gorm:"column:payment_date"`
	DueDate          *time.Time `json:"due_date,omitempty" gorm:"column:due_date"`
	InstallmentNo    *int       `json:"installment_number,omitempty" gorm:"column:installment_number"`
	Status           string     `json:"status" gorm:"column:status;default:pending;index"`
	ValidatedBy      *int64     `json:"validated_by,omitempty" gorm:"column:validated_by"`
	ValidatedAt      *time.Time `json:"validated_at,omitempty" gorm:"column:validated_at"`
	TransactionID    *int64     `json:"transaction_id,omitempty" gorm:"column:transaction_id"`
	CreatedAt        time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (LoanRepayment) TableName() string {
	return "loan_repayments"
}
