package request

import "time"

// ExpenseRequest is the persistence model. All monetary amounts are in cents.
type ExpenseRequest struct {
	ID            int64  `json:"id" gorm:"primaryKey"`
	AssociationID int64  `json:"association_id" gorm:"column:association_id;not null;index"`
	SectionID     *int64 `json:"section_id,omitempty" gorm:"column:section_id"`

	RequesterID        int64   `json:"requester_id" gorm:"column:requester_id;not null"`
	BeneficiaryID      *int64  `json:"beneficiary_id,omitempty" gorm:"column:beneficiary_id"`
	BeneficiaryName    *string `json:"beneficiary_name,omitempty" gorm:"column:beneficiary_name"`
	BeneficiaryContact *string `json:"beneficiary_contact,omitempty" gorm:"column:beneficiary_contact"`

	ExpenseType    string  `json:"expense_type" gorm:"column:expense_type;not null"`
	ExpenseSubtype *string `json:"expense_subtype,omitempty" gorm:"column:expense_subtype"`
	Description    string  `json:"description" gorm:"column:description"`
	UrgencyLevel   string  `json:"urgency_level" gorm:"column:urgency_level;default:normal"`

	AmountRequested int64  `json:"amount_requested" gorm:"column:amount_requested;not null"`
	AmountApproved  *int64 `json:"amount_approved,omitempty" gorm:"column:amount_approved"`
	Currency        string `json:"currency" gorm:"column:currency;default:EUR"`

	IsLoan             bool     `json:"is_loan" gorm:"column:is_loan;default:false"`
	LoanDurationMonths *int     `json:"loan_duration_months,omitempty" gorm:"column:loan_duration_months"`
	LoanInterestRate   *float64 `json:"loan_interest_rate,omitempty" gorm:"column:loan_interest_rate"`
	LoanMonthlyPayment *int64   `json:"loan_monthly_payment,omitempty" gorm:"column:loan_monthly_payment"`

	Status string `json:"status" gorm:"column:status;default:pending;index"`
	// RequiredValidators is the frozen role set, JSON-encoded at creation and
	// never re-derived.
	RequiredValidators string `json:"required_validators" gorm:"column:required_validators;not null"`
	// Version backs the optimistic concurrency check on decision writes.
	Version int64 `json:"-" gorm:"column:version;default:0"`

	PaymentMode            *string    `json:"payment_mode,omitempty" gorm:"column:payment_mode"`
	PaymentMethod          *string    `json:"payment_method,omitempty" gorm:"column:payment_method"`
	ManualPaymentReference *string    `json:"manual_payment_reference,omitempty" gorm:"column:manual_payment_reference"`
	TransactionID          *int64     `json:"transaction_id,omitempty" gorm:"column:transaction_id"`
	PaidAt                 *time.Time `json:"paid_at,omitempty" gorm:"column:paid_at"`
	CancelReason           *string    `json:"cancel_reason,omitempty" gorm:"column:cancel_reason"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (ExpenseRequest) TableName() string {
	return "expense_requests"
}

// ValidationRecord is one append-only entry of validationHistory.
type ValidationRecord struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	RequestID      int64     `json:"request_id" gorm:"column:request_id;not null;index"`
	UserID         int64     `json:"user_id" gorm:"column:user_id;not null"`
	Role           string    `json:"role" gorm:"column:role;not null"`
	Decision       string    `json:"decision" gorm:"column:decision;not null"`
	Comment        string    `json:"comment" gorm:"column:comment"`
	AmountApproved *int64    `json:"amount_approved,omitempty" gorm:"column:amount_approved"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (ValidationRecord) TableName() string {
	return "validation_records"
}
