package request

import (
	"github.com/frahmantamala/association-treasury/internal"
)

// CreateRequestDTO is the payload for submitting a spending proposal.
// Amounts are in cents.
type CreateRequestDTO struct {
	AssociationID      int64      `json:"association_id"`
	SectionID          *int64     `json:"section_id,omitempty"`
	BeneficiaryID      *int64     `json:"beneficiary_id,omitempty"`
	BeneficiaryName    *string    `json:"beneficiary_name,omitempty"`
	BeneficiaryContact *string    `json:"beneficiary_contact,omitempty"`
	ExpenseType        string     `json:"expense_type"`
	ExpenseSubtype     *string    `json:"expense_subtype,omitempty"`
	Description        string     `json:"description"`
	UrgencyLevel       string     `json:"urgency_level,omitempty"`
	AmountRequested    int64      `json:"amount_requested"`
	Currency           string     `json:"currency,omitempty"`
	IsLoan             bool       `json:"is_loan"`
	LoanTerms          *LoanTerms `json:"loan_terms,omitempty"`
}

func (dto CreateRequestDTO) Validate() error {
	if dto.AssociationID <= 0 {
		return internal.NewValidationError("association_id is required", internal.ErrCodeValidationFailed)
	}
	if dto.AmountRequested <= 0 {
		return internal.NewValidationError("amount_requested must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.ExpenseType == "" {
		return internal.NewValidationError("expense_type is required", internal.ErrCodeValidationFailed)
	}

	// Beneficiary is either an internal member or a free-form external party,
	// never both, never neither.
	hasInternal := dto.BeneficiaryID != nil
	hasExternal := dto.BeneficiaryName != nil && *dto.BeneficiaryName != ""
	if hasInternal == hasExternal {
		return internal.NewValidationError("exactly one of beneficiary_id or beneficiary_name is required", internal.ErrCodeValidationFailed)
	}

	if dto.IsLoan {
		if dto.LoanTerms == nil {
			return internal.NewValidationError("loan_terms are required for a loan request", internal.ErrCodeInvalidLoanTerms)
		}
		if err := dto.LoanTerms.Validate(); err != nil {
			return err
		}
	} else if dto.LoanTerms != nil {
		return internal.NewValidationError("loan_terms are only allowed when is_loan is true", internal.ErrCodeInvalidLoanTerms)
	}

	return nil
}

func (t LoanTerms) Validate() error {
	if t.DurationMonths < 1 || t.DurationMonths > 120 {
		return internal.NewValidationError("loan duration must be between 1 and 120 months", internal.ErrCodeInvalidLoanTerms)
	}
	if t.InterestRate < 0 || t.InterestRate > 50 {
		return internal.NewValidationError("loan interest rate must be between 0 and 50 percent", internal.ErrCodeInvalidLoanTerms)
	}
	if t.MonthlyPayment != nil && *t.MonthlyPayment <= 0 {
		return internal.NewValidationError("loan monthly payment must be greater than 0", internal.ErrCodeInvalidLoanTerms)
	}
	return nil
}

// DecisionDTO is one validator decision on a request.
type DecisionDTO struct {
	Decision       string `json:"decision"`
	Comment        string `json:"comment,omitempty"`
	AmountApproved *int64 `json:"amount_approved,omitempty"`
}

func (dto DecisionDTO) Validate() error {
	switch dto.Decision {
	case DecisionApproved, DecisionRejected, DecisionInfoRequested:
	default:
		return internal.NewValidationError("decision must be approved, rejected or info_requested", internal.ErrCodeInvalidDecision)
	}
	if dto.Decision == DecisionRejected && dto.Comment == "" {
		return internal.NewValidationError("comment is required when rejecting", internal.ErrCodeInvalidDecision)
	}
	if dto.AmountApproved != nil {
		if dto.Decision != DecisionApproved {
			return internal.NewValidationError("amount_approved is only allowed on an approval", internal.ErrCodeInvalidDecision)
		}
		if *dto.AmountApproved <= 0 {
			return internal.NewValidationError("amount_approved must be greater than 0", internal.ErrCodeInvalidAmount)
		}
	}
	return nil
}

// CancelDTO carries an optional reason; a bare cancel is allowed.
type CancelDTO struct {
	Reason string `json:"reason"`
}

type ConfirmPaymentDTO struct {
	PaymentMode            string  `json:"payment_mode"`
	PaymentMethod          string  `json:"payment_method"`
	ManualPaymentReference *string `json:"manual_payment_reference,omitempty"`
}

func (dto ConfirmPaymentDTO) Validate() error {
	if dto.PaymentMode == "" {
		return internal.NewValidationError("payment_mode is required", internal.ErrCodeValidationFailed)
	}
	if dto.PaymentMethod == "" {
		return internal.NewValidationError("payment_method is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type FailPaymentDTO struct {
	Reason string `json:"reason,omitempty"`
}
