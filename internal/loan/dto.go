package loan

import (
	"time"

	"github.com/frahmantamala/association-treasury/internal"
)

// RecordRepaymentDTO is the payload for recording a validated installment.
// When the principal/interest split is omitted the full amount is principal.
type RecordRepaymentDTO struct {
	Amount          int64      `json:"amount"`
	PrincipalAmount *int64     `json:"principal_amount,omitempty"`
	InterestAmount  *int64     `json:"interest_amount,omitempty"`
	PaymentDate     *time.Time `json:"payment_date,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	InstallmentNo   *int       `json:"installment_number,omitempty"`
}

func (dto RecordRepaymentDTO) Validate() error {
	if dto.Amount <= 0 {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.PrincipalAmount != nil && *dto.PrincipalAmount <= 0 {
		return internal.NewValidationError("principal_amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.InterestAmount != nil && *dto.InterestAmount < 0 {
		return internal.NewValidationError("interest_amount cannot be negative", internal.ErrCodeInvalidAmount)
	}
	if dto.PrincipalAmount != nil {
		interest := int64(0)
		if dto.InterestAmount != nil {
			interest = *dto.InterestAmount
		}
		if *dto.PrincipalAmount+interest != dto.Amount {
			return internal.NewValidationError("principal_amount plus interest_amount must equal amount", internal.ErrCodeInvalidAmount)
		}
	}
	if dto.InstallmentNo != nil && *dto.InstallmentNo < 1 {
		return internal.NewValidationError("installment_number must be at least 1", internal.ErrCodeValidationFailed)
	}
	return nil
}

// ScheduleInstallmentDTO creates a pending installment with a due date so
// lateness can be tracked before the money arrives.
type ScheduleInstallmentDTO struct {
	Amount        int64     `json:"amount"`
	DueDate       time.Time `json:"due_date"`
	InstallmentNo int       `json:"installment_number"`
}

func (dto ScheduleInstallmentDTO) Validate() error {
	if dto.Amount <= 0 {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.DueDate.IsZero() {
		return internal.NewValidationError("due_date is required", internal.ErrCodeValidationFailed)
	}
	if dto.InstallmentNo < 1 {
		return internal.NewValidationError("installment_number must be at least 1", internal.ErrCodeValidationFailed)
	}
	return nil
}
