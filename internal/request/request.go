package request

import (
	"encoding/json"
	"sort"
	"time"

	requestDatamodel "github.com/frahmantamala/association-treasury/internal/core/datamodel/request"
)

// Workflow states. A request is immutable once it reaches a terminal state,
// except for repayment bookkeeping on paid loans.
const (
	StatusPending       = "pending"
	StatusUnderReview   = "under_review"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
	StatusInfoNeeded    = "additional_info_needed"
	StatusPaid          = "paid"
	StatusPaymentFailed = "payment_failed"
	StatusCancelled     = "cancelled"
)

// Validator decisions recorded in validationHistory.
const (
	DecisionApproved      = "approved"
	DecisionRejected      = "rejected"
	DecisionInfoRequested = "info_requested"
)

// Workflow events driving the transition table.
const (
	EventApprove        = "approve"
	EventReject         = "reject"
	EventRequestInfo    = "request_info"
	EventCancel         = "cancel"
	EventConfirmPayment = "confirm_payment"
	EventFailPayment    = "fail_payment"
)

// transitionTable is the single authoritative map of allowed transitions.
// An approve lands on under_review; promotion to approved happens when the
// quorum is met and is checked separately.
var transitionTable = map[string]map[string]string{
	StatusPending: {
		EventApprove:     StatusUnderReview,
		EventReject:      StatusRejected,
		EventRequestInfo: StatusInfoNeeded,
		EventCancel:      StatusCancelled,
	},
	StatusUnderReview: {
		EventApprove:     StatusUnderReview,
		EventReject:      StatusRejected,
		EventRequestInfo: StatusInfoNeeded,
		EventCancel:      StatusCancelled,
	},
	StatusInfoNeeded: {
		EventCancel: StatusCancelled,
	},
	StatusApproved: {
		EventConfirmPayment: StatusPaid,
		EventFailPayment:    StatusPaymentFailed,
	},
}

// Transition returns the target status for an event, or false when the
// transition table does not allow it.
func Transition(from, event string) (string, bool) {
	targets, ok := transitionTable[from]
	if !ok {
		return "", false
	}
	to, ok := targets[event]
	return to, ok
}

func IsTerminal(status string) bool {
	switch status {
	case StatusPaid, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// RoleSet is the frozen set of bureau roles that must each approve.
type RoleSet map[string]struct{}

func NewRoleSet(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Contains(role string) bool {
	_, ok := s[role]
	return ok
}

func (s RoleSet) Roles() []string {
	roles := make([]string, 0, len(s))
	for r := range s {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

func (s RoleSet) Encode() (string, error) {
	raw, err := json.Marshal(s.Roles())
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func DecodeRoleSet(raw string) (RoleSet, error) {
	var roles []string
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		return nil, err
	}
	return NewRoleSet(roles...), nil
}

// LoanTerms are declared at creation and informational only; the
// authoritative repayment state is derived from recorded LoanRepayment rows.
type LoanTerms struct {
	DurationMonths int     `json:"duration_months"`
	InterestRate   float64 `json:"interest_rate"`
	MonthlyPayment *int64  `json:"monthly_payment,omitempty"`
}

// ValidationRecord is one append-only history entry.
type ValidationRecord struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Role           string    `json:"role"`
	Decision       string    `json:"decision"`
	Comment        string    `json:"comment,omitempty"`
	AmountApproved *int64    `json:"amount_approved,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type PaymentDetails struct {
	PaymentMode            string  `json:"payment_mode"`
	PaymentMethod          string  `json:"payment_method"`
	ManualPaymentReference *string `json:"manual_payment_reference,omitempty"`
}

type ExpenseRequest struct {
	ID            int64  `json:"id"`
	AssociationID int64  `json:"association_id"`
	SectionID     *int64 `json:"section_id,omitempty"`

	RequesterID        int64   `json:"requester_id"`
	BeneficiaryID      *int64  `json:"beneficiary_id,omitempty"`
	BeneficiaryName    *string `json:"beneficiary_name,omitempty"`
	BeneficiaryContact *string `json:"beneficiary_contact,omitempty"`

	ExpenseType    string  `json:"expense_type"`
	ExpenseSubtype *string `json:"expense_subtype,omitempty"`
	Description    string  `json:"description"`
	UrgencyLevel   string  `json:"urgency_level"`

	AmountRequested int64  `json:"amount_requested"`
	AmountApproved  *int64 `json:"amount_approved,omitempty"`
	Currency        string `json:"currency"`

	IsLoan    bool       `json:"is_loan"`
	LoanTerms *LoanTerms `json:"loan_terms,omitempty"`

	Status             string             `json:"status"`
	RequiredValidators RoleSet            `json:"-"`
	History            []ValidationRecord `json:"validation_history"`
	Version            int64              `json:"-"`

	PaymentMode            *string    `json:"payment_mode,omitempty"`
	PaymentMethod          *string    `json:"payment_method,omitempty"`
	ManualPaymentReference *string    `json:"manual_payment_reference,omitempty"`
	TransactionID          *int64     `json:"transaction_id,omitempty"`
	PaidAt                 *time.Time `json:"paid_at,omitempty"`
	CancelReason           *string    `json:"cancel_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *ExpenseRequest) IsTerminal() bool {
	return IsTerminal(r.Status)
}

func (r *ExpenseRequest) CanReceiveDecision() bool {
	return r.Status == StatusPending || r.Status == StatusUnderReview
}

func (r *ExpenseRequest) CanBeCancelled() bool {
	switch r.Status {
	case StatusPending, StatusUnderReview, StatusInfoNeeded:
		return true
	}
	return false
}

// HasApprovalFromRole reports whether the role already recorded an approval;
// the dedup key is the role, not the individual member.
func (r *ExpenseRequest) HasApprovalFromRole(role string) bool {
	for _, rec := range r.History {
		if rec.Role == role && rec.Decision == DecisionApproved {
			return true
		}
	}
	return false
}

func (r *ExpenseRequest) HasRejection() bool {
	for _, rec := range r.History {
		if rec.Decision == DecisionRejected {
			return true
		}
	}
	return false
}

// QuorumMet reports whether every required role has at least one approval in
// history and no required role has rejected.
func (r *ExpenseRequest) QuorumMet() bool {
	if r.HasRejection() {
		return false
	}
	for role := range r.RequiredValidators {
		if !r.HasApprovalFromRole(role) {
			return false
		}
	}
	return len(r.RequiredValidators) > 0
}

// EffectiveAmount is the amount committed on payment: amountApproved when
// set, amountRequested otherwise.
func (r *ExpenseRequest) EffectiveAmount() int64 {
	if r.AmountApproved != nil {
		return *r.AmountApproved
	}
	return r.AmountRequested
}

func ToDataModel(r *ExpenseRequest) (*requestDatamodel.ExpenseRequest, error) {
	encoded, err := r.RequiredValidators.Encode()
	if err != nil {
		return nil, err
	}
	row := &requestDatamodel.ExpenseRequest{
		ID:                     r.ID,
		AssociationID:          r.AssociationID,
		SectionID:              r.SectionID,
		RequesterID:            r.RequesterID,
		BeneficiaryID:          r.BeneficiaryID,
		BeneficiaryName:        r.BeneficiaryName,
		BeneficiaryContact:     r.BeneficiaryContact,
		ExpenseType:            r.ExpenseType,
		ExpenseSubtype:         r.ExpenseSubtype,
		Description:            r.Description,
		UrgencyLevel:           r.UrgencyLevel,
		AmountRequested:        r.AmountRequested,
		AmountApproved:         r.AmountApproved,
		Currency:               r.Currency,
		IsLoan:                 r.IsLoan,
		Status:                 r.Status,
		RequiredValidators:     encoded,
		Version:                r.Version,
		PaymentMode:            r.PaymentMode,
		PaymentMethod:          r.PaymentMethod,
		ManualPaymentReference: r.ManualPaymentReference,
		TransactionID:          r.TransactionID,
		PaidAt:                 r.PaidAt,
		CancelReason:           r.CancelReason,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
	if r.LoanTerms != nil {
		row.LoanDurationMonths = &r.LoanTerms.DurationMonths
		row.LoanInterestRate = &r.LoanTerms.InterestRate
		row.LoanMonthlyPayment = r.LoanTerms.MonthlyPayment
	}
	return row, nil
}

func FromDataModel(row *requestDatamodel.ExpenseRequest, records []*requestDatamodel.ValidationRecord) (*ExpenseRequest, error) {
	validators, err := DecodeRoleSet(row.RequiredValidators)
	if err != nil {
		return nil, err
	}
	req := &ExpenseRequest{
		ID:                     row.ID,
		AssociationID:          row.AssociationID,
		SectionID:              row.SectionID,
		RequesterID:            row.RequesterID,
		BeneficiaryID:          row.BeneficiaryID,
		BeneficiaryName:        row.BeneficiaryName,
		BeneficiaryContact:     row.BeneficiaryContact,
		ExpenseType:            row.ExpenseType,
		ExpenseSubtype:         row.ExpenseSubtype,
		Description:            row.Description,
		UrgencyLevel:           row.UrgencyLevel,
		AmountRequested:        row.AmountRequested,
		AmountApproved:         row.AmountApproved,
		Currency:               row.Currency,
		IsLoan:                 row.IsLoan,
		Status:                 row.Status,
		RequiredValidators:     validators,
		Version:                row.Version,
		PaymentMode:            row.PaymentMode,
		PaymentMethod:          row.PaymentMethod,
		ManualPaymentReference: row.ManualPaymentReference,
		TransactionID:          row.TransactionID,
		PaidAt:                 row.PaidAt,
		CancelReason:           row.CancelReason,
		CreatedAt:              row.CreatedAt,
		UpdatedAt:              row.UpdatedAt,
	}
	if row.LoanDurationMonths != nil && row.LoanInterestRate != nil {
		req.LoanTerms = &LoanTerms{
			DurationMonths: *row.LoanDurationMonths,
			InterestRate:   *row.LoanInterestRate,
			MonthlyPayment: row.LoanMonthlyPayment,
		}
	}
	req.History = make([]ValidationRecord, 0, len(records))
	for _, rec := range records {
		req.History = append(req.History, ValidationRecord{
			ID:             rec.ID,
			UserID:         rec.UserID,
			Role:           rec.Role,
			Decision:       rec.Decision,
			Comment:        rec.Comment,
			AmountApproved: rec.AmountApproved,
			CreatedAt:      rec.CreatedAt,
		})
	}
	return req, nil
}
