package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeRequestCreated     = "request.created"
	EventTypeRequestUnderReview = "request.under_review"
	EventTypeRequestApproved    = "request.approved"
	EventTypeRequestRejected    = "request.rejected"
	EventTypeRequestInfoNeeded  = "request.info_needed"
	EventTypeRequestCancelled   = "request.cancelled"
	EventTypeRequestPaid        = "request.paid"
	EventTypeRequestPaymentFail = "request.payment_failed"
	EventTypeRepaymentValidated = "repayment.validated"
)

// RequestTransitionEvent is emitted on every workflow state change so the
// notification collaborator can fan out without the workflow knowing about it.
type RequestTransitionEvent struct {
	BaseEvent
	RequestID     int64  `json:"request_id"`
	AssociationID int64  `json:"association_id"`
	Status        string `json:"status"`
	ActorID       int64  `json:"actor_id"`
	Amount        int64  `json:"amount"`
}

func NewRequestTransitionEvent(eventType string, requestID, associationID, actorID, amount int64, status string) *RequestTransitionEvent {
	return &RequestTransitionEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"request_id":     requestID,
				"association_id": associationID,
				"status":         status,
				"actor_id":       actorID,
				"amount":         amount,
			},
		},
		RequestID:     requestID,
		AssociationID: associationID,
		Status:        status,
		ActorID:       actorID,
		Amount:        amount,
	}
}

type RequestPaidEvent struct {
	BaseEvent
	RequestID     int64  `json:"request_id"`
	AssociationID int64  `json:"association_id"`
	TransactionID int64  `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	IsLoan        bool   `json:"is_loan"`
	Currency      string `json:"currency"`
}

func NewRequestPaidEvent(requestID, associationID, transactionID, amount int64, isLoan bool, currency string) *RequestPaidEvent {
	return &RequestPaidEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRequestPaid,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"request_id":     requestID,
				"association_id": associationID,
				"transaction_id": transactionID,
				"amount":         amount,
				"is_loan":        isLoan,
				"currency":       currency,
			},
		},
		RequestID:     requestID,
		AssociationID: associationID,
		TransactionID: transactionID,
		Amount:        amount,
		IsLoan:        isLoan,
		Currency:      currency,
	}
}

type RepaymentValidatedEvent struct {
	BaseEvent
	RepaymentID     int64 `json:"repayment_id"`
	RequestID       int64 `json:"request_id"`
	AssociationID   int64 `json:"association_id"`
	Amount          int64 `json:"amount"`
	PrincipalAmount int64 `json:"principal_amount"`
	Outstanding     int64 `json:"outstanding"`
}

func NewRepaymentValidatedEvent(repaymentID, requestID, associationID, amount, principalAmount, outstanding int64) *RepaymentValidatedEvent {
	return &RepaymentValidatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRepaymentValidated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"repayment_id":     repaymentID,
				"request_id":       requestID,
				"association_id":   associationID,
				"amount":           amount,
				"principal_amount": principalAmount,
				"outstanding":      outstanding,
			},
		},
		RepaymentID:     repaymentID,
		RequestID:       requestID,
		AssociationID:   associationID,
		Amount:          amount,
		PrincipalAmount: principalAmount,
		Outstanding:     outstanding,
	}
}
