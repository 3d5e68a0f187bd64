package request

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/association-treasury/internal"
	"github.com/frahmantamala/association-treasury/internal/core/events"
	"github.com/frahmantamala/association-treasury/internal/ledger"
	"github.com/frahmantamala/association-treasury/internal/treasury"
	"github.com/google/uuid"
)

// RepositoryAPI is the data access contract for expense requests. Mutating
// methods are atomic with the history append they carry and fail with
// internal.ErrVersionConflict when the row moved underneath the caller.
type RepositoryAPI interface {
	Create(req *ExpenseRequest) error
	GetByID(id int64) (*ExpenseRequest, error)
	GetByAssociation(associationID int64, limit, offset int) ([]*ExpenseRequest, error)
	GetOpenByAssociation(associationID int64) ([]*ExpenseRequest, error)
	AppendDecision(req *ExpenseRequest, rec *ValidationRecord, newStatus string, amountApproved *int64) error
	MarkCancelled(req *ExpenseRequest, reason string) error
	MarkPaid(req *ExpenseRequest, details PaymentDetails, entry *ledger.Entry) error
	MarkPaymentFailed(req *ExpenseRequest) error
}

// FundsChecker gates every transition that commits funds.
type FundsChecker interface {
	CheckSufficientFunds(associationID, amount int64) (*treasury.FundsCheck, error)
}

// RoleDirectory resolves a member to their bureau role; membership
// administration itself is an external collaborator.
type RoleDirectory interface {
	RoleOf(userID, associationID int64) (string, error)
}

// ConfigAPI exposes the association configuration this workflow consumes.
type ConfigAPI interface {
	RequiredValidatorsForType(associationID int64, expenseType string) ([]string, error)
	MaxAmountFor(associationID int64, expenseType string, subtype *string) (*int64, error)
	DefaultCurrency(associationID int64) (string, error)
}

// Notifier is fire-and-forget: failures to notify never roll back a
// transition.
type Notifier interface {
	Notify(event string, requestID int64, fields map[string]interface{})
}

type Service struct {
	repo          RepositoryAPI
	funds         FundsChecker
	roles         RoleDirectory
	config        ConfigAPI
	notifier      Notifier
	eventBus      *events.EventBus
	logger        *slog.Logger
	decideRetries int

	// locksMu guards locks; one mutex per request id serializes concurrent
	// decisions on the same request in-process. Entries are never reaped;
	// the map stays small for the lifetime of a deployment.
	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func NewService(repo RepositoryAPI, funds FundsChecker, roles RoleDirectory, config ConfigAPI, notifier Notifier, eventBus *events.EventBus, decideRetries int, logger *slog.Logger) *Service {
	if decideRetries < 1 {
		decideRetries = 1
	}
	return &Service{
		repo:          repo,
		funds:         funds,
		roles:         roles,
		config:        config,
		notifier:      notifier,
		eventBus:      eventBus,
		logger:        logger,
		decideRetries: decideRetries,
		locks:         make(map[int64]*sync.Mutex),
	}
}

func (s *Service) requestLock(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

// CreateRequest validates, freezes the required validator set from
// association configuration and persists the request in pending.
func (s *Service) CreateRequest(dto *CreateRequestDTO, requesterID int64) (*ExpenseRequest, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("request validation failed", "error", err, "requester_id", requesterID)
		return nil, err
	}

	maxAmount, err := s.config.MaxAmountFor(dto.AssociationID, dto.ExpenseType, dto.ExpenseSubtype)
	if err != nil {
		s.logger.Error("failed to load subtype cap", "error", err, "association_id", dto.AssociationID)
		return nil, err
	}
	if maxAmount != nil && dto.AmountRequested > *maxAmount {
		return nil, internal.NewValidationError("amount_requested exceeds the cap for this expense subtype", internal.ErrCodeAmountOverCap)
	}

	roles, err := s.config.RequiredValidatorsForType(dto.AssociationID, dto.ExpenseType)
	if err != nil {
		s.logger.Error("failed to load required validators", "error", err, "association_id", dto.AssociationID, "expense_type", dto.ExpenseType)
		return nil, err
	}
	if len(roles) == 0 {
		return nil, internal.NewValidationError("no validator roles configured for this expense type", internal.ErrCodeValidationFailed)
	}

	currency := dto.Currency
	if currency == "" {
		currency, err = s.config.DefaultCurrency(dto.AssociationID)
		if err != nil {
			return nil, err
		}
	}

	urgency := dto.UrgencyLevel
	if urgency == "" {
		urgency = "normal"
	}

	now := time.Now()
	req := &ExpenseRequest{
		AssociationID:      dto.AssociationID,
		SectionID:          dto.SectionID,
		RequesterID:        requesterID,
		BeneficiaryID:      dto.BeneficiaryID,
		BeneficiaryName:    dto.BeneficiaryName,
		BeneficiaryContact: dto.BeneficiaryContact,
		ExpenseType:        dto.ExpenseType,
		ExpenseSubtype:     dto.ExpenseSubtype,
		Description:        dto.Description,
		UrgencyLevel:       urgency,
		AmountRequested:    dto.AmountRequested,
		Currency:           currency,
		IsLoan:             dto.IsLoan,
		LoanTerms:          dto.LoanTerms,
		Status:             StatusPending,
		RequiredValidators: NewRoleSet(roles...),
		History:            []ValidationRecord{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(req); err != nil {
		s.logger.Error("failed to create expense request", "error", err, "requester_id", requesterID)
		return nil, err
	}

	s.logger.Info("expense request created",
		"request_id", req.ID,
		"association_id", req.AssociationID,
		"requester_id", requesterID,
		"amount_requested", req.AmountRequested,
		"required_validators", req.RequiredValidators.Roles())

	s.publishTransition(events.EventTypeRequestCreated, req, requesterID)
	return req, nil
}

// Decide records one validator decision and moves the request through the
// transition table. Decisions on the same request serialize on a per-request
// lock; a concurrent writer from another process surfaces as a version
// conflict and is retried against fresh state.
func (s *Service) Decide(requestID, userID int64, dto *DecisionDTO) (*ExpenseRequest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	lock := s.requestLock(requestID)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt < s.decideRetries; attempt++ {
		req, err := s.decideOnce(requestID, userID, dto)
		if err == nil {
			return req, nil
		}
		if appErr, ok := internal.IsAppError(err); !ok || appErr.Code != internal.ErrCodeVersionConflict {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("decision hit a concurrent modification, retrying",
			"request_id", requestID, "attempt", attempt+1)
	}
	return nil, lastErr
}

func (s *Service) decideOnce(requestID, userID int64, dto *DecisionDTO) (*ExpenseRequest, error) {
	req, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if !req.CanReceiveDecision() {
		return nil, internal.NewConflictErrorWithStatus(
			"request no longer accepts decisions", internal.ErrCodeTerminalStatus, req.Status)
	}

	role, err := s.roles.RoleOf(userID, req.AssociationID)
	if err != nil {
		s.logger.Warn("decision by member with no role", "request_id", requestID, "user_id", userID)
		return nil, internal.ErrRoleNotRequired.WithCause(err)
	}
	if !req.RequiredValidators.Contains(role) {
		return nil, internal.ErrRoleNotRequired
	}

	rec := &ValidationRecord{
		UserID:         userID,
		Role:           role,
		Decision:       dto.Decision,
		Comment:        dto.Comment,
		AmountApproved: dto.AmountApproved,
		CreatedAt:      time.Now(),
	}

	var newStatus string
	var persistAmount *int64

	switch dto.Decision {
	case DecisionApproved:
		if req.HasApprovalFromRole(role) {
			return nil, internal.NewConflictErrorWithStatus(
				"duplicate validation: this role already approved", internal.ErrCodeDuplicateValidation, req.Status)
		}

		proposed := req.EffectiveAmount()
		if dto.AmountApproved != nil {
			proposed = *dto.AmountApproved
			if proposed > req.AmountRequested && dto.Comment == "" {
				return nil, internal.NewValidationError(
					"raising amount_approved above amount_requested requires a comment", internal.ErrCodeInvalidAmount)
			}
			persistAmount = dto.AmountApproved
		}

		// Speculative check: avoids advancing a request that cannot be
		// honored. The payment-time check is the authoritative backstop.
		check, err := s.funds.CheckSufficientFunds(req.AssociationID, proposed)
		if err != nil {
			return nil, err
		}
		if !check.Sufficient {
			return nil, internal.NewInsufficientFundsError(check.AvailableBalance, check.Shortage)
		}

		newStatus, _ = Transition(req.Status, EventApprove)
		preview := *req
		preview.History = append(append([]ValidationRecord{}, req.History...), *rec)
		if preview.QuorumMet() {
			newStatus = StatusApproved
			if persistAmount == nil && req.AmountApproved == nil {
				amount := req.AmountRequested
				persistAmount = &amount
			}
		}

	case DecisionRejected:
		// A single rejection from a required role is terminal.
		target, ok := Transition(req.Status, EventReject)
		if !ok {
			return nil, internal.NewConflictErrorWithStatus(
				"request cannot be rejected in its current status", internal.ErrCodeInvalidTransition, req.Status)
		}
		newStatus = target

	case DecisionInfoRequested:
		target, ok := Transition(req.Status, EventRequestInfo)
		if !ok {
			return nil, internal.NewConflictErrorWithStatus(
				"request cannot move to additional_info_needed", internal.ErrCodeInvalidTransition, req.Status)
		}
		newStatus = target
	}

	if err := s.repo.AppendDecision(req, rec, newStatus, persistAmount); err != nil {
		return nil, err
	}

	s.logger.Info("decision recorded",
		"request_id", req.ID,
		"user_id", userID,
		"role", role,
		"decision", dto.Decision,
		"new_status", req.Status)

	switch req.Status {
	case StatusApproved:
		s.publishTransition(events.EventTypeRequestApproved, req, userID)
	case StatusRejected:
		s.publishTransition(events.EventTypeRequestRejected, req, userID)
	case StatusInfoNeeded:
		s.publishTransition(events.EventTypeRequestInfoNeeded, req, userID)
	default:
		s.publishTransition(events.EventTypeRequestUnderReview, req, userID)
	}

	return req, nil
}

// Cancel withdraws an open request. Allowed to the requester and to holders
// of any required validator role.
func (s *Service) Cancel(requestID, userID int64, dto *CancelDTO) (*ExpenseRequest, error) {
	lock := s.requestLock(requestID)
	lock.Lock()
	defer lock.Unlock()

	req, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if !req.CanBeCancelled() {
		return nil, internal.NewConflictErrorWithStatus(
			"request cannot be cancelled in its current status", internal.ErrCodeTerminalStatus, req.Status)
	}

	if userID != req.RequesterID {
		role, err := s.roles.RoleOf(userID, req.AssociationID)
		if err != nil || !req.RequiredValidators.Contains(role) {
			return nil, internal.ErrNotRequester
		}
	}

	if err := s.repo.MarkCancelled(req, dto.Reason); err != nil {
		return nil, err
	}

	s.logger.Info("request cancelled", "request_id", req.ID, "user_id", userID, "reason", dto.Reason)
	s.publishTransition(events.EventTypeRequestCancelled, req, userID)
	return req, nil
}

// ConfirmPayment moves an approved request to paid. The funds check here is
/// authoritative: the balance may have moved since approval. The status flip,
// history and the completed ledger entry commit in one transaction, so a
// paid request without a ledger entry is not observable.
func (s *Service) ConfirmPayment(requestID, actorID int64, dto *ConfirmPaymentDTO) (*ExpenseRequest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	lock := s.requestLock(requestID)
	lock.Lock()
	defer lock.Unlock()

	req, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if _, ok := Transition(req.Status, EventConfirmPayment); !ok {
		return nil, internal.NewConflictErrorWithStatus(
			"only an approved request can be paid", internal.ErrCodeInvalidTransition, req.Status)
	}

	amount := req.EffectiveAmount()
	check, err := s.funds.CheckSufficientFunds(req.AssociationID, amount)
	if err != nil {
		return nil, err
	}
	if !check.Sufficient {
		// Status stays approved; the caller may retry once funds return.
		return nil, internal.NewInsufficientFundsError(check.AvailableBalance, check.Shortage)
	}

	reference := dto.ManualPaymentReference
	if reference == nil {
		generated := uuid.New().String()
		reference = &generated
	}

	requestID64 := req.ID
	entry := &ledger.Entry{
		AssociationID: req.AssociationID,
		Type:          ledger.TypeAide,
		Amount:        amount,
		NetAmount:     amount,
		Currency:      req.Currency,
		Status:        ledger.StatusCompleted,
		Reference:     reference,
		RequestID:     &requestID64,
	}

	details := PaymentDetails{
		PaymentMode:            dto.PaymentMode,
		PaymentMethod:          dto.PaymentMethod,
		ManualPaymentReference: reference,
	}

	if err := s.repo.MarkPaid(req, details, entry); err != nil {
		s.logger.Error("failed to mark request paid", "error", err, "request_id", req.ID)
		return nil, err
	}

	s.logger.Info("request paid",
		"request_id", req.ID,
		"association_id", req.AssociationID,
		"amount", amount,
		"transaction_id", entry.ID,
		"is_loan", req.IsLoan)

	s.eventBus.Publish(context.Background(),
		events.NewRequestPaidEvent(req.ID, req.AssociationID, entry.ID, amount, req.IsLoan, req.Currency))
	s.notifier.Notify(events.EventTypeRequestPaid, req.ID, map[string]interface{}{
		"association_id": req.AssociationID,
		"status":         req.Status,
		"amount":         amount,
	})
	return req, nil
}

// FailPayment records a payment failure on an approved request.
func (s *Service) FailPayment(requestID, actorID int64, dto *FailPaymentDTO) (*ExpenseRequest, error) {
	lock := s.requestLock(requestID)
	lock.Lock()
	defer lock.Unlock()

	req, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if _, ok := Transition(req.Status, EventFailPayment); !ok {
		return nil, internal.NewConflictErrorWithStatus(
			"only an approved request can fail payment", internal.ErrCodeInvalidTransition, req.Status)
	}

	if err := s.repo.MarkPaymentFailed(req); err != nil {
		return nil, err
	}

	s.logger.Warn("payment failed",
		"request_id", req.ID,
		"association_id", req.AssociationID,
		"reason", dto.Reason)
	s.publishTransition(events.EventTypeRequestPaymentFail, req, actorID)
	return req, nil
}

func (s *Service) GetRequest(requestID int64) (*ExpenseRequest, error) {
	return s.repo.GetByID(requestID)
}

func (s *Service) ListRequests(associationID int64, limit, offset int) ([]*ExpenseRequest, error) {
	return s.repo.GetByAssociation(associationID, limit, offset)
}

func (s *Service) publishTransition(eventType string, req *ExpenseRequest, actorID int64) {
	s.eventBus.Publish(context.Background(),
		events.NewRequestTransitionEvent(eventType, req.ID, req.AssociationID, actorID, req.EffectiveAmount(), req.Status))
	s.notifier.Notify(eventType, req.ID, map[string]interface{}{
		"association_id": req.AssociationID,
		"status":         req.Status,
		"actor_id":       actorID,
	})
}
