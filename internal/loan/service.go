package loan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/association-treasury/internal"
	"github.com/frahmantamala/association-treasury/internal/core/events"
	"github.com/frahmantamala/association-treasury/internal/ledger"
	"github.com/frahmantamala/association-treasury/internal/request"
)

// RepositoryAPI is the data access contract for loan repayments. Rows are
// appended and status-updated, never deleted.
type RepositoryAPI interface {
	CreateValidated(rep *Repayment, entry *ledger.Entry) error
	CreateInstallment(rep *Repayment) error
	FindPendingInstallment(requestID int64, installmentNo int) (*Repayment, error)
	ValidateInstallment(rep *Repayment, entry *ledger.Entry) error
	ListByRequest(requestID int64) ([]*Repayment, error)
	SumValidatedPrincipal(requestID int64) (int64, error)
	ListOverduePending(associationID int64, now time.Time) ([]*Repayment, error)
}

// RequestStore is the view of the workflow this tracker needs.
type RequestStore interface {
	GetByID(id int64) (*request.ExpenseRequest, error)
}

type Notifier interface {
	Notify(event string, requestID int64, fields map[string]interface{})
}

type Service struct {
	repo     RepositoryAPI
	requests RequestStore
	notifier Notifier
	eventBus *events.EventBus
	logger   *slog.Logger

	// locksMu guards locks; one mutex per request id serializes concurrent
	// repayments on the same loan in-process, so the overshoot check reads a
	// sum no other writer is moving. Entries are never reaped; the map stays
	// small for the lifetime of a deployment.
	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func NewService(repo RepositoryAPI, requests RequestStore, notifier Notifier, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		requests: requests,
		notifier: notifier,
		eventBus: eventBus,
		logger:   logger,
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (s *Service) loanLock(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

// RecordRepayment records a validated installment against a paid loan and
// appends the matching "remboursement" ledger entry in the same transaction.
// A repayment that would push validated principal past the loan amount is
// rejected so the stored outstanding figure never goes negative. When the
// payload names an installment number with a scheduled pending row, that row
// is validated in place instead of appending a duplicate.
func (s *Service) RecordRepayment(requestID, actorID int64, dto *RecordRepaymentDTO) (*Repayment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	lock := s.loanLock(requestID)
	lock.Lock()
	defer lock.Unlock()

	req, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsLoan {
		return nil, internal.NewValidationError("request is not a loan", internal.ErrCodeNotALoan)
	}
	if req.Status != request.StatusPaid {
		return nil, internal.NewConflictErrorWithStatus(
			"repayments can only be recorded against a paid loan", internal.ErrCodeInvalidTransition, req.Status)
	}

	interest := int64(0)
	if dto.InterestAmount != nil {
		interest = *dto.InterestAmount
	}
	principal := dto.Amount - interest
	if dto.PrincipalAmount != nil {
		principal = *dto.PrincipalAmount
	}
	if principal <= 0 {
		return nil, internal.NewValidationError("repayment principal must be greater than 0", internal.ErrCodeInvalidAmount)
	}

	loanAmount := req.EffectiveAmount()
	repaid, err := s.repo.SumValidatedPrincipal(requestID)
	if err != nil {
		return nil, err
	}
	if repaid+principal > loanAmount {
		s.logger.Warn("repayment would exceed outstanding principal",
			"request_id", requestID,
			"loan_amount", loanAmount,
			"repaid", repaid,
			"principal", principal)
		return nil, internal.NewConflictError(
			"repayment exceeds outstanding loan principal", internal.ErrCodeRepaymentOverflow).
			WithDetails(map[string]int64{"outstanding": loanAmount - repaid})
	}

	var scheduled *Repayment
	if dto.InstallmentNo != nil {
		scheduled, err = s.repo.FindPendingInstallment(requestID, *dto.InstallmentNo)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	paymentDate := dto.PaymentDate
	if paymentDate == nil {
		paymentDate = &now
	}

	rep := &Repayment{
		ExpenseRequestID: requestID,
		AssociationID:    req.AssociationID,
		Amount:           dto.Amount,
		PrincipalAmount:  principal,
		InterestAmount:   interest,
		PaymentDate:      paymentDate,
		DueDate:          dto.DueDate,
		InstallmentNo:    dto.InstallmentNo,
		Status:           RepaymentStatusValidated,
		ValidatedBy:      &actorID,
		ValidatedAt:      &now,
		CreatedAt:        now,
	}

	entry := &ledger.Entry{
		AssociationID: req.AssociationID,
		Type:          ledger.TypeRemboursement,
		Amount:        dto.Amount,
		NetAmount:     dto.Amount,
		Currency:      req.Currency,
		Status:        ledger.StatusCompleted,
		RequestID:     &requestID,
	}

	if scheduled != nil {
		rep.ID = scheduled.ID
		rep.CreatedAt = scheduled.CreatedAt
		if rep.DueDate == nil {
			rep.DueDate = scheduled.DueDate
		}
		err = s.repo.ValidateInstallment(rep, entry)
	} else {
		err = s.repo.CreateValidated(rep, entry)
	}
	if err != nil {
		s.logger.Error("failed to record repayment", "error", err, "request_id", requestID)
		return nil, err
	}

	outstanding := loanAmount - repaid - principal
	s.logger.Info("repayment validated",
		"repayment_id", rep.ID,
		"request_id", requestID,
		"amount", dto.Amount,
		"principal", principal,
		"outstanding", outstanding)

	s.eventBus.Publish(context.Background(),
		events.NewRepaymentValidatedEvent(rep.ID, requestID, req.AssociationID, dto.Amount, principal, outstanding))
	s.notifier.Notify(events.EventTypeRepaymentValidated, requestID, map[string]interface{}{
		"repayment_id": rep.ID,
		"amount":       dto.Amount,
		"outstanding":  outstanding,
	})
	return rep, nil
}

// ScheduleInstallment creates a pending installment with a due date so the
// tracker can flag it late before any money moves.
func (s *Service) ScheduleInstallment(requestID, actorID int64, dto *ScheduleInstallmentDTO) (*Repayment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	lock := s.loanLock(requestID)
	lock.Lock()
	defer lock.Unlock()

	req, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsLoan {
		return nil, internal.NewValidationError("request is not a loan", internal.ErrCodeNotALoan)
	}
	if req.Status != request.StatusPaid {
		return nil, internal.NewConflictErrorWithStatus(
			"installments can only be scheduled on a paid loan", internal.ErrCodeInvalidTransition, req.Status)
	}

	now := time.Now()
	dueDate := dto.DueDate
	installmentNo := dto.InstallmentNo
	rep := &Repayment{
		ExpenseRequestID: requestID,
		AssociationID:    req.AssociationID,
		Amount:           dto.Amount,
		PrincipalAmount:  dto.Amount,
		DueDate:          &dueDate,
		InstallmentNo:    &installmentNo,
		Status:           RepaymentStatusPending,
		CreatedAt:        now,
	}

	if err := s.repo.CreateInstallment(rep); err != nil {
		s.logger.Error("failed to schedule installment", "error", err, "request_id", requestID)
		return nil, err
	}

	s.logger.Info("installment scheduled",
		"repayment_id", rep.ID,
		"request_id", requestID,
		"due_date", dueDate,
		"installment_number", installmentNo)
	return rep, nil
}

// OutstandingBalance is loanAmount minus validated principal, floored at 0
// for display.
func (s *Service) OutstandingBalance(requestID int64) (int64, error) {
	progress, err := s.Progress(requestID)
	if err != nil {
		return 0, err
	}
	return progress.OutstandingBalance, nil
}

func (s *Service) Progress(requestID int64) (*Progress, error) {
	req, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsLoan {
		return nil, internal.NewValidationError("request is not a loan", internal.ErrCodeNotALoan)
	}

	repaid, err := s.repo.SumValidatedPrincipal(requestID)
	if err != nil {
		return nil, err
	}

	progress := ComputeProgress(requestID, req.EffectiveAmount(), repaid)
	return &progress, nil
}

// Schedule returns the full installment view with daysLate recomputed on
// read.
func (s *Service) Schedule(requestID int64) (*Schedule, error) {
	progress, err := s.Progress(requestID)
	if err != nil {
		return nil, err
	}
	repayments, err := s.repo.ListByRequest(requestID)
	if err != nil {
		return nil, err
	}
	return &Schedule{Progress: *progress, Repayments: repayments}, nil
}

// OverdueRepayments lists pending installments past their due date for one
// association.
func (s *Service) OverdueRepayments(associationID int64) ([]*Repayment, error) {
	return s.repo.ListOverduePending(associationID, time.Now())
}
