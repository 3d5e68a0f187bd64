package request_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/association-treasury/internal"
	"github.com/frahmantamala/association-treasury/internal/core/events"
	"github.com/frahmantamala/association-treasury/internal/ledger"
	"github.com/frahmantamala/association-treasury/internal/request"
	"github.com/frahmantamala/association-treasury/internal/treasury"
)

func TestRequestService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RequestService Suite")
}

// Mock repository keeping requests in memory with a version counter, so the
// optimistic concurrency path can be exercised without a database.
type mockRequestRepository struct {
	requests      map[int64]*request.ExpenseRequest
	nextID        int64
	createError   error
	getError      error
	decisionError error
	// conflictsLeft makes AppendDecision fail with a version conflict this
	// many times before succeeding.
	conflictsLeft int
	paidEntries   []*ledger.Entry
}

func newMockRequestRepository() *mockRequestRepository {
	return &mockRequestRepository{
		requests: make(map[int64]*request.ExpenseRequest),
		nextID:   1,
	}
}

func (m *mockRequestRepository) Create(req *request.ExpenseRequest) error {
	if m.createError != nil {
		return m.createError
	}
	req.ID = m.nextID
	m.nextID++
	m.requests[req.ID] = req
	return nil
}

func (m *mockRequestRepository) GetByID(id int64) (*request.ExpenseRequest, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	req, ok := m.requests[id]
	if !ok {
		return nil, internal.ErrRequestNotFound
	}
	clone := *req
	clone.History = append([]request.ValidationRecord{}, req.History...)
	return &clone, nil
}

func (m *mockRequestRepository) GetByAssociation(associationID int64, limit, offset int) ([]*request.ExpenseRequest, error) {
	result := []*request.ExpenseRequest{}
	for _, req := range m.requests {
		if req.AssociationID == associationID {
			result = append(result, req)
		}
	}
	return result, nil
}

func (m *mockRequestRepository) GetOpenByAssociation(associationID int64) ([]*request.ExpenseRequest, error) {
	result := []*request.ExpenseRequest{}
	for _, req := range m.requests {
		if req.AssociationID != associationID {
			continue
		}
		switch req.Status {
		case request.StatusPending, request.StatusUnderReview, request.StatusApproved:
			result = append(result, req)
		}
	}
	return result, nil
}

func (m *mockRequestRepository) AppendDecision(req *request.ExpenseRequest, rec *request.ValidationRecord, newStatus string, amountApproved *int64) error {
	if m.decisionError != nil {
		return m.decisionError
	}
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		return internal.ErrVersionConflict
	}
	stored := m.requests[req.ID]
	stored.Status = newStatus
	stored.Version++
	if amountApproved != nil {
		stored.AmountApproved = amountApproved
	}
	stored.History = append(stored.History, *rec)

	req.Status = stored.Status
	req.Version = stored.Version
	req.AmountApproved = stored.AmountApproved
	req.History = append(req.History, *rec)
	return nil
}

func (m *mockRequestRepository) MarkCancelled(req *request.ExpenseRequest, reason string) error {
	stored := m.requests[req.ID]
	stored.Status = request.StatusCancelled
	stored.CancelReason = &reason
	stored.Version++
	req.Status = stored.Status
	req.CancelReason = &reason
	return nil
}

func (m *mockRequestRepository) MarkPaid(req *request.ExpenseRequest, details request.PaymentDetails, entry *ledger.Entry) error {
	entry.ID = int64(len(m.paidEntries) + 1)
	m.paidEntries = append(m.paidEntries, entry)
	stored := m.requests[req.ID]
	now := time.Now()
	stored.Status = request.StatusPaid
	stored.PaidAt = &now
	stored.TransactionID = &entry.ID
	stored.Version++
	req.Status = stored.Status
	req.PaidAt = stored.PaidAt
	req.TransactionID = stored.TransactionID
	return nil
}

func (m *mockRequestRepository) MarkPaymentFailed(req *request.ExpenseRequest) error {
	stored := m.requests[req.ID]
	stored.Status = request.StatusPaymentFailed
	stored.Version++
	req.Status = stored.Status
	return nil
}

type mockFundsChecker struct {
	available int64
	checkErr  error
}

func (m *mockFundsChecker) CheckSufficientFunds(associationID, amount int64) (*treasury.FundsCheck, error) {
	if m.checkErr != nil {
		return nil, m.checkErr
	}
	check := &treasury.FundsCheck{
		Sufficient:       amount <= m.available,
		AvailableBalance: m.available,
	}
	if !check.Sufficient {
		check.Shortage = amount - m.available
	}
	return check, nil
}

type mockRoleDirectory struct {
	roles map[int64]string
}

func (m *mockRoleDirectory) RoleOf(userID, associationID int64) (string, error) {
	role, ok := m.roles[userID]
	if !ok {
		return "", internal.NewForbiddenError("no membership", internal.ErrCodeUnauthorizedAccess)
	}
	return role, nil
}

type mockConfig struct {
	validators map[string][]string
	maxAmounts map[string]int64
}

func (m *mockConfig) RequiredValidatorsForType(associationID int64, expenseType string) ([]string, error) {
	return m.validators[expenseType], nil
}

func (m *mockConfig) MaxAmountFor(associationID int64, expenseType string, subtype *string) (*int64, error) {
	if subtype == nil {
		return nil, nil
	}
	if maxAmount, ok := m.maxAmounts[*subtype]; ok {
		return &maxAmount, nil
	}
	return nil, nil
}

func (m *mockConfig) DefaultCurrency(associationID int64) (string, error) {
	return "EUR", nil
}

type mockNotifier struct {
	events []string
}

func (m *mockNotifier) Notify(event string, requestID int64, fields map[string]interface{}) {
	m.events = append(m.events, event)
}

var _ = Describe("RequestService", func() {
	var (
		repo     *mockRequestRepository
		funds    *mockFundsChecker
		roles    *mockRoleDirectory
		config   *mockConfig
		notifier *mockNotifier
		service  *request.Service
	)

	const (
		requesterID = int64(10)
		presidentID = int64(11)
		treasurerID = int64(12)
		strangerID  = int64(99)
	)

	newCreateDTO := func() *request.CreateRequestDTO {
		name := "Peinture salle commune"
		return &request.CreateRequestDTO{
			AssociationID:   1,
			ExpenseType:     "achat",
			Description:     "peinture et pinceaux",
			AmountRequested: 15000,
			BeneficiaryName: &name,
		}
	}

	BeforeEach(func() {
		repo = newMockRequestRepository()
		funds = &mockFundsChecker{available: 100000}
		roles = &mockRoleDirectory{roles: map[int64]string{
			presidentID: "president",
			treasurerID: "treasurer",
		}}
		config = &mockConfig{
			validators: map[string][]string{
				"achat": {"president", "treasurer"},
			},
			maxAmounts: map[string]int64{"petit_achat": 5000},
		}
		notifier = &mockNotifier{}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		eventBus := events.NewEventBus(logger)
		service = request.NewService(repo, funds, roles, config, notifier, eventBus, 3, logger)
	})

	Describe("CreateRequest", func() {
		It("should create a pending request with the validator set frozen", func() {
			req, err := service.CreateRequest(newCreateDTO(), requesterID)
			Expect(err).NotTo(HaveOccurred())
			Expect(req.ID).To(BeNumerically(">", 0))
			Expect(req.Status).To(Equal(request.StatusPending))
			Expect(req.RequiredValidators.Roles()).To(Equal([]string{"president", "treasurer"}))
			Expect(req.Currency).To(Equal("EUR"))
		})

		It("should reject a request without a beneficiary", func() {
			dto := newCreateDTO()
			dto.BeneficiaryName = nil
			_, err := service.CreateRequest(dto, requesterID)
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("should reject a loan request without loan terms", func() {
			dto := newCreateDTO()
			dto.IsLoan = true
			_, err := service.CreateRequest(dto, requesterID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidLoanTerms))
		})

		It("should reject an amount above the subtype cap", func() {
			dto := newCreateDTO()
			subtype := "petit_achat"
			dto.ExpenseSubtype = &subtype
			dto.AmountRequested = 6000
			_, err := service.CreateRequest(dto, requesterID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeAmountOverCap))
		})

		It("should reject an expense type with no validators configured", func() {
			dto := newCreateDTO()
			dto.ExpenseType = "inconnu"
			_, err := service.CreateRequest(dto, requesterID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})
	})

	Describe("Decide", func() {
		var req *request.ExpenseRequest

		approve := func(userID int64) (*request.ExpenseRequest, error) {
			return service.Decide(req.ID, userID, &request.DecisionDTO{Decision: request.DecisionApproved})
		}

		BeforeEach(func() {
			var err error
			req, err = service.CreateRequest(newCreateDTO(), requesterID)
			Expect(err).NotTo(HaveOccurred())
		})

		Context("when the first required role approves", func() {
			It("should move the request to under_review", func() {
				updated, err := approve(presidentID)
				Expect(err).NotTo(HaveOccurred())
				Expect(updated.Status).To(Equal(request.StatusUnderReview))
				Expect(updated.History).To(HaveLen(1))
				Expect(updated.History[0].Role).To(Equal("president"))
			})
		})

		Context("when every required role has approved", func() {
			It("should reach approved and default amount_approved to the requested amount", func() {
				_, err := approve(presidentID)
				Expect(err).NotTo(HaveOccurred())

				updated, err := approve(treasurerID)
				Expect(err).NotTo(HaveOccurred())
				Expect(updated.Status).To(Equal(request.StatusApproved))
				Expect(updated.AmountApproved).NotTo(BeNil())
				Expect(*updated.AmountApproved).To(Equal(int64(15000)))
			})
		})

		Context("when the same role approves twice", func() {
			It("should reject the duplicate validation", func() {
				_, err := approve(presidentID)
				Expect(err).NotTo(HaveOccurred())

				_, err = approve(presidentID)
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicateValidation))
			})
		})

		Context("when a member outside the required set decides", func() {
			It("should be forbidden", func() {
				_, err := approve(strangerID)
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeForbidden))
			})
		})

		Context("when a required role rejects", func() {
			It("should terminate the request regardless of prior approvals", func() {
				_, err := approve(presidentID)
				Expect(err).NotTo(HaveOccurred())

				updated, err := service.Decide(req.ID, treasurerID, &request.DecisionDTO{
					Decision: request.DecisionRejected,
					Comment:  "budget epuise",
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(updated.Status).To(Equal(request.StatusRejected))
			})

			It("should require a comment on rejection", func() {
				_, err := service.Decide(req.ID, treasurerID, &request.DecisionDTO{
					Decision: request.DecisionRejected,
				})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidDecision))
			})
		})

		Context("when the request is already terminal", func() {
			It("should refuse further decisions and report the current status", func() {
				_, err := service.Decide(req.ID, treasurerID, &request.DecisionDTO{
					Decision: request.DecisionRejected,
					Comment:  "non",
				})
				Expect(err).NotTo(HaveOccurred())

				_, err = approve(presidentID)
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeTerminalStatus))
				details, ok := appErr.Details.(internal.ConflictDetails)
				Expect(ok).To(BeTrue())
				Expect(details.CurrentStatus).To(Equal(request.StatusRejected))
			})
		})

		Context("when the approval would exceed the available balance", func() {
			It("should fail with the shortage in the details", func() {
				funds.available = 10000

				_, err := approve(presidentID)
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientFunds))
				details, ok := appErr.Details.(internal.InsufficientFundsDetails)
				Expect(ok).To(BeTrue())
				Expect(details.AvailableBalance).To(Equal(int64(10000)))
				Expect(details.Shortage).To(Equal(int64(5000)))
			})
		})

		Context("when raising the amount above the requested amount", func() {
			It("should require a justification comment", func() {
				raised := int64(20000)
				_, err := service.Decide(req.ID, presidentID, &request.DecisionDTO{
					Decision:       request.DecisionApproved,
					AmountApproved: &raised,
				})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidAmount))
			})

			It("should accept the raise with a comment", func() {
				raised := int64(20000)
				updated, err := service.Decide(req.ID, presidentID, &request.DecisionDTO{
					Decision:       request.DecisionApproved,
					AmountApproved: &raised,
					Comment:        "devis revu a la hausse",
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(*updated.AmountApproved).To(Equal(raised))
			})
		})

		Context("when a concurrent writer bumps the version", func() {
			It("should retry against fresh state and succeed", func() {
				repo.conflictsLeft = 2

				updated, err := approve(presidentID)
				Expect(err).NotTo(HaveOccurred())
				Expect(updated.Status).To(Equal(request.StatusUnderReview))
			})

			It("should give up after the retry budget", func() {
				repo.conflictsLeft = 10

				_, err := approve(presidentID)
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeVersionConflict))
			})
		})
	})

	Describe("Cancel", func() {
		var req *request.ExpenseRequest

		BeforeEach(func() {
			var err error
			req, err = service.CreateRequest(newCreateDTO(), requesterID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should let the requester cancel an open request", func() {
			updated, err := service.Cancel(req.ID, requesterID, &request.CancelDTO{Reason: "plus besoin"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(request.StatusCancelled))
			Expect(*updated.CancelReason).To(Equal("plus besoin"))
		})

		It("should allow a bare cancel without a reason", func() {
			updated, err := service.Cancel(req.ID, requesterID, &request.CancelDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(request.StatusCancelled))
		})

		It("should let a required validator cancel", func() {
			_, err := service.Cancel(req.ID, presidentID, &request.CancelDTO{Reason: "doublon"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should forbid anyone else", func() {
			_, err := service.Cancel(req.ID, strangerID, &request.CancelDTO{Reason: "?"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeNotRequester))
		})

		It("should refuse cancelling a paid request", func() {
			repo.requests[req.ID].Status = request.StatusPaid
			_, err := service.Cancel(req.ID, requesterID, &request.CancelDTO{Reason: "trop tard"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeTerminalStatus))
		})
	})

	Describe("ConfirmPayment", func() {
		var req *request.ExpenseRequest

		payDTO := &request.ConfirmPaymentDTO{
			PaymentMode:   "manual",
			PaymentMethod: "virement",
		}

		BeforeEach(func() {
			var err error
			req, err = service.CreateRequest(newCreateDTO(), requesterID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Decide(req.ID, presidentID, &request.DecisionDTO{Decision: request.DecisionApproved})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Decide(req.ID, treasurerID, &request.DecisionDTO{Decision: request.DecisionApproved})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should mark the request paid and record the expense in the ledger", func() {
			updated, err := service.ConfirmPayment(req.ID, treasurerID, payDTO)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(request.StatusPaid))
			Expect(updated.TransactionID).NotTo(BeNil())

			Expect(repo.paidEntries).To(HaveLen(1))
			entry := repo.paidEntries[0]
			Expect(entry.Type).To(Equal(ledger.TypeAide))
			Expect(entry.Status).To(Equal(ledger.StatusCompleted))
			Expect(entry.Amount).To(Equal(int64(15000)))
			Expect(*entry.RequestID).To(Equal(req.ID))
		})

		It("should re-check funds at payment time and keep the request approved on shortage", func() {
			funds.available = 1000

			_, err := service.ConfirmPayment(req.ID, treasurerID, payDTO)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientFunds))

			stored, err := service.GetRequest(req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(request.StatusApproved))
			Expect(repo.paidEntries).To(BeEmpty())
		})

		It("should refuse paying a request that is not approved", func() {
			fresh, err := service.CreateRequest(newCreateDTO(), requesterID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ConfirmPayment(fresh.ID, treasurerID, payDTO)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidTransition))
		})
	})

	Describe("FailPayment", func() {
		It("should move an approved request to payment_failed", func() {
			req, err := service.CreateRequest(newCreateDTO(), requesterID)
			Expect(err).NotTo(HaveOccurred())
			repo.requests[req.ID].Status = request.StatusApproved

			updated, err := service.FailPayment(req.ID, treasurerID, &request.FailPaymentDTO{Reason: "iban invalide"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(request.StatusPaymentFailed))
		})
	})
})
