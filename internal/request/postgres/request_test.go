package postgres

import (
	"testing"
	"time"

	"github.com/frahmantamala/association-treasury/internal"
	"github.com/frahmantamala/association-treasury/internal/ledger"
	"github.com/frahmantamala/association-treasury/internal/request"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRequestRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RequestRepository Suite")
}

type SQLiteExpenseRequest struct {
	ID                     int64      `gorm:"primaryKey"`
	AssociationID          int64      `gorm:"column:association_id;not null"`
	SectionID              *int64     `gorm:"column:section_id"`
	RequesterID            int64      `gorm:"column:requester_id;not null"`
	BeneficiaryID          *int64     `gorm:"column:beneficiary_id"`
	BeneficiaryName        *string    `gorm:"column:beneficiary_name"`
	BeneficiaryContact     *string    `gorm:"column:beneficiary_contact"`
	ExpenseType            string     `gorm:"column:expense_type;not null"`
	ExpenseSubtype         *string    `gorm:"column:expense_subtype"`
	Description            string     `gorm:"column:description"`
	UrgencyLevel           string     `gorm:"column:urgency_level"`
	AmountRequested        int64      `gorm:"column:amount_requested;not null"`
	AmountApproved         *int64     `gorm:"column:amount_approved"`
	Currency               string     `gorm:"column:currency"`
	IsLoan                 bool       `gorm:"column:is_loan"`
	LoanDurationMonths     *int       `gorm:"column:loan_duration_months"`
	LoanInterestRate       *float64   `gorm:"column:loan_interest_rate"`
	LoanMonthlyPayment     *int64     `gorm:"column:loan_monthly_payment"`
	Status                 string     `gorm:"column:status"`
	RequiredValidators     string     `gorm:"column:required_validators;not null"`
	Version                int64      `gorm:"column:version;default:0"`
	PaymentMode            *string    `gorm:"column:payment_mode"`
	PaymentMethod          *string    `gorm:"column:payment_method"`
	ManualPaymentReference *string    `gorm:"column:manual_payment_reference"`
	TransactionID          *int64     `gorm:"column:transaction_id"`
	PaidAt                 *time.Time `gorm:"column:paid_at"`
	CancelReason           *string    `gorm:"column:cancel_reason"`
	CreatedAt              time.Time  `gorm:"column:created_at"`
	UpdatedAt              time.Time  `gorm:"column:updated_at"`
}

func (SQLiteExpenseRequest) TableName() string {
	return "expense_requests"
}

type SQLiteValidationRecord struct {
	ID             int64     `gorm:"primaryKey"`
	RequestID      int64     `gorm:"column:request_id;not null"`
	UserID         int64     `gorm:"column:user_id;not null"`
	Role           string    `gorm:"column:role;not null"`
	Decision       string    `gorm:"column:decision;not null"`
	Comment        string    `gorm:"column:comment"`
	AmountApproved *int64    `gorm:"column:amount_approved"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (SQLiteValidationRecord) TableName() string {
	return "validation_records"
}

type SQLiteTransaction struct {
	ID            int64     `gorm:"primaryKey"`
	AssociationID int64     `gorm:"column:association_id;not null"`
	Type          string    `gorm:"column:type;not null"`
	Amount        int64     `gorm:"column:amount;not null"`
	NetAmount     int64     `gorm:"column:net_amount;not null"`
	Currency      string    `gorm:"column:currency"`
	Status        string    `gorm:"column:status"`
	Reference     *string   `gorm:"column:reference"`
	RequestID     *int64    `gorm:"column:request_id"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (SQLiteTransaction) TableName() string {
	return "transactions"
}

var _ = Describe("RequestRepository", func() {
	var (
		db   *gorm.DB
		repo request.RepositoryAPI
	)

	newRequest := func() *request.ExpenseRequest {
		name := "Fournisseur Dupont"
		return &request.ExpenseRequest{
			AssociationID:      1,
			RequesterID:        10,
			BeneficiaryName:    &name,
			ExpenseType:        "achat",
			Description:        "matériel",
			UrgencyLevel:       "normal",
			AmountRequested:    15000,
			Currency:           "EUR",
			Status:             request.StatusPending,
			RequiredValidators: request.NewRoleSet("president", "treasurer"),
			History:            []request.ValidationRecord{},
			CreatedAt:          time.Now(),
			UpdatedAt:          time.Now(),
		}
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteExpenseRequest{}, &SQLiteValidationRecord{}, &SQLiteTransaction{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewRequestRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Create and GetByID", func() {
		It("should round-trip a request with its frozen validator set", func() {
			req := newRequest()
			err := repo.Create(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(req.ID).To(BeNumerically(">", 0))

			loaded, err := repo.GetByID(req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Status).To(Equal(request.StatusPending))
			Expect(loaded.RequiredValidators.Roles()).To(Equal([]string{"president", "treasurer"}))
			Expect(loaded.History).To(BeEmpty())
		})

		It("should return a not-found error for an unknown id", func() {
			_, err := repo.GetByID(12345)
			Expect(err).To(Equal(internal.ErrRequestNotFound))
		})
	})

	Describe("AppendDecision", func() {
		var req *request.ExpenseRequest

		BeforeEach(func() {
			req = newRequest()
			Expect(repo.Create(req)).To(Succeed())
		})

		It("should persist the status, version and history atomically", func() {
			rec := &request.ValidationRecord{
				UserID:    11,
				Role:      "president",
				Decision:  request.DecisionApproved,
				CreatedAt: time.Now(),
			}

			err := repo.AppendDecision(req, rec, request.StatusUnderReview, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Version).To(Equal(int64(1)))

			loaded, err := repo.GetByID(req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Status).To(Equal(request.StatusUnderReview))
			Expect(loaded.History).To(HaveLen(1))
			Expect(loaded.History[0].Role).To(Equal("president"))
		})

		It("should keep history ordered by insertion", func() {
			recs := []*request.ValidationRecord{
				{UserID: 11, Role: "president", Decision: request.DecisionApproved, CreatedAt: time.Now()},
				{UserID: 12, Role: "treasurer", Decision: request.DecisionApproved, CreatedAt: time.Now()},
			}
			Expect(repo.AppendDecision(req, recs[0], request.StatusUnderReview, nil)).To(Succeed())
			Expect(repo.AppendDecision(req, recs[1], request.StatusApproved, nil)).To(Succeed())

			loaded, err := repo.GetByID(req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.History).To(HaveLen(2))
			Expect(loaded.History[0].Role).To(Equal("president"))
			Expect(loaded.History[1].Role).To(Equal("treasurer"))
		})

		It("should fail with a version conflict when the row moved underneath", func() {
			stale, err := repo.GetByID(req.ID)
			Expect(err).NotTo(HaveOccurred())

			rec := &request.ValidationRecord{UserID: 11, Role: "president", Decision: request.DecisionApproved, CreatedAt: time.Now()}
			Expect(repo.AppendDecision(req, rec, request.StatusUnderReview, nil)).To(Succeed())

			rec2 := &request.ValidationRecord{UserID: 12, Role: "treasurer", Decision: request.DecisionApproved, CreatedAt: time.Now()}
			err = repo.AppendDecision(stale, rec2, request.StatusApproved, nil)
			Expect(err).To(Equal(internal.ErrVersionConflict))

			// the losing write must not leave a history row behind
			loaded, err := repo.GetByID(req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.History).To(HaveLen(1))
		})
	})

	Describe("MarkPaid", func() {
		It("should flip the status and append the ledger entry in one transaction", func() {
			req := newRequest()
			req.Status = request.StatusApproved
			Expect(repo.Create(req)).To(Succeed())

			reference := "virement-421"
			entry := &ledger.Entry{
				AssociationID: req.AssociationID,
				Type:          ledger.TypeAide,
				Amount:        15000,
				NetAmount:     15000,
				Currency:      "EUR",
				Status:        ledger.StatusCompleted,
				Reference:     &reference,
				RequestID:     &req.ID,
			}
			details := request.PaymentDetails{PaymentMode: "manual", PaymentMethod: "virement", ManualPaymentReference: &reference}

			err := repo.MarkPaid(req, details, entry)
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.ID).To(BeNumerically(">", 0))

			loaded, err := repo.GetByID(req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Status).To(Equal(request.StatusPaid))
			Expect(loaded.TransactionID).NotTo(BeNil())
			Expect(*loaded.TransactionID).To(Equal(entry.ID))
			Expect(loaded.PaidAt).NotTo(BeNil())

			var count int64
			err = db.Model(&SQLiteTransaction{}).Where("request_id = ?", req.ID).Count(&count).Error
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("MarkCancelled", func() {
		It("should store the cancel reason", func() {
			req := newRequest()
			Expect(repo.Create(req)).To(Succeed())

			Expect(repo.MarkCancelled(req, "doublon")).To(Succeed())

			loaded, err := repo.GetByID(req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Status).To(Equal(request.StatusCancelled))
			Expect(*loaded.CancelReason).To(Equal("doublon"))
		})
	})

	Describe("GetOpenByAssociation", func() {
		It("should only return requests that may still commit funds", func() {
			open := newRequest()
			Expect(repo.Create(open)).To(Succeed())

			closed := newRequest()
			closed.Status = request.StatusRejected
			Expect(repo.Create(closed)).To(Succeed())

			approved := newRequest()
			approved.Status = request.StatusApproved
			Expect(repo.Create(approved)).To(Succeed())

			result, err := repo.GetOpenByAssociation(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(2))
		})
	})
})
