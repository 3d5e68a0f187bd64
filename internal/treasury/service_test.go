package treasury_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/association-treasury/internal"
	"github.com/frahmantamala/association-treasury/internal/treasury"
)

func TestTreasuryService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "TreasuryService Suite")
}

type mockLedgerReader struct {
	inputs        treasury.BalanceInputs
	pending       int64
	upcoming      int64
	incomeSince   int64
	breakdown     map[string]int64
	snapshotCalls int
	lastSince     *time.Time
}

func (m *mockLedgerReader) Snapshot(associationID int64) (*treasury.BalanceInputs, error) {
	m.snapshotCalls++
	inputs := m.inputs
	return &inputs, nil
}

func (m *mockLedgerReader) PendingExpenseTotal(associationID int64) (int64, error) {
	return m.pending, nil
}

func (m *mockLedgerReader) UpcomingRepaymentTotal(associationID int64) (int64, error) {
	return m.upcoming, nil
}

func (m *mockLedgerReader) IncomeSince(associationID int64, since *time.Time) (int64, error) {
	m.lastSince = since
	return m.incomeSince, nil
}

func (m *mockLedgerReader) ExpenseBreakdown(associationID int64, since *time.Time) (map[string]int64, error) {
	return m.breakdown, nil
}

var _ = Describe("TreasuryService", func() {
	var (
		reader  *mockLedgerReader
		service *treasury.Service
	)

	const associationID = int64(1)

	BeforeEach(func() {
		reader = &mockLedgerReader{
			inputs: treasury.BalanceInputs{
				TotalIncome:              370000,
				TotalExpensesPaid:        120000,
				OutstandingLoanPrincipal: 70000,
			},
			pending:     30000,
			upcoming:    10000,
			incomeSince: 50000,
			breakdown:   map[string]int64{"achat": 40000, "evenement": 20000},
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = treasury.NewService(reader, logger)
	})

	Describe("AvailableBalance", func() {
		It("should compute income minus paid expenses minus outstanding principal", func() {
			snapshot, err := service.AvailableBalance(associationID)
			Expect(err).NotTo(HaveOccurred())
			Expect(snapshot.TotalIncome).To(Equal(int64(370000)))
			Expect(snapshot.TotalExpensesPaid).To(Equal(int64(120000)))
			Expect(snapshot.OutstandingLoanPrincipal).To(Equal(int64(70000)))
			Expect(snapshot.AvailableBalance).To(Equal(int64(180000)))
		})

		It("should be a pure read that returns the same figure on repeated calls", func() {
			first, err := service.AvailableBalance(associationID)
			Expect(err).NotTo(HaveOccurred())
			second, err := service.AvailableBalance(associationID)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.AvailableBalance).To(Equal(first.AvailableBalance))
			Expect(reader.snapshotCalls).To(Equal(2))
		})

		It("should surface a negative balance instead of clamping it", func() {
			reader.inputs.TotalExpensesPaid = 400000
			snapshot, err := service.AvailableBalance(associationID)
			Expect(err).NotTo(HaveOccurred())
			Expect(snapshot.AvailableBalance).To(Equal(int64(-100000)))
		})
	})

	Describe("CheckSufficientFunds", func() {
		It("should pass when the amount fits within the balance", func() {
			check, err := service.CheckSufficientFunds(associationID, 180000)
			Expect(err).NotTo(HaveOccurred())
			Expect(check.Sufficient).To(BeTrue())
			Expect(check.AvailableBalance).To(Equal(int64(180000)))
			Expect(check.Shortage).To(Equal(int64(0)))
		})

		It("should report the exact shortage when the amount does not fit", func() {
			check, err := service.CheckSufficientFunds(associationID, 200000)
			Expect(err).NotTo(HaveOccurred())
			Expect(check.Sufficient).To(BeFalse())
			Expect(check.Shortage).To(Equal(int64(20000)))
		})
	})

	Describe("FinancialSummary", func() {
		It("should project the balance from pending expenses and upcoming repayments", func() {
			summary, err := service.FinancialSummary(associationID, treasury.WindowMonth)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Window).To(Equal(treasury.WindowMonth))
			Expect(summary.AvailableBalance).To(Equal(int64(180000)))
			Expect(summary.PendingExpenses).To(Equal(int64(30000)))
			Expect(summary.UpcomingRepayments).To(Equal(int64(10000)))
			Expect(summary.ProjectedBalance).To(Equal(int64(160000)))
			Expect(summary.TotalIncome).To(Equal(int64(50000)))
			Expect(summary.TotalExpensesPaid).To(Equal(int64(60000)))
			Expect(summary.ExpenseBreakdown).To(HaveKeyWithValue("achat", int64(40000)))
		})

		It("should default the empty window to all time", func() {
			summary, err := service.FinancialSummary(associationID, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Window).To(Equal(treasury.WindowAll))
			Expect(reader.lastSince).To(BeNil())
		})

		It("should bound the month window a month back", func() {
			_, err := service.FinancialSummary(associationID, treasury.WindowMonth)
			Expect(err).NotTo(HaveOccurred())
			Expect(reader.lastSince).NotTo(BeNil())
			Expect(reader.lastSince.Before(time.Now())).To(BeTrue())
		})

		It("should reject an unknown window", func() {
			_, err := service.FinancialSummary(associationID, "week")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidWindow))
		})
	})
})
