package postgres

import (
	"time"

	repaymentDatamodel "github.com/frahmantamala/association-treasury/internal/core/datamodel/repayment"
	requestDatamodel "github.com/frahmantamala/association-treasury/internal/core/datamodel/request"
	transactionDatamodel "github.com/frahmantamala/association-treasury/internal/core/datamodel/transaction"
	"github.com/frahmantamala/association-treasury/internal/ledger"
	"github.com/frahmantamala/association-treasury/internal/loan"
	"github.com/frahmantamala/association-treasury/internal/request"
	"github.com/frahmantamala/association-treasury/internal/treasury"
	"gorm.io/gorm"
)

// TreasuryReader implements treasury.LedgerReader over the transaction,
// expense request and loan repayment tables.
type TreasuryReader struct {
	db *gorm.DB
}

func NewTreasuryReader(db *gorm.DB) treasury.LedgerReader {
	return &TreasuryReader{db: db}
}

// Snapshot reads all three balance inputs inside one database transaction so
// a sufficiency check observes a consistent state.
func (r *TreasuryReader) Snapshot(associationID int64) (*treasury.BalanceInputs, error) {
	inputs := &treasury.BalanceInputs{}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		income, err := sumCompletedIncome(tx, associationID, nil)
		if err != nil {
			return err
		}
		inputs.TotalIncome = income

		var expensesPaid int64
		err = tx.Model(&requestDatamodel.ExpenseRequest{}).
			Where("association_id = ? AND status = ?", associationID, request.StatusPaid).
			Select("COALESCE(SUM(COALESCE(amount_approved, amount_requested)), 0)").
			Scan(&expensesPaid).Error
		if err != nil {
			return err
		}
		inputs.TotalExpensesPaid = expensesPaid

		// Outstanding principal sums only positive remainders; an over-repaid
		// loan never contributes negative debt.
		var outstanding int64
		err = tx.Raw(`
			SELECT COALESCE(SUM(remainder), 0) FROM (
				SELECT COALESCE(er.amount_approved, er.amount_requested) - COALESCE((
					SELECT SUM(lr.principal_amount)
					FROM loan_repayments lr
					WHERE lr.expense_request_id = er.id AND lr.status = ?
				), 0) AS remainder
				FROM expense_requests er
				WHERE er.association_id = ? AND er.is_loan = ? AND er.status = ?
			) remainders
			WHERE remainder > 0`,
			loan.RepaymentStatusValidated, associationID, true, request.StatusPaid).
			Scan(&outstanding).Error
		if err != nil {
			return err
		}
		inputs.OutstandingLoanPrincipal = outstanding
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inputs, nil
}

func sumCompletedIncome(tx *gorm.DB, associationID int64, since *time.Time) (int64, error) {
	var total int64
	query := tx.Model(&transactionDatamodel.Transaction{}).
		Where("association_id = ? AND status = ? AND type IN ?",
			associationID, ledger.StatusCompleted, ledger.IncomeTypes)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	err := query.Select("COALESCE(SUM(net_amount), 0)").Scan(&total).Error
	return total, err
}

func (r *TreasuryReader) IncomeSince(associationID int64, since *time.Time) (int64, error) {
	return sumCompletedIncome(r.db, associationID, since)
}

// PendingExpenseTotal sums requests that are not yet paid but still in
// flight: pending, under review or approved.
func (r *TreasuryReader) PendingExpenseTotal(associationID int64) (int64, error) {
	var total int64
	err := r.db.Model(&requestDatamodel.ExpenseRequest{}).
		Where("association_id = ? AND status IN ?", associationID,
			[]string{request.StatusPending, request.StatusUnderReview, request.StatusApproved}).
		Select("COALESCE(SUM(COALESCE(amount_approved, amount_requested)), 0)").
		Scan(&total).Error
	return total, err
}

func (r *TreasuryReader) UpcomingRepaymentTotal(associationID int64) (int64, error) {
	var total int64
	err := r.db.Model(&repaymentDatamodel.LoanRepayment{}).
		Where("association_id = ? AND status = ?", associationID, loan.RepaymentStatusPending).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

type breakdownRow struct {
	ExpenseType string
	Total       int64
}

func (r *TreasuryReader) ExpenseBreakdown(associationID int64, since *time.Time) (map[string]int64, error) {
	var rows []breakdownRow
	query := r.db.Model(&requestDatamodel.ExpenseRequest{}).
		Where("association_id = ? AND status = ?", associationID, request.StatusPaid)
	if since != nil {
		query = query.Where("paid_at >= ?", *since)
	}
	err := query.
		Select("expense_type, COALESCE(SUM(COALESCE(amount_approved, amount_requested)), 0) AS total").
		Group("expense_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]int64, len(rows))
	for _, row := range rows {
		breakdown[row.ExpenseType] = row.Total
	}
	return breakdown, nil
}
