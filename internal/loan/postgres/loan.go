package postgres

import (
	"errors"
	"time"

	"github.com/frahmantamala/association-treasury/internal"
	repaymentDatamodel "github.com/frahmantamala/association-treasury/internal/core/datamodel/repayment"
	"github.com/frahmantamala/association-treasury/internal/ledger"
	ledgerPostgres "github.com/frahmantamala/association-treasury/internal/ledger/postgres"
	"github.com/frahmantamala/association-treasury/internal/loan"
	"gorm.io/gorm"
)

// LoanRepository implements loan.RepositoryAPI using GORM.
type LoanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) loan.RepositoryAPI {
	return &LoanRepository{db: db}
}

// CreateValidated inserts the validated repayment and its "remboursement"
// ledger entry in one transaction.
func (r *LoanRepository) CreateValidated(rep *loan.Repayment, entry *ledger.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		transactionID, err := ledgerPostgres.AppendEntryTx(tx, entry)
		if err != nil {
			return err
		}

		row := loan.ToDataModel(rep)
		row.TransactionID = &transactionID
		row.UpdatedAt = time.Now()
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		rep.ID = row.ID
		return nil
	})
}

func (r *LoanRepository) CreateInstallment(rep *loan.Repayment) error {
	row := loan.ToDataModel(rep)
	row.UpdatedAt = time.Now()
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	rep.ID = row.ID
	return nil
}

func (r *LoanRepository) FindPendingInstallment(requestID int64, installmentNo int) (*loan.Repayment, error) {
	var row repaymentDatamodel.LoanRepayment
	err := r.db.Where("expense_request_id = ? AND installment_number = ? AND status = ?",
		requestID, installmentNo, loan.RepaymentStatusPending).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return loan.FromDataModel(&row, time.Now()), nil
}

// ValidateInstallment flips a scheduled pending installment to validated and
// appends its "remboursement" ledger entry in one transaction. The status
// guard in the WHERE clause surfaces a row that moved underneath the caller
// as a conflict instead of validating it twice.
func (r *LoanRepository) ValidateInstallment(rep *loan.Repayment, entry *ledger.Entry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		transactionID, err := ledgerPostgres.AppendEntryTx(tx, entry)
		if err != nil {
			return err
		}

		result := tx.Model(&repaymentDatamodel.LoanRepayment{}).
			Where("id = ? AND status = ?", rep.ID, loan.RepaymentStatusPending).
			Updates(map[string]interface{}{
				"status":           loan.RepaymentStatusValidated,
				"amount":           rep.Amount,
				"principal_amount": rep.PrincipalAmount,
				"interest_amount":  rep.InterestAmount,
				"payment_date":     rep.PaymentDate,
				"validated_by":     rep.ValidatedBy,
				"validated_at":     rep.ValidatedAt,
				"transaction_id":   transactionID,
				"updated_at":       time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return internal.ErrVersionConflict
		}
		return nil
	})
}

func (r *LoanRepository) ListByRequest(requestID int64) ([]*loan.Repayment, error) {
	var rows []*repaymentDatamodel.LoanRepayment
	err := r.db.Where("expense_request_id = ?", requestID).
		Order("installment_number ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	repayments := make([]*loan.Repayment, len(rows))
	for i, row := range rows {
		repayments[i] = loan.FromDataModel(row, now)
	}
	return repayments, nil
}

func (r *LoanRepository) SumValidatedPrincipal(requestID int64) (int64, error) {
	var total int64
	err := r.db.Model(&repaymentDatamodel.LoanRepayment{}).
		Where("expense_request_id = ? AND status = ?", requestID, loan.RepaymentStatusValidated).
		Select("COALESCE(SUM(principal_amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *LoanRepository) ListOverduePending(associationID int64, now time.Time) ([]*loan.Repayment, error) {
	var rows []*repaymentDatamodel.LoanRepayment
	err := r.db.Where("association_id = ? AND status = ? AND due_date IS NOT NULL AND due_date < ?",
		associationID, loan.RepaymentStatusPending, now).
		Order("due_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	repayments := make([]*loan.Repayment, len(rows))
	for i, row := range rows {
		repayments[i] = loan.FromDataModel(row, now)
	}
	return repayments, nil
}
