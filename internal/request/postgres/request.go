package postgres

import (
	"errors"
	"time"

	"github.com/frahmantamala/association-treasury/internal"
	requestDatamodel "github.com/frahmantamala/association-treasury/internal/core/datamodel/request"
	"github.com/frahmantamala/association-treasury/internal/ledger"
	ledgerPostgres "github.com/frahmantamala/association-treasury/internal/ledger/postgres"
	"github.com/frahmantamala/association-treasury/internal/request"
	"gorm.io/gorm"
)

// RequestRepository implements request.RepositoryAPI using GORM. Every
// mutating method carries an optimistic version check so a concurrent writer
// surfaces as internal.ErrVersionConflict instead of a lost update, and the
// history append commits in the same transaction as the status change.
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) request.RepositoryAPI {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(req *request.ExpenseRequest) error {
	row, err := request.ToDataModel(req)
	if err != nil {
		return err
	}
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	req.ID = row.ID
	req.CreatedAt = row.CreatedAt
	req.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *RequestRepository) GetByID(id int64) (*request.ExpenseRequest, error) {
	var row requestDatamodel.ExpenseRequest
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRequestNotFound
		}
		return nil, err
	}

	records, err := r.recordsFor(r.db, id)
	if err != nil {
		return nil, err
	}
	return request.FromDataModel(&row, records)
}

func (r *RequestRepository) recordsFor(tx *gorm.DB, requestID int64) ([]*requestDatamodel.ValidationRecord, error) {
	var records []*requestDatamodel.ValidationRecord
	err := tx.Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	return records, err
}

func (r *RequestRepository) GetByAssociation(associationID int64, limit, offset int) ([]*request.ExpenseRequest, error) {
	var rows []*requestDatamodel.ExpenseRequest
	err := r.db.Where("association_id = ?", associationID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(rows)
}

// GetOpenByAssociation returns requests that still commit or may commit
// funds: pending, under review or approved but unpaid.
func (r *RequestRepository) GetOpenByAssociation(associationID int64) ([]*request.ExpenseRequest, error) {
	var rows []*requestDatamodel.ExpenseRequest
	err := r.db.Where("association_id = ? AND status IN ?", associationID,
		[]string{request.StatusPending, request.StatusUnderReview, request.StatusApproved}).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(rows)
}

func (r *RequestRepository) hydrate(rows []*requestDatamodel.ExpenseRequest) ([]*request.ExpenseRequest, error) {
	result := make([]*request.ExpenseRequest, 0, len(rows))
	for _, row := range rows {
		records, err := r.recordsFor(r.db, row.ID)
		if err != nil {
			return nil, err
		}
		req, err := request.FromDataModel(row, records)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, nil
}

func (r *RequestRepository) AppendDecision(req *request.ExpenseRequest, rec *request.ValidationRecord, newStatus string, amountApproved *int64) error {
	now := time.Now()
	err := r.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     newStatus,
			"version":    req.Version + 1,
			"updated_at": now,
		}
		if amountApproved != nil {
			updates["amount_approved"] = *amountApproved
		}

		res := tx.Model(&requestDatamodel.ExpenseRequest{}).
			Where("id = ? AND version = ?", req.ID, req.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrVersionConflict
		}

		row := &requestDatamodel.ValidationRecord{
			RequestID:      req.ID,
			UserID:         rec.UserID,
			Role:           rec.Role,
			Decision:       rec.Decision,
			Comment:        rec.Comment,
			AmountApproved: rec.AmountApproved,
			CreatedAt:      rec.CreatedAt,
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		rec.ID = row.ID
		return nil
	})
	if err != nil {
		return err
	}

	req.Status = newStatus
	req.Version++
	req.UpdatedAt = now
	if amountApproved != nil {
		req.AmountApproved = amountApproved
	}
	req.History = append(req.History, *rec)
	return nil
}

func (r *RequestRepository) MarkCancelled(req *request.ExpenseRequest, reason string) error {
	now := time.Now()
	res := r.db.Model(&requestDatamodel.ExpenseRequest{}).
		Where("id = ? AND version = ?", req.ID, req.Version).
		Updates(map[string]interface{}{
			"status":        request.StatusCancelled,
			"cancel_reason": reason,
			"version":       req.Version + 1,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrVersionConflict
	}

	req.Status = request.StatusCancelled
	req.CancelReason = &reason
	req.Version++
	req.UpdatedAt = now
	return nil
}

// MarkPaid flips the request to paid and appends the completed ledger entry
// in one transaction; a ledger-append failure rolls the status back.
func (r *RequestRepository) MarkPaid(req *request.ExpenseRequest, details request.PaymentDetails, entry *ledger.Entry) error {
	now := time.Now()
	err := r.db.Transaction(func(tx *gorm.DB) error {
		transactionID, err := ledgerPostgres.AppendEntryTx(tx, entry)
		if err != nil {
			return err
		}

		res := tx.Model(&requestDatamodel.ExpenseRequest{}).
			Where("id = ? AND version = ?", req.ID, req.Version).
			Updates(map[string]interface{}{
				"status":                   request.StatusPaid,
				"payment_mode":             details.PaymentMode,
				"payment_method":           details.PaymentMethod,
				"manual_payment_reference": details.ManualPaymentReference,
				"transaction_id":           transactionID,
				"paid_at":                  now,
				"version":                  req.Version + 1,
				"updated_at":               now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		return err
	}

	req.Status = request.StatusPaid
	req.PaymentMode = &details.PaymentMode
	req.PaymentMethod = &details.PaymentMethod
	req.ManualPaymentReference = details.ManualPaymentReference
	req.TransactionID = &entry.ID
	req.PaidAt = &now
	req.Version++
	req.UpdatedAt = now
	return nil
}

func (r *RequestRepository) MarkPaymentFailed(req *request.ExpenseRequest) error {
	now := time.Now()
	res := r.db.Model(&requestDatamodel.ExpenseRequest{}).
		Where("id = ? AND version = ?", req.ID, req.Version).
		Updates(map[string]interface{}{
			"status":     request.StatusPaymentFailed,
			"version":    req.Version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrVersionConflict
	}

	req.Status = request.StatusPaymentFailed
	req.Version++
	req.UpdatedAt = now
	return nil
}
