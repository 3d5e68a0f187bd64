package postgres

import (
	"time"

	transactionDatamodel "github.com/frahmantamala/association-treasury/internal/core/datamodel/transaction"
	"github.com/frahmantamala/association-treasury/internal/ledger"
	"gorm.io/gorm"
)

// LedgerRepository implements ledger.RepositoryAPI using GORM.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) ledger.RepositoryAPI {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) AppendEntry(entry *ledger.Entry) error {
	row := ledger.ToDataModel(entry)
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	entry.ID = row.ID
	entry.CreatedAt = row.CreatedAt
	return nil
}

// AppendEntryTx appends a ledger row inside an already-open transaction so a
// status transition and its ledger entry commit or roll back together.
func AppendEntryTx(tx *gorm.DB, entry *ledger.Entry) (int64, error) {
	row := ledger.ToDataModel(entry)
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	if err := tx.Create(row).Error; err != nil {
		return 0, err
	}
	entry.ID = row.ID
	return row.ID, nil
}

func (r *LedgerRepository) SumByTypeAndStatus(associationID int64, types []string, status string, since *time.Time) (int64, error) {
	var total int64
	query := r.db.Model(&transactionDatamodel.Transaction{}).
		Where("association_id = ? AND status = ?", associationID, status)
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	err := query.Select("COALESCE(SUM(net_amount), 0)").Scan(&total).Error
	return total, err
}

func (r *LedgerRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&transactionDatamodel.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *LedgerRepository) ListByAssociation(associationID int64, limit, offset int) ([]*ledger.Entry, error) {
	var rows []*transactionDatamodel.Transaction
	err := r.db.Where("association_id = ?", associationID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entries := make([]*ledger.Entry, len(rows))
	for i, row := range rows {
		entries[i] = ledger.FromDataModel(row)
	}
	return entries, nil
}
