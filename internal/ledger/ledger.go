package ledger

import (
	"time"

	transactionDatamodel "github.com/frahmantamala/association-treasury/internal/core/datamodel/transaction"
)

const (
	TypeCotisation    = "cotisation"
	TypeDon           = "don"
	TypeSubvention    = "subvention"
	TypeAide          = "aide"
	TypeRemboursement = "remboursement"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// IncomeTypes is the open set of entry types counted as income. The
// surrounding system may extend it; the balance formula only cares about the
// type tag.
var IncomeTypes = []string{TypeCotisation, TypeDon, TypeSubvention, TypeRemboursement}

// Entry is the domain view of a ledger row.
type Entry struct {
	ID            int64     `json:"id"`
	AssociationID int64     `json:"association_id"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	NetAmount     int64     `json:"net_amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	Reference     *string   `json:"reference,omitempty"`
	RequestID     *int64    `json:"request_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RepositoryAPI is the append-only contract the treasury core holds against
// the transaction store. Historical entries are never mutated; only status
// transitions on rows this core created are allowed.
type RepositoryAPI interface {
	AppendEntry(entry *Entry) error
	SumByTypeAndStatus(associationID int64, types []string, status string, since *time.Time) (int64, error)
	UpdateStatus(id int64, status string) error
	ListByAssociation(associationID int64, limit, offset int) ([]*Entry, error)
}

func ToDataModel(e *Entry) *transactionDatamodel.Transaction {
	return &transactionDatamodel.Transaction{
		ID:            e.ID,
		AssociationID: e.AssociationID,
		Type:          e.Type,
		Amount:        e.Amount,
		NetAmount:     e.NetAmount,
		Currency:      e.Currency,
		Status:        e.Status,
		Reference:     e.Reference,
		RequestID:     e.RequestID,
		CreatedAt:     e.CreatedAt,
	}
}

func FromDataModel(t *transactionDatamodel.Transaction) *Entry {
	return &Entry{
		ID:            t.ID,
		AssociationID: t.AssociationID,
		Type:          t.Type,
		Amount:        t.Amount,
		NetAmount:     t.NetAmount,
		Currency:      t.Currency,
		Status:        t.Status,
		Reference:     t.Reference,
		RequestID:     t.RequestID,
		CreatedAt:     t.CreatedAt,
	}
}
