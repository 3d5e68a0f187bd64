package association

import (
	"time"

	associationDatamodel "github.com/frahmantamala/association-treasury/internal/core/datamodel/association"
)

// Association is the domain view of per-association treasury settings.
type Association struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Currency            string    `json:"currency"`
	LowBalanceThreshold int64     `json:"low_balance_threshold"`
	CreatedAt           time.Time `json:"created_at"`
}

func FromDataModel(row *associationDatamodel.Association) *Association {
	return &Association{
		ID:                  row.ID,
		Name:                row.Name,
		Currency:            row.Currency,
		LowBalanceThreshold: row.LowBalanceThreshold,
		CreatedAt:           row.CreatedAt,
	}
}

// RepositoryAPI is the data access contract for association settings and
// bureau memberships.
type RepositoryAPI interface {
	GetByID(id int64) (*Association, error)
	RequiredRoles(associationID int64, expenseType string) ([]string, error)
	MaxAmount(associationID int64, expenseType string, subtype *string) (*int64, error)
	RoleOf(userID, associationID int64) (string, error)
}
