package postgres

import (
	"encoding/json"
	"errors"

	"github.com/frahmantamala/association-treasury/internal"
	"github.com/frahmantamala/association-treasury/internal/association"
	associationDatamodel "github.com/frahmantamala/association-treasury/internal/core/datamodel/association"
	"gorm.io/gorm"
)

// AssociationRepository implements association.RepositoryAPI using GORM.
type AssociationRepository struct {
	db *gorm.DB
}

func NewAssociationRepository(db *gorm.DB) association.RepositoryAPI {
	return &AssociationRepository{db: db}
}

func (r *AssociationRepository) GetByID(id int64) (*association.Association, error) {
	var row associationDatamodel.Association
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrAssociationNotFound
		}
		return nil, err
	}
	return association.FromDataModel(&row), nil
}

func (r *AssociationRepository) RequiredRoles(associationID int64, expenseType string) ([]string, error) {
	var rule associationDatamodel.ExpenseTypeRule
	err := r.db.Where("association_id = ? AND expense_type = ? AND subtype IS NULL", associationID, expenseType).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var roles []string
	if err := json.Unmarshal([]byte(rule.RequiredRoles), &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// MaxAmount resolves a subtype cap, falling back to the type-level rule when
// no subtype rule exists.
func (r *AssociationRepository) MaxAmount(associationID int64, expenseType string, subtype *string) (*int64, error) {
	if subtype != nil {
		var rule associationDatamodel.ExpenseTypeRule
		err := r.db.Where("association_id = ? AND expense_type = ? AND subtype = ?", associationID, expenseType, *subtype).
			First(&rule).Error
		if err == nil {
			return rule.MaxAmount, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var rule associationDatamodel.ExpenseTypeRule
	err := r.db.Where("association_id = ? AND expense_type = ? AND subtype IS NULL", associationID, expenseType).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rule.MaxAmount, nil
}

func (r *AssociationRepository) RoleOf(userID, associationID int64) (string, error) {
	var membership associationDatamodel.Membership
	err := r.db.Where("user_id = ? AND association_id = ?", userID, associationID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", internal.NewForbiddenError("member has no role in this association", internal.ErrCodeUnauthorizedAccess)
		}
		return "", err
	}
	return membership.Role, nil
}
