package association

import "time"

// Association holds the per-association treasury settings the core consumes.
type Association struct {
	ID                  int64     `json:"id" gorm:"primaryKey"`
	Name                string    `json:"name" gorm:"column:name;not null"`
	Currency            string    `json:"currency" gorm:"column:currency;default:EUR"`
	LowBalanceThreshold int64     `json:"low_balance_threshold" gorm:"column:low_balance_threshold;default:50000"`
	CreatedAt           time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Association) TableName() string {
	return "associations"
}

// ExpenseTypeRule configures one expense type for an association: the bureau
// roles that must approve it and an optional per-subtype amount cap.
type ExpenseTypeRule struct {
	ID            int64   `json:"id" gorm:"primaryKey"`
	AssociationID int64   `json:"association_id" gorm:"column:association_id;not null;index"`
	ExpenseType   string  `json:"expense_type" gorm:"column:expense_type;not null"`
	Subtype       *string `json:"subtype,omitempty" gorm:"column:subtype"`
	// RequiredRoles is a JSON-encoded array of role names.
	RequiredRoles string `json:"required_roles" gorm:"column:required_roles;not null"`
	MaxAmount     *int64 `json:"max_amount,omitempty" gorm:"column:max_amount"`
}

func (ExpenseTypeRule) TableName() string {
	return "expense_type_rules"
}

// Membership maps a member to their bureau role within an association.
type Membership struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	UserID        int64     `json:"user_id" gorm:"column:user_id;not null;index"`
	AssociationID int64     `json:"association_id" gorm:"column:association_id;not null;index"`
	Role          string    `json:"role" gorm:"column:role;not null"`
	Email         string    `json:"email" gorm:"column:email"`
	PasswordHash  string    `json:"-" gorm:"column:password_hash"`
	CreatedAt     time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Membership) TableName() string {
	return "memberships"
}
