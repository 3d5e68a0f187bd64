package transaction

import "time"

// Transaction is one immutable ledger entry. The treasury core appends rows
// and transitions status on its own rows; it never rewrites history.
type Transaction struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	AssociationID int64     `json:"association_id" gorm:"column:association_id;not null;index"`
	Type          string    `json:"type" gorm:"column:type;not null;index"`
	Amount        int64     `json:"amount" gorm:"column:amount;not null"`
	NetAmount     int64     `json:"net_amount" gorm:"column:net_amount;not null"`
	Currency      string    `json:"currency" gorm:"column:currency;default:EUR"`
	Status        string    `json:"status" gorm:"column:status;default:pending;index"`
	Reference     *string   `json:"reference,omitempty" gorm:"column:reference"`
	RequestID     *int64    `json:"request_id,omitempty" gorm:"column:request_id"`
	CreatedAt     time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Transaction) TableName() string {
	return "transactions"
}
