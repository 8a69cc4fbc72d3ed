package models

import "time"

const (
	MovementIncome     = "INCOME"
	MovementOutcome    = "OUTCOME"
	MovementCorrection = "CORRECTION"
)

func ValidMovementType(t string) bool {
	switch t {
	case MovementIncome, MovementOutcome, MovementCorrection:
		return true
	}
	return false
}

// StockMovement is an append-only ledger row. Rows are never updated or
// deleted; the current stock of a product is the fold of its movements
// (INCOME +q, OUTCOME -q, CORRECTION signed +q).
type StockMovement struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint    `gorm:"index;not null" json:"product_id"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	Type      string  `gorm:"type:varchar(16);not null" json:"type"`
	AdminID   uint    `gorm:"not null" json:"admin_id"`
	Comment   *string `gorm:"type:text" json:"comment,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
