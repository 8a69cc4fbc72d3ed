package models

import "time"

const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
	RoleCourier  = "COURIER"
	RoleSeller   = "SELLER"
)

type User struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	TelegramID int64  `gorm:"uniqueIndex;not null" json:"telegram_id"`
	FirstName  string `gorm:"type:varchar(128);not null" json:"first_name"`
	LastName   string `gorm:"type:varchar(128)" json:"last_name"`
	Phone      string `gorm:"type:varchar(32)" json:"phone"`
	Role       string `gorm:"type:varchar(16);not null;default:'CUSTOMER'" json:"role"`
	IsActive   bool   `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCustomer, RoleCourier, RoleSeller:
		return true
	}
	return false
}
