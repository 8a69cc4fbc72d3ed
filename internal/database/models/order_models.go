package models

import "time"

const (
	DeliveryTypeASAP      = "ASAP"
	DeliveryTypeScheduled = "SCHEDULED"
)

const (
	OrderStatusNew            = "NEW"
	OrderStatusWaitingPayment = "WAITING_PAYMENT"
	OrderStatusPreparing      = "PREPARING"
	OrderStatusReady          = "READY"
	OrderStatusDelivering     = "DELIVERING"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusCancelled      = "CANCELLED"
)

const (
	ConfirmationPending   = "PENDING"
	ConfirmationConfirmed = "CONFIRMED"
	ConfirmationPartial   = "PARTIAL"
	ConfirmationRejected  = "REJECTED"
)

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusNew, OrderStatusWaitingPayment, OrderStatusPreparing,
		OrderStatusReady, OrderStatusDelivering, OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	}
	return false
}

func TerminalOrderStatus(status string) bool {
	return status == OrderStatusDelivered || status == OrderStatusCancelled
}

type Order struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Number       string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"number"`
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	Address      string     `gorm:"type:varchar(256);not null" json:"address"`
	DeliveryType string     `gorm:"type:varchar(16);not null" json:"delivery_type"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	CourierID    *uint      `gorm:"index" json:"courier_id,omitempty"`
	TotalAmount  string     `gorm:"type:varchar(32);not null" json:"total_amount"`

	CreatedAt time.Time `json:"created_at"`

	User     *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Courier  *User           `gorm:"foreignKey:CourierID" json:"courier,omitempty"`
	Items    []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Statuses []OrderStatus   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"statuses,omitempty"`
	Rating   *DeliveryRating `gorm:"foreignKey:OrderID" json:"rating,omitempty"`
}

// OrderStatus rows are append-only; the current status of an order is the
// latest row by (created_at, id).
type OrderStatus struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID uint   `gorm:"index;not null" json:"order_id"`
	Status  string `gorm:"type:varchar(24);not null" json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

type OrderItem struct {
	ID        uint `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint `gorm:"index;not null" json:"order_id"`
	ProductID uint `gorm:"not null" json:"product_id"`
	Quantity  int  `gorm:"not null" json:"quantity"`
	// Unit price frozen at order time.
	Price string `gorm:"type:varchar(32);not null" json:"price"`

	CreatedAt time.Time `json:"created_at"`

	Product      *Product                `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Confirmation *StoreOrderConfirmation `gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE" json:"confirmation,omitempty"`
}

type StoreOrderConfirmation struct {
	ID                uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderItemID       uint       `gorm:"uniqueIndex;not null" json:"order_item_id"`
	StoreID           uint       `gorm:"index;not null" json:"store_id"`
	Status            string     `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	ConfirmedQuantity int        `gorm:"not null;default:0" json:"confirmed_quantity"`
	Notes             *string    `gorm:"type:text" json:"notes,omitempty"`
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty"`
	ConfirmedByID     *uint      `json:"confirmed_by_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Store *Store `gorm:"foreignKey:StoreID" json:"store,omitempty"`
}

type DeliveryRating struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    uint    `gorm:"uniqueIndex;not null" json:"order_id"`
	UserID     uint    `gorm:"index;not null" json:"user_id"`
	Quality    int     `gorm:"not null" json:"quality"`
	Speed      int     `gorm:"not null" json:"speed"`
	Impression int     `gorm:"not null" json:"impression"`
	Comment    *string `gorm:"type:text" json:"comment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
