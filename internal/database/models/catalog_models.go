package models

import "time"

type Category struct {
	ID       uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string  `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
	ImageURL *string `gorm:"type:varchar(256)" json:"image_url,omitempty"`
	IsActive bool    `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Products []Product `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

type Store struct {
	ID       uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string  `gorm:"type:varchar(128);not null" json:"name"`
	Address  string  `gorm:"type:varchar(256)" json:"address"`
	OwnerID  *uint   `gorm:"uniqueIndex" json:"owner_id,omitempty"`
	IsActive bool    `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner    *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Products []Product `gorm:"foreignKey:StoreID" json:"products,omitempty"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"type:varchar(128);not null" json:"name"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	// Live catalog price; order lines copy it at creation time.
	Price      string  `gorm:"type:varchar(32);not null" json:"price"`
	ImageURL   *string `gorm:"type:varchar(256)" json:"image_url,omitempty"`
	CategoryID uint    `gorm:"index;not null" json:"category_id"`
	StoreID    uint    `gorm:"index;not null" json:"store_id"`
	IsActive   bool    `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Store    *Store    `gorm:"foreignKey:StoreID" json:"store,omitempty"`
}
