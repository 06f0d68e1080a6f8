// Package models contains domain entities and business models for the promo engine
package models

import (
	"time"
)

// Customer is an ordering identity. Phone is unique per real customer; QR-table
// walk-ins carry a synthetic placeholder phone instead.
type Customer struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	Name             string  `gorm:"size:255;not null;default:''" json:"name"`
	Phone            string  `gorm:"size:32;not null;uniqueIndex:uk_customers_phone" json:"phone"`
	TelegramID       *int64  `gorm:"index:idx_customers_telegram_id" json:"telegram_id,omitempty"`
	TelegramUsername *string `gorm:"size:64" json:"telegram_username,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_customers_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	Orders []Order `gorm:"foreignKey:CustomerID" json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}

// CustomerFilter represents filter criteria for customer queries
type CustomerFilter struct {
	ID         *uint
	IDs        []uint
	Phone      *string
	TelegramID *int64
}
