package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSource is the channel an order was placed through
type OrderSource string

const (
	OrderSourceWeb      OrderSource = "web"
	OrderSourceTelegram OrderSource = "telegram"
	OrderSourceTable    OrderSource = "table"
)

func (s OrderSource) String() string {
	return string(s)
}

func (s OrderSource) Valid() bool {
	switch s {
	case OrderSourceWeb, OrderSourceTelegram, OrderSourceTable:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for OrderSource
func (s *OrderSource) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = OrderSource(v)
	case []byte:
		*s = OrderSource(string(v))
	default:
		return fmt.Errorf("cannot scan %T into OrderSource", value)
	}
	return nil
}

// Value implements the driver.Valuer interface for OrderSource
func (s OrderSource) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid OrderSource: %s", s)
	}
	return string(s), nil
}

// Order is one purchase event. The promo engine only reads orders.
type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	CustomerID       uint            `gorm:"not null;index:idx_orders_customer_id" json:"customer_id"`
	Customer         *Customer       `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	PickupLocationID uint            `gorm:"not null;index:idx_orders_pickup_location_id" json:"pickup_location_id"`
	PickupLocation   *PickupLocation `gorm:"foreignKey:PickupLocationID;references:ID" json:"pickup_location,omitempty"`
	Source           OrderSource     `gorm:"size:16;not null;default:'web'" json:"source"`
	Status           string          `gorm:"size:32;not null;default:'pending'" json:"status"`
	ReceiptStatus    string          `gorm:"size:32;not null;default:'none'" json:"receipt_status"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_amount"`
	PickupDate       *time.Time      `json:"pickup_date,omitempty"`
	TrackingToken    string          `gorm:"size:64;not null;default:''" json:"tracking_token"`
	CreatedAt        time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_orders_created_at" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// ItemCount sums the quantities of the order's line items
func (o *Order) ItemCount() int {
	total := 0
	for _, it := range o.Items {
		total += it.Quantity
	}
	return total
}

type OrderItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"not null;index:idx_order_items_order_id" json:"order_id"`
	MenuItemID uint            `gorm:"not null;index:idx_order_items_menu_item_id" json:"menu_item_id"`
	MenuItem   *MenuItem       `gorm:"foreignKey:MenuItemID;references:ID" json:"menu_item,omitempty"`
	Quantity   int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"unit_price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
