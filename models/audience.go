package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PromoPlatform is the delivery channel of a promotional campaign
type PromoPlatform string

const (
	PromoPlatformSMS      PromoPlatform = "sms"
	PromoPlatformTelegram PromoPlatform = "telegram"
)

func (p PromoPlatform) String() string {
	return string(p)
}

func (p PromoPlatform) Valid() bool {
	return p == PromoPlatformSMS || p == PromoPlatformTelegram
}

// DisplayName is the channel name used in human-readable summaries
func (p PromoPlatform) DisplayName() string {
	if p == PromoPlatformTelegram {
		return "Telegram"
	}
	return "SMS"
}

// Scan implements the sql.Scanner interface for PromoPlatform
func (p *PromoPlatform) Scan(value any) error {
	if value == nil {
		*p = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*p = PromoPlatform(v)
	case []byte:
		*p = PromoPlatform(string(v))
	default:
		return fmt.Errorf("cannot scan %T into PromoPlatform", value)
	}
	return nil
}

// Value implements the driver.Valuer interface for PromoPlatform
func (p PromoPlatform) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid PromoPlatform: %s", p)
	}
	return string(p), nil
}

// AudienceFilter is the declarative audience definition of a campaign.
// Nil pointers mean "not provided".
type AudienceFilter struct {
	Platform           PromoPlatform    `json:"platform"`
	Search             string           `json:"search,omitempty"`
	BranchIDs          []uint           `json:"branch_ids,omitempty"`
	IncludeMenuItemIDs []uint           `json:"include_menu_item_ids,omitempty"`
	ExcludeMenuItemIDs []uint           `json:"exclude_menu_item_ids,omitempty"`
	OrdersMin          *int             `json:"orders_min,omitempty"`
	OrdersMax          *int             `json:"orders_max,omitempty"`
	RecencyMinDays     *int             `json:"recency_min_days,omitempty"`
	RecencyMaxDays     *int             `json:"recency_max_days,omitempty"`
	TotalSpentMin      *decimal.Decimal `json:"total_spent_min,omitempty"`
	TotalSpentMax      *decimal.Decimal `json:"total_spent_max,omitempty"`
	AvgOrderValueMin   *decimal.Decimal `json:"avg_order_value_min,omitempty"`
	AvgOrderValueMax   *decimal.Decimal `json:"avg_order_value_max,omitempty"`
}

// Value implements the driver.Valuer interface for AudienceFilter
func (f AudienceFilter) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements the sql.Scanner interface for AudienceFilter
func (f *AudienceFilter) Scan(value any) error {
	if value == nil {
		*f = AudienceFilter{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into AudienceFilter", value)
	}

	return json.Unmarshal(bytes, f)
}

// AudienceRow is one deduplicated customer of an audience with its order aggregates
type AudienceRow struct {
	CustomerID        uint            `gorm:"column:customer_id" json:"id"`
	Name              string          `gorm:"column:name" json:"name"`
	Phone             string          `gorm:"column:phone" json:"phone"`
	TelegramID        *int64          `gorm:"column:telegram_id" json:"telegram_id,omitempty"`
	TelegramUsername  *string         `gorm:"column:telegram_username" json:"telegram_username,omitempty"`
	OrdersCount       int64           `gorm:"column:orders_count" json:"orders_count"`
	TotalSpent        decimal.Decimal `gorm:"column:total_spent" json:"total_spent"`
	AverageOrderValue decimal.Decimal `gorm:"column:average_order_value" json:"average_order_value"`
	LastOrderAt       *time.Time      `gorm:"column:last_order_at" json:"last_order_at,omitempty"`
}

// AudienceSummary holds audience-wide aggregates
type AudienceSummary struct {
	MatchedCustomers   int64           `gorm:"column:matched_customers"`
	HighValueCustomers int64           `gorm:"column:high_value_customers"`
	DormantCustomers   int64           `gorm:"column:dormant_customers"`
	TotalOrders        int64           `gorm:"column:total_orders"`
	TotalSpent         decimal.Decimal `gorm:"column:total_spent"`
}

// CustomerStats are the most-recent and most-frequent purchase facts of a customer
type CustomerStats struct {
	LastItem       string
	FavoriteItem   string
	LastBranch     string
	FavoriteBranch string
}
