package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PromoRunStatus represents the lifecycle state of a campaign run
type PromoRunStatus string

const (
	PromoRunStatusScheduled PromoRunStatus = "scheduled"
	PromoRunStatusRunning   PromoRunStatus = "running"
	PromoRunStatusCompleted PromoRunStatus = "completed"
	PromoRunStatusNoMatch   PromoRunStatus = "no-match"
	PromoRunStatusFailed    PromoRunStatus = "failed"
)

func (s PromoRunStatus) String() string {
	return string(s)
}

func (s PromoRunStatus) Valid() bool {
	switch s {
	case PromoRunStatusScheduled, PromoRunStatusRunning, PromoRunStatusCompleted,
		PromoRunStatusNoMatch, PromoRunStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for PromoRunStatus
func (s *PromoRunStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = PromoRunStatus(v)
	case []byte:
		*s = PromoRunStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into PromoRunStatus", value)
	}
	return nil
}

// Value implements the driver.Valuer interface for PromoRunStatus
func (s PromoRunStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid PromoRunStatus: %s", s)
	}
	return string(s), nil
}

// PromoCampaignRun records one dispatch of a promotional message to an audience
type PromoCampaignRun struct {
	ID       uint           `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_promo_campaign_runs_uuid" json:"uuid"`
	StaffID  uint           `gorm:"not null;index:idx_promo_campaign_runs_staff_id" json:"staff_id"`
	Platform PromoPlatform  `gorm:"size:16;not null" json:"platform"`
	Status   PromoRunStatus `gorm:"size:16;not null;default:'running';index:idx_promo_campaign_runs_status" json:"status"`
	Message  string         `gorm:"type:text;not null" json:"message"`
	Filter   AudienceFilter `gorm:"type:jsonb;not null" json:"filter"`

	TelegramButtonText *string `gorm:"size:64" json:"telegram_button_text,omitempty"`
	TelegramButtonURL  *string `gorm:"size:512" json:"telegram_button_url,omitempty"`
	SaveTemplate       bool    `gorm:"not null;default:false" json:"save_template"`
	TemplateLabel      *string `gorm:"size:255" json:"template_label,omitempty"`
	SavedTemplateKey   *string `gorm:"size:120" json:"saved_template_key,omitempty"`

	AudienceSize int    `gorm:"not null;default:0" json:"audience_size"`
	SentCount    int    `gorm:"not null;default:0" json:"sent_count"`
	FailedCount  int    `gorm:"not null;default:0" json:"failed_count"`
	Summary      string `gorm:"type:text;not null;default:''" json:"summary"`

	ScheduledAt *time.Time `gorm:"index:idx_promo_campaign_runs_scheduled_at" json:"scheduled_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_promo_campaign_runs_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (PromoCampaignRun) TableName() string {
	return "promo_campaign_runs"
}

// PromoCampaignRunFilter represents filter criteria for run queries
type PromoCampaignRunFilter struct {
	ID             *uint
	UUID           *uuid.UUID
	StaffID        *uint
	Platform       *PromoPlatform
	Status         *PromoRunStatus
	ScheduledUntil *time.Time
}

// PromoDeliveryStatus is the outcome of one recipient's send
type PromoDeliveryStatus string

const (
	PromoDeliveryStatusSent   PromoDeliveryStatus = "sent"
	PromoDeliveryStatusFailed PromoDeliveryStatus = "failed"
)

// PromoDelivery is the per-recipient record of a campaign run
type PromoDelivery struct {
	ID                uint                `gorm:"primaryKey" json:"id"`
	RunID             uint                `gorm:"not null;index:idx_promo_deliveries_run_id" json:"run_id"`
	CustomerID        uint                `gorm:"not null;index:idx_promo_deliveries_customer_id" json:"customer_id"`
	TrackingID        uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:uk_promo_deliveries_tracking_id" json:"tracking_id"`
	Channel           PromoPlatform       `gorm:"size:16;not null" json:"channel"`
	Recipient         string              `gorm:"size:64;not null;default:''" json:"recipient"`
	Body              string              `gorm:"type:text;not null" json:"body"`
	Status            PromoDeliveryStatus `gorm:"size:16;not null;index:idx_promo_deliveries_status" json:"status"`
	ProviderMessageID *string             `gorm:"size:128" json:"provider_message_id,omitempty"`
	Error             *string             `gorm:"type:text" json:"error,omitempty"`
	CreatedAt         time.Time           `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (PromoDelivery) TableName() string {
	return "promo_deliveries"
}

// PromoDeliveryFilter represents filter criteria for delivery queries
type PromoDeliveryFilter struct {
	RunID      *uint
	CustomerID *uint
	Status     *PromoDeliveryStatus
}
