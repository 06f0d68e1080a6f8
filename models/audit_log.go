package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	StaffID      *uint           `gorm:"index:idx_audit_staff_id" json:"staff_id,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionStaffLoginSuccess    = "staff_login_success"
	AuditActionStaffLoginFailed     = "staff_login_failed"
	AuditActionPromoSent            = "promo_sent"
	AuditActionPromoSendFailed      = "promo_send_failed"
	AuditActionPromoNoMatch         = "promo_no_match"
	AuditActionPromoScheduled       = "promo_scheduled"
	AuditActionPromoExported        = "promo_exported"
	AuditActionSmsTemplateCreated   = "sms_template_created"
	AuditActionSmsTemplateUpdated   = "sms_template_updated"
	AuditActionSmsTemplateAutoSaved = "sms_template_auto_saved"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	StaffID       *uint
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
