package models

import "time"

// SmsTemplate is a named, reusable message body
type SmsTemplate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"size:120;not null;uniqueIndex:uk_sms_templates_key" json:"key"`
	Label     string    `gorm:"size:255;not null" json:"label"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	IsActive  *bool     `gorm:"default:true;index:idx_sms_templates_is_active" json:"is_active"`
	CreatedBy *uint     `gorm:"index:idx_sms_templates_created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (SmsTemplate) TableName() string {
	return "sms_templates"
}

// Active reports whether the template may be used for rendering
func (t *SmsTemplate) Active() bool {
	return t != nil && (t.IsActive == nil || *t.IsActive)
}

// SmsTemplateFilter represents filter criteria for template queries
type SmsTemplateFilter struct {
	ID        *uint
	Key       *string
	KeyPrefix *string
	IsActive  *bool
}
