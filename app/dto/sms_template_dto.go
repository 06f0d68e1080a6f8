package dto

import "time"

// CreateSmsTemplateRequest represents the request to store a reusable message body
type CreateSmsTemplateRequest struct {
	Key      string `json:"key" validate:"required,min=2,max=120" example:"weekend_offer"`
	Label    string `json:"label" validate:"required,max=255" example:"Weekend offer"`
	Body     string `json:"body" validate:"required,max=1600" example:"Hi {name}, 10% off this weekend at {favorite_branch}!"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// UpdateSmsTemplateRequest represents a partial template update
type UpdateSmsTemplateRequest struct {
	ID       uint    `json:"-"`
	Label    *string `json:"label,omitempty" validate:"omitempty,min=1,max=255"`
	Body     *string `json:"body,omitempty" validate:"omitempty,min=1,max=1600"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ListSmsTemplatesRequest represents the template listing query
type ListSmsTemplatesRequest struct {
	ActiveOnly bool `query:"active_only"`
}

// SmsTemplateDTO is a template in responses
type SmsTemplateDTO struct {
	ID        uint      `json:"id"`
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Body      string    `json:"body"`
	IsActive  bool      `json:"is_active"`
	CreatedBy *uint     `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListSmsTemplatesResponse represents the list of templates
type ListSmsTemplatesResponse struct {
	Message string           `json:"message"`
	Items   []SmsTemplateDTO `json:"items"`
}
