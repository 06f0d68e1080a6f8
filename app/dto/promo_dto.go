package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PromoFilterRequest is the audience filter shared by preview, export, send and schedule
type PromoFilterRequest struct {
	Platform           string           `json:"platform" validate:"required,oneof=sms telegram" example:"sms"`
	Search             string           `json:"search,omitempty" validate:"omitempty,max=255" example:"Sara"`
	BranchIDs          []uint           `json:"branch_ids,omitempty" validate:"omitempty,max=100,dive,min=1"`
	IncludeMenuItemIDs []uint           `json:"include_menu_item_ids,omitempty" validate:"omitempty,max=200,dive,min=1"`
	ExcludeMenuItemIDs []uint           `json:"exclude_menu_item_ids,omitempty" validate:"omitempty,max=200,dive,min=1"`
	OrdersMin          *int             `json:"orders_min,omitempty" validate:"omitempty,min=0" example:"2"`
	OrdersMax          *int             `json:"orders_max,omitempty" validate:"omitempty,min=0"`
	RecencyMinDays     *int             `json:"recency_min_days,omitempty" validate:"omitempty,min=0,max=3650"`
	RecencyMaxDays     *int             `json:"recency_max_days,omitempty" validate:"omitempty,min=0,max=3650" example:"30"`
	TotalSpentMin      *decimal.Decimal `json:"total_spent_min,omitempty" swaggertype:"number"`
	TotalSpentMax      *decimal.Decimal `json:"total_spent_max,omitempty" swaggertype:"number"`
	AvgOrderValueMin   *decimal.Decimal `json:"avg_order_value_min,omitempty" swaggertype:"number"`
	AvgOrderValueMax   *decimal.Decimal `json:"avg_order_value_max,omitempty" swaggertype:"number"`
}

// PromoPreviewRequest represents the request to preview a promo audience
type PromoPreviewRequest struct {
	PromoFilterRequest
}

// PromoSummaryDTO holds audience-wide statistics
type PromoSummaryDTO struct {
	MatchedCustomers         int64   `json:"matched_customers" example:"13"`
	HighValueCustomers       int64   `json:"high_value_customers" example:"4"`
	DormantCustomers         int64   `json:"dormant_customers" example:"2"`
	AverageOrdersPerCustomer float64 `json:"average_orders_per_customer" example:"3.25"`
	AverageTotalSpent        float64 `json:"average_total_spent" example:"1520.4"`
}

// PromoSampleRowDTO is one previewed recipient
type PromoSampleRowDTO struct {
	ID                uint              `json:"id"`
	Name              string            `json:"name"`
	Phone             string            `json:"phone"`
	TelegramUsername  *string           `json:"telegram_username"`
	OrdersCount       int64             `json:"orders_count"`
	TotalSpent        float64           `json:"total_spent"`
	AverageOrderValue float64           `json:"average_order_value"`
	LastOrderAt       *time.Time        `json:"last_order_at"`
	RecencyDays       *int              `json:"recency_days"`
	PreviewVariables  map[string]string `json:"preview_variables"`
}

// PromoPreviewResponse represents the preview of a promo audience
type PromoPreviewResponse struct {
	Summary PromoSummaryDTO     `json:"summary"`
	Sample  []PromoSampleRowDTO `json:"sample"`
}

// PromoExportRequest represents the request to export an audience as a spreadsheet
type PromoExportRequest struct {
	PromoFilterRequest
}

// PromoExportResponse carries the generated workbook
type PromoExportResponse struct {
	Filename string `json:"filename"`
	Rows     int    `json:"rows"`
	Content  []byte `json:"-"`
}

// SendPromoCampaignRequest represents the request to send a promo campaign now
type SendPromoCampaignRequest struct {
	PromoFilterRequest
	Message            string `json:"message" validate:"required,max=1600" example:"Hi {name}, special offer!"`
	TemplateKey        string `json:"template_key,omitempty" validate:"omitempty,max=120" example:"promo_20261014_090000"`
	TemplateLabel      string `json:"template_label,omitempty" validate:"omitempty,max=255"`
	SaveTemplate       bool   `json:"save_template"`
	TelegramButtonText string `json:"telegram_button_text,omitempty" validate:"omitempty,max=64"`
	TelegramButtonURL  string `json:"telegram_button_url,omitempty" validate:"omitempty,url,max=512"`
}

// SendPromoCampaignResponse summarizes a finished dispatch
type SendPromoCampaignResponse struct {
	Message       string  `json:"message" example:"SMS promo sent. Sent: 12, Failed: 1, Audience: 13."`
	RunUUID       string  `json:"run_uuid"`
	Platform      string  `json:"platform"`
	AudienceSize  int     `json:"audience_size"`
	Sent          int     `json:"sent"`
	Failed        int     `json:"failed"`
	TemplateKey   *string `json:"template_key,omitempty"`
	TemplateLabel *string `json:"template_label,omitempty"`
}

// SchedulePromoCampaignRequest represents the request to send a promo campaign later
type SchedulePromoCampaignRequest struct {
	SendPromoCampaignRequest
	ScheduledAt time.Time `json:"scheduled_at" validate:"required" example:"2026-10-20T09:00:00Z"`
}

// SchedulePromoCampaignResponse represents a stored scheduled run
type SchedulePromoCampaignResponse struct {
	Message     string    `json:"message"`
	RunUUID     string    `json:"run_uuid"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// ListPromoCampaignRunsRequest represents a paginated run history query
type ListPromoCampaignRunsRequest struct {
	Page     int    `query:"page" validate:"omitempty,min=1"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Status   string `query:"status" validate:"omitempty,oneof=scheduled running completed no-match failed"`
	Platform string `query:"platform" validate:"omitempty,oneof=sms telegram"`
}

// PromoCampaignRunDTO is one campaign run in responses
type PromoCampaignRunDTO struct {
	UUID             string     `json:"uuid"`
	StaffID          uint       `json:"staff_id"`
	Platform         string     `json:"platform"`
	Status           string     `json:"status"`
	Message          string     `json:"message"`
	AudienceSize     int        `json:"audience_size"`
	Sent             int        `json:"sent"`
	Failed           int        `json:"failed"`
	Summary          string     `json:"summary"`
	SavedTemplateKey *string    `json:"saved_template_key,omitempty"`
	ScheduledAt      *time.Time `json:"scheduled_at,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ListPromoCampaignRunsResponse represents a page of campaign runs
type ListPromoCampaignRunsResponse struct {
	Message    string                `json:"message"`
	Items      []PromoCampaignRunDTO `json:"items"`
	Pagination PaginationInfo        `json:"pagination"`
}

// GetPromoCampaignRunResponse represents one run with its delivery breakdown
type GetPromoCampaignRunResponse struct {
	Run        PromoCampaignRunDTO `json:"run"`
	Deliveries []PromoDeliveryDTO  `json:"deliveries"`
}

// PromoDeliveryDTO is one recipient outcome
type PromoDeliveryDTO struct {
	CustomerID        uint      `json:"customer_id"`
	TrackingID        string    `json:"tracking_id"`
	Channel           string    `json:"channel"`
	Recipient         string    `json:"recipient"`
	Status            string    `json:"status"`
	ProviderMessageID *string   `json:"provider_message_id,omitempty"`
	Error             *string   `json:"error,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
