package businessflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amirphl/Injera-Promo/app/dto"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/repository"
	"github.com/amirphl/Injera-Promo/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// auditEntry describes one audit log row
type auditEntry struct {
	actor       *models.Actor
	action      string
	description string
	success     bool
	errorMsg    *string
	extra       map[string]any
}

// createAuditLog persists an audit row. Failures are returned but callers ignore them;
// auditing never blocks the business operation.
func createAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, entry auditEntry, metadata *ClientMetadata) error {
	if auditRepo == nil {
		return nil
	}

	var staffID *uint
	if entry.actor != nil && entry.actor.StaffID != 0 {
		staffID = utils.ToPtr(entry.actor.StaffID)
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	description := entry.description
	audit := &models.AuditLog{
		StaffID:      staffID,
		Action:       entry.action,
		Description:  &description,
		Success:      utils.ToPtr(entry.success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: entry.errorMsg,
	}
	if len(entry.extra) > 0 {
		if raw, err := json.Marshal(entry.extra); err == nil {
			audit.Metadata = raw
		}
	}

	// Extract request ID from context if available
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		audit.RequestID = &requestID
	} else if metadata != nil && metadata.RequestID != "" {
		audit.RequestID = utils.ToPtr(metadata.RequestID)
	}

	return auditRepo.Save(ctx, audit)
}

// ToStaffDTO converts a staff model to the response shape
func ToStaffDTO(staff *models.StaffUser) dto.StaffDTO {
	actor := staff.Actor()
	return dto.StaffDTO{
		ID:        staff.ID,
		Name:      staff.Name,
		Phone:     staff.Phone,
		Role:      staff.Role.String(),
		BranchIDs: actor.BranchIDs,
	}
}

// ToSmsTemplateDTO converts a template model to the response shape
func ToSmsTemplateDTO(tpl *models.SmsTemplate) dto.SmsTemplateDTO {
	return dto.SmsTemplateDTO{
		ID:        tpl.ID,
		Key:       tpl.Key,
		Label:     tpl.Label,
		Body:      tpl.Body,
		IsActive:  tpl.Active(),
		CreatedBy: tpl.CreatedBy,
		CreatedAt: tpl.CreatedAt,
		UpdatedAt: tpl.UpdatedAt,
	}
}

// ToPromoCampaignRunDTO converts a run model to the response shape
func ToPromoCampaignRunDTO(run *models.PromoCampaignRun) dto.PromoCampaignRunDTO {
	return dto.PromoCampaignRunDTO{
		UUID:             run.UUID.String(),
		StaffID:          run.StaffID,
		Platform:         run.Platform.String(),
		Status:           run.Status.String(),
		Message:          run.Message,
		AudienceSize:     run.AudienceSize,
		Sent:             run.SentCount,
		Failed:           run.FailedCount,
		Summary:          run.Summary,
		SavedTemplateKey: run.SavedTemplateKey,
		ScheduledAt:      run.ScheduledAt,
		StartedAt:        run.StartedAt,
		CompletedAt:      run.CompletedAt,
		CreatedAt:        run.CreatedAt,
	}
}

// ToPromoDeliveryDTO converts a delivery model to the response shape
func ToPromoDeliveryDTO(d *models.PromoDelivery) dto.PromoDeliveryDTO {
	return dto.PromoDeliveryDTO{
		CustomerID:        d.CustomerID,
		TrackingID:        d.TrackingID.String(),
		Channel:           d.Channel.String(),
		Recipient:         d.Recipient,
		Status:            string(d.Status),
		ProviderMessageID: d.ProviderMessageID,
		Error:             d.Error,
		CreatedAt:         d.CreatedAt,
	}
}

// formatTimePtr renders t with layout, or "" when nil
func formatTimePtr(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}
