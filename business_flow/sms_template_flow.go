package businessflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/amirphl/Injera-Promo/app/dto"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/repository"
	"github.com/amirphl/Injera-Promo/utils"
)

var templateKeyRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// SmsTemplateFlow handles management of reusable message templates
type SmsTemplateFlow interface {
	List(ctx context.Context, actor *models.Actor, req *dto.ListSmsTemplatesRequest) (*dto.ListSmsTemplatesResponse, error)
	Create(ctx context.Context, actor *models.Actor, req *dto.CreateSmsTemplateRequest, metadata *ClientMetadata) (*dto.SmsTemplateDTO, error)
	Update(ctx context.Context, actor *models.Actor, req *dto.UpdateSmsTemplateRequest, metadata *ClientMetadata) (*dto.SmsTemplateDTO, error)
}

// SmsTemplateFlowImpl implements the template management business flow
type SmsTemplateFlowImpl struct {
	templateRepo repository.SmsTemplateRepository
	auditRepo    repository.AuditLogRepository
}

// NewSmsTemplateFlow creates a new template flow instance
func NewSmsTemplateFlow(templateRepo repository.SmsTemplateRepository, auditRepo repository.AuditLogRepository) SmsTemplateFlow {
	return &SmsTemplateFlowImpl{templateRepo: templateRepo, auditRepo: auditRepo}
}

// List returns templates ordered by label
func (s *SmsTemplateFlowImpl) List(ctx context.Context, actor *models.Actor, req *dto.ListSmsTemplatesRequest) (*dto.ListSmsTemplatesResponse, error) {
	if actor == nil {
		return nil, NewBusinessError("ACTOR_REQUIRED", "Authentication required", ErrActorRequired)
	}

	filter := models.SmsTemplateFilter{}
	if req != nil && req.ActiveOnly {
		filter.IsActive = utils.ToPtr(true)
	}
	rows, err := s.templateRepo.ByFilter(ctx, filter, "label ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LIST_FAILED", "Failed to list templates", err)
	}

	items := make([]dto.SmsTemplateDTO, 0, len(rows))
	for _, t := range rows {
		items = append(items, ToSmsTemplateDTO(t))
	}
	return &dto.ListSmsTemplatesResponse{Message: "Templates retrieved successfully", Items: items}, nil
}

// Create stores a new template under a unique key
func (s *SmsTemplateFlowImpl) Create(ctx context.Context, actor *models.Actor, req *dto.CreateSmsTemplateRequest, metadata *ClientMetadata) (*dto.SmsTemplateDTO, error) {
	if actor == nil {
		return nil, NewBusinessError("ACTOR_REQUIRED", "Authentication required", ErrActorRequired)
	}

	key := strings.TrimSpace(req.Key)
	if !templateKeyRe.MatchString(key) {
		return nil, NewBusinessError("TEMPLATE_KEY_INVALID", "key may only contain lowercase letters, digits and underscores", ErrTemplateKeyInvalid)
	}
	label := strings.TrimSpace(req.Label)
	body := strings.TrimSpace(req.Body)
	if label == "" || body == "" {
		return nil, NewBusinessError("TEMPLATE_FIELDS_REQUIRED", "label and body are required", ErrMessageRequired)
	}

	existing, err := s.templateRepo.ByKey(ctx, key)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LOOKUP_FAILED", "Failed to check template key", err)
	}
	if existing != nil {
		return nil, NewBusinessError("TEMPLATE_KEY_EXISTS", "A template with this key already exists", ErrTemplateKeyExists)
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	tpl := &models.SmsTemplate{
		Key:       key,
		Label:     label,
		Body:      body,
		IsActive:  &isActive,
		CreatedBy: utils.ToPtr(actor.StaffID),
	}
	if err := s.templateRepo.Save(ctx, tpl); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, NewBusinessError("TEMPLATE_KEY_EXISTS", "A template with this key already exists", ErrTemplateKeyExists)
		}
		return nil, NewBusinessError("TEMPLATE_SAVE_FAILED", "Failed to save template", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, auditEntry{
		actor:       actor,
		action:      models.AuditActionSmsTemplateCreated,
		description: fmt.Sprintf("Template created: %s", key),
		success:     true,
		extra:       map[string]any{"template_id": tpl.ID, "key": key},
	}, metadata)

	out := ToSmsTemplateDTO(tpl)
	return &out, nil
}

// Update changes the label, body or active flag of a template. The key is immutable.
func (s *SmsTemplateFlowImpl) Update(ctx context.Context, actor *models.Actor, req *dto.UpdateSmsTemplateRequest, metadata *ClientMetadata) (*dto.SmsTemplateDTO, error) {
	if actor == nil {
		return nil, NewBusinessError("ACTOR_REQUIRED", "Authentication required", ErrActorRequired)
	}
	if req.Label == nil && req.Body == nil && req.IsActive == nil {
		return nil, NewBusinessError("TEMPLATE_UPDATE_NONE", "At least one field must be provided for update", ErrTemplateUpdateNone)
	}

	tpl, err := s.templateRepo.ByID(ctx, req.ID)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LOOKUP_FAILED", "Failed to load template", err)
	}
	if tpl == nil {
		return nil, NewBusinessError("TEMPLATE_NOT_FOUND", "Template not found", ErrTemplateNotFound)
	}

	changed := make([]string, 0, 3)
	if req.Label != nil {
		if label := strings.TrimSpace(*req.Label); label != "" {
			tpl.Label = label
			changed = append(changed, "label")
		}
	}
	if req.Body != nil {
		if body := strings.TrimSpace(*req.Body); body != "" {
			tpl.Body = body
			changed = append(changed, "body")
		}
	}
	if req.IsActive != nil {
		tpl.IsActive = utils.ToPtr(*req.IsActive)
		changed = append(changed, "is_active")
	}
	if len(changed) == 0 {
		return nil, NewBusinessError("TEMPLATE_UPDATE_NONE", "At least one field must be provided for update", ErrTemplateUpdateNone)
	}

	if err := s.templateRepo.Update(ctx, tpl); err != nil {
		return nil, NewBusinessError("TEMPLATE_SAVE_FAILED", "Failed to update template", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, auditEntry{
		actor:       actor,
		action:      models.AuditActionSmsTemplateUpdated,
		description: fmt.Sprintf("Template updated: %s", tpl.Key),
		success:     true,
		extra:       map[string]any{"template_id": tpl.ID, "fields": changed},
	}, metadata)

	out := ToSmsTemplateDTO(tpl)
	return &out, nil
}
