package handlers

import (
	"strconv"

	"github.com/amirphl/Injera-Promo/app/dto"
	businessflow "github.com/amirphl/Injera-Promo/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// SmsTemplateHandlerInterface defines the contract for template handlers
type SmsTemplateHandlerInterface interface {
	ListTemplates(c fiber.Ctx) error
	CreateTemplate(c fiber.Ctx) error
	UpdateTemplate(c fiber.Ctx) error
}

// SmsTemplateHandler handles reusable message template requests
type SmsTemplateHandler struct {
	baseHandler
	templateFlow businessflow.SmsTemplateFlow
}

// NewSmsTemplateHandler creates a new template handler
func NewSmsTemplateHandler(templateFlow businessflow.SmsTemplateFlow, logger *logrus.Logger) *SmsTemplateHandler {
	return &SmsTemplateHandler{
		baseHandler:  newBaseHandler(logger),
		templateFlow: templateFlow,
	}
}

// ListTemplates lists message templates
// @Summary List SMS Templates
// @Tags SMS Templates
// @Produce json
// @Param active_only query bool false "Only active templates"
// @Success 200 {object} dto.APIResponse{data=dto.ListSmsTemplatesResponse}
// @Failure 401 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/sms-templates [get]
func (h *SmsTemplateHandler) ListTemplates(c fiber.Ctx) error {
	actor, ok, err := h.actor(c)
	if !ok {
		return err
	}

	var req dto.ListSmsTemplatesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/sms-templates", defaultRequestTimeout)
	defer cancel()

	result, err := h.templateFlow.List(ctx, actor, &req)
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to list templates", "TEMPLATE_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// CreateTemplate stores a new message template
// @Summary Create SMS Template
// @Tags SMS Templates
// @Accept json
// @Produce json
// @Param request body dto.CreateSmsTemplateRequest true "Template"
// @Success 201 {object} dto.APIResponse{data=dto.SmsTemplateDTO}
// @Failure 400 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse "Key already exists"
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/sms-templates [post]
func (h *SmsTemplateHandler) CreateTemplate(c fiber.Ctx) error {
	actor, ok, err := h.actor(c)
	if !ok {
		return err
	}

	var req dto.CreateSmsTemplateRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/sms-templates", defaultRequestTimeout)
	defer cancel()

	result, err := h.templateFlow.Create(ctx, actor, &req, h.metadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to create template", "TEMPLATE_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Template created successfully", result)
}

// UpdateTemplate changes the label, body or active flag of a template
// @Summary Update SMS Template
// @Tags SMS Templates
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param request body dto.UpdateSmsTemplateRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.SmsTemplateDTO}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/sms-templates/{id} [put]
func (h *SmsTemplateHandler) UpdateTemplate(c fiber.Ctx) error {
	actor, ok, err := h.actor(c)
	if !ok {
		return err
	}

	id, perr := strconv.ParseUint(c.Params("id"), 10, 64)
	if perr != nil || id == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid template id", "INVALID_TEMPLATE_ID", nil)
	}

	var req dto.UpdateSmsTemplateRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}
	req.ID = uint(id)

	ctx, cancel := h.createRequestContext(c, "/api/v1/sms-templates/:id", defaultRequestTimeout)
	defer cancel()

	result, err := h.templateFlow.Update(ctx, actor, &req, h.metadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to update template", "TEMPLATE_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Template updated successfully", result)
}
