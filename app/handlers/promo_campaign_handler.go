package handlers

import (
	"time"

	"github.com/amirphl/Injera-Promo/app/dto"
	businessflow "github.com/amirphl/Injera-Promo/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportTimeout   = 2 * time.Minute
	sendTimeout     = 5 * time.Minute
)

// PromoCampaignHandlerInterface defines the contract for promo targeting handlers
type PromoCampaignHandlerInterface interface {
	Preview(c fiber.Ctx) error
	Export(c fiber.Ctx) error
	Send(c fiber.Ctx) error
	Schedule(c fiber.Ctx) error
	ListRuns(c fiber.Ctx) error
	GetRun(c fiber.Ctx) error
}

// PromoCampaignHandler handles audience preview and campaign dispatch requests
type PromoCampaignHandler struct {
	baseHandler
	previewFlow  businessflow.PromoPreviewFlow
	campaignFlow businessflow.PromoCampaignFlow
}

// NewPromoCampaignHandler creates a new promo campaign handler
func NewPromoCampaignHandler(previewFlow businessflow.PromoPreviewFlow, campaignFlow businessflow.PromoCampaignFlow, logger *logrus.Logger) *PromoCampaignHandler {
	return &PromoCampaignHandler{
		baseHandler:  newBaseHandler(logger),
		previewFlow:  previewFlow,
		campaignFlow: campaignFlow,
	}
}

// Preview returns audience statistics and a sample of recipients with rendered variables
// @Summary Preview Promo Audience
// @Tags Promo
// @Accept json
// @Produce json
// @Param request body dto.PromoPreviewRequest true "Audience filter"
// @Success 200 {object} dto.APIResponse{data=dto.PromoPreviewResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 422 {object} dto.APIResponse "Invalid filter range"
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/promo/preview [post]
func (h *PromoCampaignHandler) Preview(c fiber.Ctx) error {
	actor, ok, err := h.actor(c)
	if !ok {
		return err
	}

	var req dto.PromoPreviewRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/promo/preview", defaultRequestTimeout)
	defer cancel()

	result, err := h.previewFlow.Preview(ctx, actor, &req, h.metadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to preview audience", "PREVIEW_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Audience preview generated", result)
}

// Export downloads the full matching audience as a spreadsheet
// @Summary Export Promo Audience
// @Tags Promo
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param request body dto.PromoExportRequest true "Audience filter"
// @Success 200 {file} file "XLSX workbook"
// @Failure 400 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/promo/export [post]
func (h *PromoCampaignHandler) Export(c fiber.Ctx) error {
	actor, ok, err := h.actor(c)
	if !ok {
		return err
	}

	var req dto.PromoExportRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/promo/export", exportTimeout)
	defer cancel()

	result, err := h.previewFlow.Export(ctx, actor, &req, h.metadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to export audience", "EXPORT_FAILED")
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+result.Filename)
	return c.Send(result.Content)
}

// Send dispatches a promo message to every matching customer now
// @Summary Send Promo Campaign
// @Tags Promo
// @Accept json
// @Produce json
// @Param request body dto.SendPromoCampaignRequest true "Filter and message"
// @Success 200 {object} dto.APIResponse{data=dto.SendPromoCampaignResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse "Invalid filter range or empty audience"
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/promo/send [post]
func (h *PromoCampaignHandler) Send(c fiber.Ctx) error {
	actor, ok, err := h.actor(c)
	if !ok {
		return err
	}

	var req dto.SendPromoCampaignRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/promo/send", sendTimeout)
	defer cancel()

	result, err := h.campaignFlow.Send(ctx, actor, &req, h.metadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to send promo campaign", "PROMO_SEND_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Schedule stores a campaign to be dispatched by the scheduler at scheduled_at
// @Summary Schedule Promo Campaign
// @Tags Promo
// @Accept json
// @Produce json
// @Param request body dto.SchedulePromoCampaignRequest true "Filter, message and send time"
// @Success 201 {object} dto.APIResponse{data=dto.SchedulePromoCampaignResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/promo/schedule [post]
func (h *PromoCampaignHandler) Schedule(c fiber.Ctx) error {
	actor, ok, err := h.actor(c)
	if !ok {
		return err
	}

	var req dto.SchedulePromoCampaignRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/promo/schedule", defaultRequestTimeout)
	defer cancel()

	result, err := h.campaignFlow.Schedule(ctx, actor, &req, h.metadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to schedule promo campaign", "PROMO_SCHEDULE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// ListRuns lists campaign runs, newest first
// @Summary List Promo Campaign Runs
// @Tags Promo
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param status query string false "Run status"
// @Param platform query string false "sms or telegram"
// @Success 200 {object} dto.APIResponse{data=dto.ListPromoCampaignRunsResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/promo/runs [get]
func (h *PromoCampaignHandler) ListRuns(c fiber.Ctx) error {
	actor, ok, err := h.actor(c)
	if !ok {
		return err
	}

	var req dto.ListPromoCampaignRunsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if messages := h.validate(&req); messages != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/promo/runs", defaultRequestTimeout)
	defer cancel()

	result, err := h.campaignFlow.ListRuns(ctx, actor, &req)
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to list campaign runs", "CAMPAIGN_RUN_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetRun returns one campaign run with its per-recipient outcomes
// @Summary Get Promo Campaign Run
// @Tags Promo
// @Produce json
// @Param uuid path string true "Run UUID"
// @Success 200 {object} dto.APIResponse{data=dto.GetPromoCampaignRunResponse}
// @Failure 404 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/promo/runs/{uuid} [get]
func (h *PromoCampaignHandler) GetRun(c fiber.Ctx) error {
	actor, ok, err := h.actor(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/promo/runs/:uuid", defaultRequestTimeout)
	defer cancel()

	result, err := h.campaignFlow.GetRun(ctx, actor, c.Params("uuid"))
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to load campaign run", "CAMPAIGN_RUN_LOOKUP_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign run retrieved", result)
}
