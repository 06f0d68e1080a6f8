// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Injera-Promo/app/dto"
	"github.com/amirphl/Injera-Promo/app/middleware"
	businessflow "github.com/amirphl/Injera-Promo/business_flow"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

const defaultRequestTimeout = 30 * time.Second

// baseHandler carries what every handler needs to decode, validate and answer requests
type baseHandler struct {
	validator *validator.Validate
	logger    *logrus.Logger
}

func newBaseHandler(logger *logrus.Logger) baseHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return baseHandler{
		validator: validator.New(),
		logger:    logger,
	}
}

func (h baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validate returns one message per failing field, or nil when req is valid
func (h baseHandler) validate(req any) []string {
	err := h.validator.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return messages
}

// bindJSON decodes and validates the body. When it returns false the error response
// has already been written.
func (h baseHandler) bindJSON(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if messages := h.validate(req); messages != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
	}
	return true, nil
}

// actor returns the authenticated staff member, or writes a 401 and returns false
func (h baseHandler) actor(c fiber.Ctx) (*models.Actor, bool, error) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		return nil, false, h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}
	return actor, true, nil
}

func (h baseHandler) metadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestID(c))
	return metadata
}

// createRequestContext creates a context with the request-scoped values flows read
func (h baseHandler) createRequestContext(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, businessflow.RequestIDKey, requestID(c))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)

	return ctx, cancel
}

func requestID(c fiber.Ctx) string {
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

// businessErrorResponse maps flow errors to HTTP statuses. Unknown errors are logged
// and answered with 500 using the fallback code.
func (h baseHandler) businessErrorResponse(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	message := fallbackMessage
	code := fallbackCode
	if be, ok := businessflow.AsBusinessError(err); ok {
		message = be.Message
		code = be.Code
	}

	switch {
	case businessflow.IsInvalidRange(err),
		businessflow.IsInvalidPlatform(err),
		businessflow.IsMessageRequired(err),
		businessflow.IsScheduleTimeTooSoon(err):
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, message, code, nil)
	case businessflow.IsNoCustomersMatched(err):
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, message, "NO_CUSTOMERS_MATCHED", nil)
	case businessflow.IsTemplateKeyInvalid(err),
		businessflow.IsTemplateUpdateNone(err),
		businessflow.IsInvalidPage(err),
		businessflow.IsInvalidPageSize(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, message, code, nil)
	case businessflow.IsCampaignRunNotFound(err),
		businessflow.IsTemplateNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, message, code, nil)
	case businessflow.IsTemplateKeyExists(err),
		businessflow.IsCampaignRunNotDue(err):
		return h.ErrorResponse(c, fiber.StatusConflict, message, code, nil)
	case businessflow.IsStaffNotFound(err),
		businessflow.IsIncorrectPassword(err):
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid phone number or password", "INVALID_CREDENTIALS", nil)
	case businessflow.IsStaffInactive(err):
		return h.ErrorResponse(c, fiber.StatusForbidden, "Staff account is inactive", "STAFF_INACTIVE", nil)
	case businessflow.IsActorRequired(err):
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	h.logger.WithError(err).WithFields(logrus.Fields{
		"path":       c.Path(),
		"request_id": requestID(c),
	}).Error(fallbackMessage)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		if isNumericKind(err) {
			return err.Field() + " must be at least " + err.Param()
		}
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		if isNumericKind(err) {
			return err.Field() + " must be at most " + err.Param()
		}
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "url":
		return err.Field() + " must be a valid URL"
	case "numeric":
		return err.Field() + " must contain only numbers"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

func isNumericKind(err validator.FieldError) bool {
	switch err.Kind().String() {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "float32", "float64":
		return true
	}
	return false
}
