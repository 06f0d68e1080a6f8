package handlers

import (
	"github.com/amirphl/Injera-Promo/app/dto"
	businessflow "github.com/amirphl/Injera-Promo/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// AuthHandlerInterface defines the contract for staff authentication handlers
type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
}

// AuthHandler handles staff authentication requests
type AuthHandler struct {
	baseHandler
	loginFlow businessflow.StaffLoginFlow
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(loginFlow businessflow.StaffLoginFlow, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(logger),
		loginFlow:   loginFlow,
	}
}

// Login handles staff login with phone number and password
// @Summary Staff Login
// @Description Authenticate a staff member and issue an access token carrying their role
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.StaffLoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.StaffLoginResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 403 {object} dto.APIResponse "Inactive account"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/login", defaultRequestTimeout)
	defer cancel()

	result, err := h.loginFlow.Login(ctx, &req, h.metadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Login failed", "LOGIN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}
