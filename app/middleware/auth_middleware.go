// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/amirphl/Injera-Promo/app/dto"
	"github.com/amirphl/Injera-Promo/app/services"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

const ActorLocalsKey = "actor"

// AuthMiddleware handles JWT token validation for staff endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
	staffRepo    repository.StaffUserRepository
	logger       *logrus.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, staffRepo repository.StaffUserRepository, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		staffRepo:    staffRepo,
		logger:       logger,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: code,
		},
	})
}

// Authenticate validates the bearer token and loads the staff member's branch scope
// into the request locals
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthorized(c, "Access token is required", "MISSING_ACCESS_TOKEN")
		}

		claims, err := m.tokenService.ValidateStaffToken(token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				return unauthorized(c, "Access token has expired", "TOKEN_EXPIRED")
			case errors.Is(err, services.ErrTokenInvalid):
				return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
			default:
				return unauthorized(c, "Token validation failed", "TOKEN_VALIDATION_FAILED")
			}
		}

		// Branch assignments and the active flag are read fresh so revocations apply
		// before the token expires
		staff, err := m.staffRepo.ByID(c.Context(), claims.StaffID)
		if err != nil {
			m.logger.WithError(err).WithField("staff_id", claims.StaffID).Error("staff lookup failed during authentication")
			return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
				Success: false,
				Message: "Authentication failed",
				Error:   dto.ErrorDetail{Code: "AUTHENTICATION_FAILED"},
			})
		}
		if staff == nil {
			return unauthorized(c, "Staff member not found", "STAFF_NOT_FOUND")
		}
		if staff.IsActive != nil && !*staff.IsActive {
			return unauthorized(c, "Staff account is inactive", "STAFF_INACTIVE")
		}

		c.Locals(ActorLocalsKey, staff.Actor())
		c.Locals("staff_id", staff.ID)
		c.Locals("token_id", claims.TokenID)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// RequireRoles rejects authenticated staff whose role is not listed.
// Must run after Authenticate.
func (m *AuthMiddleware) RequireRoles(roles ...models.StaffRole) fiber.Handler {
	return func(c fiber.Ctx) error {
		actor, ok := GetActorFromContext(c)
		if !ok {
			return unauthorized(c, "Authentication required", "AUTHENTICATION_REQUIRED")
		}
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
			Success: false,
			Message: "Your role is not allowed to perform this action",
			Error:   dto.ErrorDetail{Code: "FORBIDDEN_ROLE"},
		})
	}
}

// GetActorFromContext returns the authenticated staff actor
func GetActorFromContext(c fiber.Ctx) (*models.Actor, bool) {
	actor, ok := c.Locals(ActorLocalsKey).(*models.Actor)
	return actor, ok && actor != nil
}
