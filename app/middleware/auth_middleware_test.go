package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/Injera-Promo/app/services"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokenService struct {
	claims *services.StaffTokenClaims
	err    error
}

func (s stubTokenService) GenerateStaffToken(uint, models.StaffRole) (string, time.Time, error) {
	return "", time.Time{}, nil
}

func (s stubTokenService) ValidateStaffToken(string) (*services.StaffTokenClaims, error) {
	return s.claims, s.err
}

type stubStaffRepo struct {
	staff *models.StaffUser
	err   error
}

func (r stubStaffRepo) ByID(context.Context, uint) (*models.StaffUser, error) {
	return r.staff, r.err
}

func (r stubStaffRepo) ByPhone(context.Context, string) (*models.StaffUser, error) {
	return r.staff, r.err
}

func (r stubStaffRepo) Save(context.Context, *models.StaffUser) error { return nil }

func (r stubStaffRepo) UpdateLastLogin(context.Context, uint, time.Time) error { return nil }

func newAuthTestApp(m *AuthMiddleware) *fiber.App {
	app := fiber.New()
	app.Get("/me", m.Authenticate(), func(c fiber.Ctx) error {
		actor, _ := GetActorFromContext(c)
		return c.JSON(actor)
	})
	app.Get("/templates", m.Authenticate(), m.RequireRoles(models.StaffRoleAdmin), func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func authRequest(t *testing.T, app *fiber.App, path, header string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	claims := &services.StaffTokenClaims{StaffID: 4, Role: models.StaffRoleBranchManager, TokenID: "jti-1"}
	manager := &models.StaffUser{
		ID:       4,
		Name:     "Bole Manager",
		Role:     models.StaffRoleBranchManager,
		IsActive: utils.ToPtr(true),
		Branches: []models.PickupLocation{{ID: 1}},
	}

	t.Run("missing header", func(t *testing.T) {
		log, _ := logtest.NewNullLogger()
		app := newAuthTestApp(NewAuthMiddleware(stubTokenService{claims: claims}, stubStaffRepo{staff: manager}, log))
		assert.Equal(t, fiber.StatusUnauthorized, authRequest(t, app, "/me", "").StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		log, _ := logtest.NewNullLogger()
		app := newAuthTestApp(NewAuthMiddleware(stubTokenService{err: services.ErrTokenExpired}, stubStaffRepo{staff: manager}, log))
		assert.Equal(t, fiber.StatusUnauthorized, authRequest(t, app, "/me", "Bearer abc").StatusCode)
	})

	t.Run("staff lookup failure is logged", func(t *testing.T) {
		log, hook := logtest.NewNullLogger()
		app := newAuthTestApp(NewAuthMiddleware(stubTokenService{claims: claims}, stubStaffRepo{err: errors.New("connection refused")}, log))

		resp := authRequest(t, app, "/me", "Bearer abc")
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
		assert.Equal(t, "staff lookup failed during authentication", entry.Message)
		assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "connection refused")
		assert.Equal(t, uint(4), entry.Data["staff_id"])
	})

	t.Run("inactive staff", func(t *testing.T) {
		log, _ := logtest.NewNullLogger()
		inactive := *manager
		inactive.IsActive = utils.ToPtr(false)
		app := newAuthTestApp(NewAuthMiddleware(stubTokenService{claims: claims}, stubStaffRepo{staff: &inactive}, log))
		assert.Equal(t, fiber.StatusUnauthorized, authRequest(t, app, "/me", "Bearer abc").StatusCode)
	})

	t.Run("active staff passes with branch scope", func(t *testing.T) {
		log, hook := logtest.NewNullLogger()
		app := newAuthTestApp(NewAuthMiddleware(stubTokenService{claims: claims}, stubStaffRepo{staff: manager}, log))
		assert.Equal(t, fiber.StatusOK, authRequest(t, app, "/me", "Bearer abc").StatusCode)
		assert.Empty(t, hook.AllEntries())
	})

	t.Run("role check", func(t *testing.T) {
		log, _ := logtest.NewNullLogger()
		app := newAuthTestApp(NewAuthMiddleware(stubTokenService{claims: claims}, stubStaffRepo{staff: manager}, log))
		assert.Equal(t, fiber.StatusForbidden, authRequest(t, app, "/templates", "Bearer abc").StatusCode)
	})
}
