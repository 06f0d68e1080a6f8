package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/Injera-Promo/app/dto"
	"github.com/amirphl/Injera-Promo/app/services"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/repository"
	"github.com/amirphl/Injera-Promo/utils"
	"golang.org/x/crypto/bcrypt"
)

// StaffLoginFlow handles staff authentication
type StaffLoginFlow interface {
	Login(ctx context.Context, req *dto.StaffLoginRequest, metadata *ClientMetadata) (*dto.StaffLoginResponse, error)
}

// StaffLoginFlowImpl implements the staff login business flow
type StaffLoginFlowImpl struct {
	staffRepo    repository.StaffUserRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	clock        utils.Clock
}

// NewStaffLoginFlow creates a new staff login flow instance
func NewStaffLoginFlow(
	staffRepo repository.StaffUserRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	clock utils.Clock,
) StaffLoginFlow {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &StaffLoginFlowImpl{
		staffRepo:    staffRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		clock:        clock,
	}
}

// Login authenticates a staff member with phone and password
func (lf *StaffLoginFlowImpl) Login(ctx context.Context, req *dto.StaffLoginRequest, metadata *ClientMetadata) (*dto.StaffLoginResponse, error) {
	staff, err := lf.authenticate(ctx, req)
	if err != nil {
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		var actor *models.Actor
		if staff != nil {
			actor = staff.Actor()
		}
		_ = createAuditLog(ctx, lf.auditRepo, auditEntry{
			actor:       actor,
			action:      models.AuditActionStaffLoginFailed,
			description: errMsg,
			errorMsg:    &errMsg,
		}, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	token, expiresAt, err := lf.tokenService.GenerateStaffToken(staff.ID, staff.Role)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to issue access token", err)
	}

	now := lf.clock.Now()
	if err := lf.staffRepo.UpdateLastLogin(ctx, staff.ID, now); err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	_ = createAuditLog(ctx, lf.auditRepo, auditEntry{
		actor:       staff.Actor(),
		action:      models.AuditActionStaffLoginSuccess,
		description: fmt.Sprintf("Staff logged in successfully: %d", staff.ID),
		success:     true,
	}, metadata)

	return &dto.StaffLoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(expiresAt.Sub(now).Seconds()),
		ExpiresAt:   expiresAt,
		Staff:       ToStaffDTO(staff),
	}, nil
}

// authenticate returns the matched staff member even when the password check fails,
// so the failure can be attributed in the audit log.
func (lf *StaffLoginFlowImpl) authenticate(ctx context.Context, req *dto.StaffLoginRequest) (*models.StaffUser, error) {
	phone := utils.CanonicalStoragePhone(req.Phone)
	if phone == nil {
		return nil, ErrStaffNotFound
	}

	staff, err := lf.staffRepo.ByPhone(ctx, *phone)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, ErrStaffNotFound
	}
	if staff.IsActive != nil && !*staff.IsActive {
		return staff, ErrStaffInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)); err != nil {
		return staff, ErrIncorrectPassword
	}
	return staff, nil
}
