package services

import (
	"testing"
	"time"

	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

func createTestTokenService(clock utils.Clock) (TokenService, error) {
	return NewTokenService(
		15*time.Minute,
		"test-issuer",
		"test-audience",
		false, // useRSAKeys
		"",    // privateKeyPEM
		"",    // publicKeyPEM
		testSecret,
		clock,
	)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		ttl         time.Duration
		useRSAKeys  bool
		secretKey   string
		expectError bool
	}{
		{name: "valid symmetric key configuration", ttl: 15 * time.Minute, secretKey: testSecret},
		{name: "missing secret key", ttl: 15 * time.Minute, expectError: true},
		{name: "non-positive ttl", ttl: 0, secretKey: testSecret, expectError: true},
		{name: "rsa without keys", ttl: 15 * time.Minute, useRSAKeys: true, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(tt.ttl, "iss", "aud", tt.useRSAKeys, "", "", tt.secretKey, nil)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestGenerateAndValidateStaffToken(t *testing.T) {
	service, err := createTestTokenService(nil)
	require.NoError(t, err)

	token, expiresAt, err := service.GenerateStaffToken(42, models.StaffRoleBranchManager)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(utils.UTCNow()))

	claims, err := service.ValidateStaffToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.StaffID)
	assert.Equal(t, models.StaffRoleBranchManager, claims.Role)
	assert.NotEmpty(t, claims.TokenID)
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestValidateStaffToken_Expired(t *testing.T) {
	issuedAt := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	issuer, err := createTestTokenService(utils.FixedClock{At: issuedAt})
	require.NoError(t, err)

	token, _, err := issuer.GenerateStaffToken(7, models.StaffRoleAdmin)
	require.NoError(t, err)

	later, err := createTestTokenService(utils.FixedClock{At: issuedAt.Add(time.Hour)})
	require.NoError(t, err)

	claims, err := later.ValidateStaffToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Nil(t, claims)
}

func TestValidateStaffToken_Invalid(t *testing.T) {
	service, err := createTestTokenService(nil)
	require.NoError(t, err)

	other, err := NewTokenService(15*time.Minute, "test-issuer", "other-audience", false, "", "", testSecret, nil)
	require.NoError(t, err)
	foreignAudience, _, err := other.GenerateStaffToken(1, models.StaffRoleAdmin)
	require.NoError(t, err)

	wrongKey, err := NewTokenService(15*time.Minute, "test-issuer", "test-audience", false, "", "", "another-secret-key-for-jwt-signing-xx", nil)
	require.NoError(t, err)
	foreignKey, _, err := wrongKey.GenerateStaffToken(1, models.StaffRoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "garbage", token: "not.a.jwt"},
		{name: "wrong audience", token: foreignAudience},
		{name: "wrong signing key", token: foreignKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateStaffToken(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
			assert.Nil(t, claims)
		})
	}
}
