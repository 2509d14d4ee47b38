package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hkhalid/estatechain-server/internal/api/testutils"
	"github.com/hkhalid/estatechain-server/internal/apperr"
	"github.com/hkhalid/estatechain-server/internal/models"
	"github.com/hkhalid/estatechain-server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, svc service.Service, email, wallet string) *models.AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:          "Hamza",
		Email:         email,
		Password:      "hunter22",
		Phone:         "+61400000000",
		WalletAddress: wallet,
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterNormalizesIdentity(t *testing.T) {
	svc, repo, _ := setup(t)

	resp := register(t, svc, "Hamza@Example.COM", "0x"+strings.ToUpper(testutils.UserWallet[2:]))
	assert.Equal(t, "success", resp.Status)
	assert.NotEmpty(t, resp.UserID)
	assert.Equal(t, "hamza@example.com", resp.Email)
	assert.Equal(t, strings.ToLower(testutils.UserWallet), resp.WalletAddress)

	user, err := repo.GetUserByWallet(context.Background(), testutils.UserWallet)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEqual(t, "hunter22", user.Password, "password must be stored hashed")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	register(t, svc, "hamza@example.com", testutils.UserWallet)

	_, err := svc.Register(ctx, models.RegisterRequest{
		Name: "Other", Email: "other@example.com", Password: "pw",
		WalletAddress: testutils.UserWallet,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation, "duplicate wallet")

	_, err = svc.Register(ctx, models.RegisterRequest{
		Name: "Other", Email: "HAMZA@example.com", Password: "pw",
		WalletAddress: testutils.OtherWallet,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation, "duplicate email, case-insensitive")

	_, err = svc.Register(ctx, models.RegisterRequest{
		Name: "Other", Email: "third@example.com", Password: "pw",
		WalletAddress: "not-an-address",
	})
	assert.ErrorIs(t, err, apperr.ErrValidation, "malformed wallet")
}

func TestLoginIssuesWalletScopedToken(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	register(t, svc, "hamza@example.com", testutils.UserWallet)

	resp, err := svc.Login(ctx, models.LoginRequest{Email: "hamza@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, 24*60*60, resp.ExpiresIn)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret-key"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims["sub"])
	assert.Equal(t, strings.ToLower(testutils.UserWallet), claims["wallet"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	register(t, svc, "hamza@example.com", testutils.UserWallet)

	_, err := svc.Login(ctx, models.LoginRequest{Email: "hamza@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}
