package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hkhalid/estatechain-server/internal/api/testutils"
	"github.com/hkhalid/estatechain-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	registerReq := models.RegisterRequest{
		Name:          "New User",
		Email:         "newuser@example.com",
		Password:      "Password123",
		Phone:         "+61400000000",
		WalletAddress: testutils.UserWallet,
	}

	w := testutils.PerformRequest(testCtx.Router, "POST", "/api/auth/register", registerReq, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var registered models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	assert.Equal(t, "success", registered.Status)
	assert.NotEmpty(t, registered.UserID)
	assert.Equal(t, testutils.UserWallet, registered.WalletAddress)

	// Same wallet again is a validation failure
	registerReq.Email = "second@example.com"
	w = testutils.PerformRequest(testCtx.Router, "POST", "/api/auth/register", registerReq, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "VALIDATION_ERROR", errResp.Code)

	w = testutils.PerformRequest(testCtx.Router, "POST", "/api/auth/login", models.LoginRequest{
		Email:    "newuser@example.com",
		Password: "Password123",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var loggedIn models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loggedIn))
	assert.Equal(t, registered.UserID, loggedIn.UserID)
	assert.NotEmpty(t, loggedIn.Token)

	// The token it issued is accepted by protected routes
	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/property/owned/"+testutils.UserWallet,
		nil, testutils.AuthHeaders(loggedIn.Token))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	w := testutils.PerformRequest(testCtx.Router, "POST", "/api/auth/register", models.RegisterRequest{
		Name:          "New User",
		Email:         "newuser@example.com",
		Password:      "Password123",
		Phone:         "+61400000000",
		WalletAddress: testutils.UserWallet,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, "POST", "/api/auth/login", models.LoginRequest{
		Email:    "newuser@example.com",
		Password: "WrongPassword",
	}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "AUTHORIZATION_ERROR", errResp.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// No Authorization header
	w := testutils.PerformRequest(testCtx.Router, "GET", "/api/property/owned/"+testutils.UserWallet, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Malformed header
	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/property/owned/"+testutils.UserWallet,
		nil, map[string]string{"Authorization": "some-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token
	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/property/owned/"+testutils.UserWallet,
		nil, testutils.AuthHeaders("not.a.jwt"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Public reads stay open
	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/property/listed", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/property/image/1", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
