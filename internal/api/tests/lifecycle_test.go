package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/hkhalid/estatechain-server/internal/api/testutils"
	"github.com/hkhalid/estatechain-server/internal/ledger"
	"github.com/hkhalid/estatechain-server/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitListing(t *testing.T, testCtx *testutils.TestContext, token, wallet string) models.ListingRequest {
	t.Helper()

	w := testutils.PerformRequest(testCtx.Router, "POST", "/api/property/request", models.SubmitListingRequest{
		Wallet:      wallet,
		Title:       "Villa",
		Location:    "Lahore",
		Price:       decimal.RequireFromString("2.5"),
		Description: "Beachside villa with a private pool",
		Image:       "v1.jpg",
	}, testutils.AuthHeaders(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.RequestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Request)
	return *resp.Request
}

func TestListingRequestRoundTrip(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	userToken := testutils.Token(t, testutils.UserWallet)
	adminToken := testutils.Token(t, testutils.AdminWallet)

	record := submitListing(t, testCtx, userToken, testutils.UserWallet)
	assert.Equal(t, models.StatusPending, record.Status)
	assert.Nil(t, record.TokenID)

	// The owner sees it in their request list
	w := testutils.PerformRequest(testCtx.Router, "GET", "/api/property/requests/"+testutils.UserWallet,
		nil, testutils.AuthHeaders(userToken))
	require.Equal(t, http.StatusOK, w.Code)

	var list models.RequestsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Requests, 1)
	assert.Equal(t, record.ID, list.Requests[0].ID)

	// The admin queue sees it too
	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/admin/property/requests/"+testutils.AdminWallet,
		nil, testutils.AuthHeaders(adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Requests, 1)

	// Approval mints and reports the token id
	w = testutils.PerformRequest(testCtx.Router, "POST", "/api/admin/property/approve/"+record.ID,
		models.WalletRequest{Wallet: testutils.AdminWallet}, testutils.AuthHeaders(adminToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var approved models.ApproveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &approved))
	assert.Equal(t, int64(1), approved.TokenID)

	// The minted token shows up under the requester's wallet
	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/property/owned/"+testutils.UserWallet,
		nil, testutils.AuthHeaders(userToken))
	require.Equal(t, http.StatusOK, w.Code)

	var owned models.OwnedAssetsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &owned))
	require.Len(t, owned.Assets, 1)
	assert.Equal(t, int64(1), owned.Assets[0].TokenID)
	assert.Equal(t, "Villa", owned.Assets[0].Title)
	assert.Equal(t, "v1.jpg", owned.Assets[0].Image)
}

func TestApproveIsAdminOnly(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	userToken := testutils.Token(t, testutils.UserWallet)

	record := submitListing(t, testCtx, userToken, testutils.UserWallet)

	w := testutils.PerformRequest(testCtx.Router, "POST", "/api/admin/property/approve/"+record.ID,
		models.WalletRequest{Wallet: testutils.UserWallet}, testutils.AuthHeaders(userToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "AUTHORIZATION_ERROR", errResp.Code)
}

func TestApproveUnknownRequestIs404(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	adminToken := testutils.Token(t, testutils.AdminWallet)

	w := testutils.PerformRequest(testCtx.Router, "POST", "/api/admin/property/approve/no-such-id",
		models.WalletRequest{Wallet: testutils.AdminWallet}, testutils.AuthHeaders(adminToken))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRejectThenEditOverHTTP(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	userToken := testutils.Token(t, testutils.UserWallet)
	adminToken := testutils.Token(t, testutils.AdminWallet)

	record := submitListing(t, testCtx, userToken, testutils.UserWallet)

	w := testutils.PerformRequest(testCtx.Router, "POST", "/api/admin/property/reject/"+record.ID,
		models.WalletRequest{Wallet: testutils.AdminWallet}, testutils.AuthHeaders(adminToken))
	require.Equal(t, http.StatusOK, w.Code)

	// Editing a rejected request resets it to pending
	newPrice := decimal.RequireFromString("1.8")
	w = testutils.PerformRequest(testCtx.Router, "PUT", "/api/property/request/"+record.ID,
		models.UpdateListingRequest{Wallet: testutils.UserWallet, Price: &newPrice},
		testutils.AuthHeaders(userToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.RequestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusPending, resp.Request.Status)
	assert.True(t, resp.Request.Price.Equal(newPrice))
	assert.Equal(t, "Villa", resp.Request.Title, "untouched fields survive the edit")
}

func TestEditByNonOwnerIs403(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	userToken := testutils.Token(t, testutils.UserWallet)
	otherToken := testutils.Token(t, testutils.OtherWallet)

	record := submitListing(t, testCtx, userToken, testutils.UserWallet)

	title := "Stolen"
	w := testutils.PerformRequest(testCtx.Router, "PUT", "/api/property/request/"+record.ID,
		models.UpdateListingRequest{Wallet: testutils.OtherWallet, Title: &title},
		testutils.AuthHeaders(otherToken))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWithdrawApprovedIs409(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	userToken := testutils.Token(t, testutils.UserWallet)
	adminToken := testutils.Token(t, testutils.AdminWallet)

	record := submitListing(t, testCtx, userToken, testutils.UserWallet)

	w := testutils.PerformRequest(testCtx.Router, "POST", "/api/admin/property/approve/"+record.ID,
		models.WalletRequest{Wallet: testutils.AdminWallet}, testutils.AuthHeaders(adminToken))
	require.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, "DELETE", "/api/property/request/"+record.ID,
		models.WalletRequest{Wallet: testutils.UserWallet}, testutils.AuthHeaders(userToken))
	assert.Equal(t, http.StatusConflict, w.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "INVALID_STATE", errResp.Code)
}

func TestWithdrawPendingDeletes(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	userToken := testutils.Token(t, testutils.UserWallet)

	record := submitListing(t, testCtx, userToken, testutils.UserWallet)

	w := testutils.PerformRequest(testCtx.Router, "DELETE", "/api/property/request/"+record.ID,
		models.WalletRequest{Wallet: testutils.UserWallet}, testutils.AuthHeaders(userToken))
	require.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/property/requests/"+testutils.UserWallet,
		nil, testutils.AuthHeaders(userToken))
	require.Equal(t, http.StatusOK, w.Code)

	var list models.RequestsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list.Requests)
}

// TestConcurrentApprovalsOverHTTP drives the approve endpoint from many
// goroutines at once; exactly one may succeed, the rest must see 409.
func TestConcurrentApprovalsOverHTTP(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	userToken := testutils.Token(t, testutils.UserWallet)
	adminToken := testutils.Token(t, testutils.AdminWallet)

	record := submitListing(t, testCtx, userToken, testutils.UserWallet)

	const attempts = 8
	codes := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := testutils.PerformRequest(testCtx.Router, "POST",
				fmt.Sprintf("/api/admin/property/approve/%s", record.ID),
				models.WalletRequest{Wallet: testutils.AdminWallet},
				testutils.AuthHeaders(adminToken))
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflict)
}

func TestOpenMintAttemptsEndpoint(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	userToken := testutils.Token(t, testutils.UserWallet)
	adminToken := testutils.Token(t, testutils.AdminWallet)

	record := submitListing(t, testCtx, userToken, testutils.UserWallet)

	// A mint that dies unconfirmed leaves its attempt visible to the admin
	testCtx.Ledger.MintErr = fmt.Errorf("%w: nonce gap", ledger.ErrTxUnconfirmed)
	w := testutils.PerformRequest(testCtx.Router, "POST", "/api/admin/property/approve/"+record.ID,
		models.WalletRequest{Wallet: testutils.AdminWallet}, testutils.AuthHeaders(adminToken))
	require.Equal(t, http.StatusBadGateway, w.Code)

	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/admin/mint/attempts/"+testutils.AdminWallet,
		nil, testutils.AuthHeaders(adminToken))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.MintAttemptsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Attempts, 1)
	assert.Equal(t, record.ID, resp.Attempts[0].RequestID)
	assert.Equal(t, models.MintSubmitted, resp.Attempts[0].State)

	// Non-admins cannot read the outbox
	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/admin/mint/attempts/"+testutils.UserWallet,
		nil, testutils.AuthHeaders(userToken))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
