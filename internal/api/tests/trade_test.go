package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/hkhalid/estatechain-server/internal/api/testutils"
	"github.com/hkhalid/estatechain-server/internal/ledger"
	"github.com/hkhalid/estatechain-server/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListedEndpointIsPublic(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	priceWei := ledger.EthToWei(decimal.RequireFromString("2.5"))
	testCtx.Ledger.Seed(testutils.UserWallet, "Villa", "Lahore", priceWei, true)
	testCtx.Ledger.Seed(testutils.UserWallet, "Flat", "Karachi", priceWei, false)

	w := testutils.PerformRequest(testCtx.Router, "GET", "/api/property/listed", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.OwnedAssetsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Assets, 1)
	assert.Equal(t, int64(1), resp.Assets[0].TokenID)
	assert.True(t, resp.Assets[0].Listed)
}

func TestImageEndpoint(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	require.NoError(t, testCtx.Repo.CreateAssetMetadata(context.Background(), &models.AssetMetadata{
		TokenID: 3, Image: "villa.jpg",
	}))

	w := testutils.PerformRequest(testCtx.Router, "GET", "/api/property/image/3", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ImageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "villa.jpg", resp.Image)

	// Unknown token: success with an empty reference
	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/property/image/99", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Image)

	// Garbage token id
	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/property/image/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListForSaleAndBuyFlow(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	userToken := testutils.Token(t, testutils.UserWallet)
	otherToken := testutils.Token(t, testutils.OtherWallet)

	priceWei := ledger.EthToWei(decimal.RequireFromString("2.5"))
	id := testCtx.Ledger.Seed(testutils.UserWallet, "Villa", "Lahore", priceWei, false)

	// Non-owner cannot list it
	w := testutils.PerformRequest(testCtx.Router, "POST", fmt.Sprintf("/api/property/list/%d", id),
		models.ListForSaleRequest{Wallet: testutils.OtherWallet, Price: decimal.RequireFromString("3")},
		testutils.AuthHeaders(otherToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Buying an unlisted token conflicts
	w = testutils.PerformRequest(testCtx.Router, "POST", fmt.Sprintf("/api/property/buy/%d", id),
		models.BuyRequest{Wallet: testutils.OtherWallet}, testutils.AuthHeaders(otherToken))
	assert.Equal(t, http.StatusConflict, w.Code)

	// Owner lists, buyer buys
	w = testutils.PerformRequest(testCtx.Router, "POST", fmt.Sprintf("/api/property/list/%d", id),
		models.ListForSaleRequest{Wallet: testutils.UserWallet, Price: decimal.RequireFromString("3")},
		testutils.AuthHeaders(userToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutils.PerformRequest(testCtx.Router, "POST", fmt.Sprintf("/api/property/buy/%d", id),
		models.BuyRequest{Wallet: testutils.OtherWallet}, testutils.AuthHeaders(otherToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/property/listed", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listed models.OwnedAssetsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Empty(t, listed.Assets)
}

func TestTransferHistoryEndpoint(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	userToken := testutils.Token(t, testutils.UserWallet)
	adminToken := testutils.Token(t, testutils.AdminWallet)

	record := submitListing(t, testCtx, userToken, testutils.UserWallet)
	w := testutils.PerformRequest(testCtx.Router, "POST", "/api/admin/property/approve/"+record.ID,
		models.WalletRequest{Wallet: testutils.AdminWallet}, testutils.AuthHeaders(adminToken))
	require.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, "GET", "/api/property/history/"+testutils.UserWallet,
		nil, testutils.AuthHeaders(userToken))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, "PropertyMinted", resp.History[0].Event)
	assert.Equal(t, int64(1), resp.History[0].TokenID)
	assert.NotEmpty(t, resp.History[0].TxHash)
}

func TestLedgerOutageIs502(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	userToken := testutils.Token(t, testutils.UserWallet)

	testCtx.Ledger.Seed(testutils.UserWallet, "Villa", "Lahore",
		ledger.EthToWei(decimal.RequireFromString("2.5")), false)
	testCtx.Ledger.CounterErr = fmt.Errorf("connection refused")

	w := testutils.PerformRequest(testCtx.Router, "GET", "/api/property/owned/"+testutils.UserWallet,
		nil, testutils.AuthHeaders(userToken))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "LEDGER_ERROR", errResp.Code)
}
