package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hkhalid/estatechain-server/internal/apperr"
	"github.com/hkhalid/estatechain-server/internal/models"
	"github.com/hkhalid/estatechain-server/internal/service"
)

// Handler wires the service layer to HTTP routes
type Handler struct {
	svc service.Service
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service) *Handler {
	return &Handler{svc: svc}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	// Public reads
	api.GET("/property/listed", h.ListListed)
	api.GET("/property/image/:tokenId", h.GetAssetImage)

	auth := api.Group("/", AuthMiddleware())
	{
		auth.POST("/property/request", h.Submit)
		auth.GET("/property/requests/:wallet", h.GetRequestsByWallet)
		auth.PUT("/property/request/:id", h.Edit)
		auth.DELETE("/property/request/:id", h.Withdraw)
		auth.GET("/property/owned/:wallet", h.ListOwned)
		auth.POST("/property/list/:tokenId", h.ListForSale)
		auth.POST("/property/buy/:tokenId", h.Buy)
		auth.GET("/property/history/:wallet", h.TransferHistory)

		auth.GET("/admin/property/requests/:wallet", h.GetPendingRequests)
		auth.POST("/admin/property/approve/:id", h.Approve)
		auth.POST("/admin/property/reject/:id", h.Reject)
		auth.GET("/admin/mint/attempts/:wallet", h.OpenMintAttempts)
	}
}

// Authentication handlers
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listing request lifecycle handlers
func (h *Handler) Submit(c *gin.Context) {
	var req models.SubmitListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	record, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RequestResponse{Status: "success", Request: record})
}

func (h *Handler) Edit(c *gin.Context) {
	var req models.UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	record, err := h.svc.Edit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RequestResponse{Status: "success", Request: record})
}

func (h *Handler) Withdraw(c *gin.Context) {
	var req models.WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	if err := h.svc.Withdraw(c.Request.Context(), c.Param("id"), req.Wallet); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "Request withdrawn"})
}

func (h *Handler) Approve(c *gin.Context) {
	var req models.WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	tokenID, err := h.svc.Approve(c.Request.Context(), c.Param("id"), req.Wallet)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ApproveResponse{Status: "success", TokenID: tokenID})
}

func (h *Handler) Reject(c *gin.Context) {
	var req models.WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	if err := h.svc.Reject(c.Request.Context(), c.Param("id"), req.Wallet); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "Request rejected"})
}

func (h *Handler) GetRequestsByWallet(c *gin.Context) {
	requests, err := h.svc.GetRequestsByWallet(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RequestsResponse{Status: "success", Requests: requests})
}

func (h *Handler) GetPendingRequests(c *gin.Context) {
	requests, err := h.svc.GetPendingRequests(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RequestsResponse{Status: "success", Requests: requests})
}

func (h *Handler) OpenMintAttempts(c *gin.Context) {
	attempts, err := h.svc.OpenMintAttempts(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MintAttemptsResponse{Status: "success", Attempts: attempts})
}

// Reconciliation handlers
func (h *Handler) ListOwned(c *gin.Context) {
	assets, err := h.svc.ListOwned(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OwnedAssetsResponse{Status: "success", Assets: assets})
}

func (h *Handler) ListListed(c *gin.Context) {
	assets, err := h.svc.ListListed(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OwnedAssetsResponse{Status: "success", Assets: assets})
}

func (h *Handler) GetAssetImage(c *gin.Context) {
	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	image, err := h.svc.GetAssetImage(c.Request.Context(), tokenID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ImageResponse{Status: "success", Image: image})
}

// Trade handlers
func (h *Handler) ListForSale(c *gin.Context) {
	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	var req models.ListForSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	if err := h.svc.ListForSale(c.Request.Context(), tokenID, req.Wallet, req.Price); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "Property listed for sale"})
}

func (h *Handler) Buy(c *gin.Context) {
	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	var req models.BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	if err := h.svc.Buy(c.Request.Context(), tokenID, req.Wallet); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "Property purchased"})
}

func (h *Handler) TransferHistory(c *gin.Context) {
	history, err := h.svc.TransferHistory(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.HistoryResponse{Status: "success", History: history})
}

func tokenIDParam(c *gin.Context) (int64, bool) {
	tokenID, err := strconv.ParseInt(c.Param("tokenId"), 10, 64)
	if err != nil || tokenID <= 0 {
		respondError(c, apperr.Validation("invalid token id %q", c.Param("tokenId")))
		return 0, false
	}
	return tokenID, true
}

// respondError maps the error taxonomy to HTTP status codes. Kinds are
// preserved in the body so clients can choose retry vs. terminal messaging.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrLedger):
		status = http.StatusBadGateway
	}

	code := "INTERNAL_ERROR"
	var ae *apperr.Error
	if errors.As(err, &ae) {
		code = ae.Code()
	}

	c.JSON(status, models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: err.Error(),
	})
}
