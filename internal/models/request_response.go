package models

import "github.com/shopspring/decimal"

// Request models
type RegisterRequest struct {
	Name          string `json:"name" binding:"required,min=3"`
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=6"`
	Phone         string `json:"phone" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
	Profile       string `json:"profile"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SubmitListingRequest struct {
	Wallet      string          `json:"userAddress" binding:"required"`
	Title       string          `json:"title" binding:"required"`
	Location    string          `json:"location" binding:"required"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Image       string          `json:"image" binding:"required"`
}

// UpdateListingRequest carries the fields an owner may change on a pending
// or rejected request. Nil fields are left untouched.
type UpdateListingRequest struct {
	Wallet      string           `json:"userAddress" binding:"required"`
	Title       *string          `json:"title"`
	Location    *string          `json:"location"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Image       *string          `json:"image"`
}

type WalletRequest struct {
	Wallet string `json:"userAddress" binding:"required"`
}

type ListForSaleRequest struct {
	Wallet string          `json:"userAddress" binding:"required"`
	Price  decimal.Decimal `json:"price" binding:"required"`
}

type BuyRequest struct {
	Wallet string `json:"userAddress" binding:"required"`
}

// Response models
type AuthResponse struct {
	Status        string `json:"status"`
	UserID        string `json:"userId,omitempty"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
	Token         string `json:"token,omitempty"`
	ExpiresIn     int    `json:"expiresIn,omitempty"`
}

type RequestResponse struct {
	Status  string          `json:"status"`
	Request *ListingRequest `json:"request,omitempty"`
}

type RequestsResponse struct {
	Status   string           `json:"status"`
	Requests []ListingRequest `json:"requests"`
}

type ApproveResponse struct {
	Status  string `json:"status"`
	TokenID int64  `json:"tokenId"`
}

type OwnedAssetsResponse struct {
	Status string       `json:"status"`
	Assets []OwnedAsset `json:"assets"`
}

type ImageResponse struct {
	Status string `json:"status"`
	Image  string `json:"image"`
}

type HistoryResponse struct {
	Status  string           `json:"status"`
	History []TransferRecord `json:"history"`
}

type MintAttemptsResponse struct {
	Status   string        `json:"status"`
	Attempts []MintAttempt `json:"attempts"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
