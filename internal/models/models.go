package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing request lifecycle states.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Mint attempt (outbox) states.
const (
	MintSubmitted = "submitted"
	MintCompleted = "completed"
	MintFailed    = "failed"
)

// User represents a registered user in the system
type User struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Email         string    `db:"email" json:"email"`
	Password      string    `db:"password" json:"-"` // Password hash, not returned in JSON
	Phone         string    `db:"phone" json:"phone"`
	WalletAddress string    `db:"wallet_address" json:"walletAddress"`
	Profile       string    `db:"profile" json:"profile"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// ListingRequest is a user's ask to tokenize a property. TokenID is set
// exactly once, by approval, and is non-nil iff Status is approved.
type ListingRequest struct {
	ID          string          `db:"id" json:"id"`
	UserAddress string          `db:"user_address" json:"userAddress"`
	Title       string          `db:"title" json:"title"`
	Location    string          `db:"location" json:"location"`
	Price       decimal.Decimal `db:"price" json:"price"` // ETH
	Description string          `db:"description" json:"description"`
	Image       string          `db:"image" json:"image"`
	TokenID     *int64          `db:"token_id" json:"tokenId,omitempty"`
	Status      string          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// AssetMetadata holds the off-ledger attributes of a minted token. It is
// written once at approval time and only read afterwards.
type AssetMetadata struct {
	TokenID     int64     `db:"token_id" json:"tokenId"`
	Image       string    `db:"image" json:"image"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// MintAttempt is the durable outbox row written before every ledger mint
// call. An open (submitted) attempt blocks re-approval of its request so a
// crash between mint and status write cannot mint a second token.
type MintAttempt struct {
	ID        string    `db:"id" json:"id"`
	RequestID string    `db:"request_id" json:"requestId"`
	State     string    `db:"state" json:"state"`
	TokenID   *int64    `db:"token_id" json:"tokenId,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// OwnedAsset is the composed read model returned by the reconciliation
// queries: ledger truth (owner, price, listed) joined with cached metadata.
type OwnedAsset struct {
	TokenID     int64           `json:"tokenId"`
	Title       string          `json:"title"`
	Location    string          `json:"location"`
	Price       decimal.Decimal `json:"price"` // ETH
	Owner       string          `json:"owner"`
	Listed      bool            `json:"isListed"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
}

// TransferRecord is one past ledger event involving a wallet.
type TransferRecord struct {
	Event   string          `json:"eventName"`
	TokenID int64           `json:"tokenId"`
	Price   decimal.Decimal `json:"price"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	TxHash  string          `json:"transactionHash"`
}
