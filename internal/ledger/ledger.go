package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrTxUnconfirmed marks a write whose transaction was sent but whose
// receipt could not be read: the operation may or may not have taken
// effect. Callers must not treat such a failure as "definitely not done".
var ErrTxUnconfirmed = errors.New("ledger transaction unconfirmed")

// IsUnconfirmed reports whether err stems from an indeterminate write.
func IsUnconfirmed(err error) bool {
	return errors.Is(err, ErrTxUnconfirmed)
}

// AssetDetails mirrors the on-chain attributes of a property token.
// Price is in wei.
type AssetDetails struct {
	Title    string
	Location string
	Price    *big.Int
	Owner    string
	Listed   bool
}

// TransferEvent is one past contract event touching a token.
type TransferEvent struct {
	Event   string // "PropertyMinted", "PropertyListed", "PropertySold" or "Transfer"
	TokenID uint64
	Price   *big.Int // nil when the event carries no price
	From    string
	To      string
	TxHash  string
}

// Client is the read/write adapter to the property contract. The ledger is
// the only authority on ownership; implementations never retry, retry
// policy belongs to the caller. All write operations block until the
// transaction is mined and its receipt confirmed.
type Client interface {
	// AssetCounter returns the highest token id ever minted. Token ids are
	// sequential starting at 1.
	AssetCounter(ctx context.Context) (uint64, error)

	// OwnerOf returns the current owner of a token as a lowercase hex address.
	OwnerOf(ctx context.Context, tokenID uint64) (string, error)

	// AssetDetails reads the full on-chain record of a token.
	AssetDetails(ctx context.Context, tokenID uint64) (AssetDetails, error)

	// ContractOwner returns the contract deployer/owner address (lowercase).
	ContractOwner(ctx context.Context) (string, error)

	// Mint creates a new token owned by owner and returns its id, taken
	// from the PropertyMinted event in the confirmed receipt.
	Mint(ctx context.Context, owner, title, location string, priceWei *big.Int) (uint64, error)

	// ListForSale flags a token as purchasable at the given wei price.
	ListForSale(ctx context.Context, tokenID uint64, priceWei *big.Int) error

	// Buy purchases a listed token, attaching paymentWei as transaction value.
	Buy(ctx context.Context, tokenID uint64, paymentWei *big.Int) error

	// TransfersInvolving returns all past contract events in which the
	// wallet appears as minter, seller, buyer or transfer party.
	TransfersInvolving(ctx context.Context, wallet string) ([]TransferEvent, error)
}

// EthToWei converts an ETH-denominated decimal price to wei.
func EthToWei(eth decimal.Decimal) *big.Int {
	return eth.Shift(18).BigInt()
}

// WeiToEth converts a wei amount to an ETH-denominated decimal.
func WeiToEth(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}
