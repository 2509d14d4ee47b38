package testutils

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/hkhalid/estatechain-server/internal/ledger"
)

// FakeLedger is an in-memory ledger.Client with injectable failures. It
// mimics the contract's shape: a monotone 1-based token counter, one owner
// per token, and per-token listed flags.
type FakeLedger struct {
	mu sync.Mutex

	Owner    string // contract owner (the admin wallet)
	Operator string // address writes are signed with; buys transfer here

	counter   uint64
	owners    map[uint64]string
	details   map[uint64]ledger.AssetDetails
	events    []ledger.TransferEvent
	mintCalls int

	// Injectable failures
	CounterErr error
	MintErr    error
	OwnerErr   map[uint64]error
	DetailsErr map[uint64]error
}

func NewFakeLedger(contractOwner string) *FakeLedger {
	return &FakeLedger{
		Owner:      strings.ToLower(contractOwner),
		Operator:   strings.ToLower(contractOwner),
		owners:     make(map[uint64]string),
		details:    make(map[uint64]ledger.AssetDetails),
		OwnerErr:   make(map[uint64]error),
		DetailsErr: make(map[uint64]error),
	}
}

// Seed mints a token directly, bypassing failure injection. Returns its id.
func (f *FakeLedger) Seed(owner, title, location string, priceWei *big.Int, listed bool) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counter++
	id := f.counter
	f.owners[id] = strings.ToLower(owner)
	f.details[id] = ledger.AssetDetails{
		Title:    title,
		Location: location,
		Price:    priceWei,
		Owner:    strings.ToLower(owner),
		Listed:   listed,
	}
	return id
}

// SkipID burns a token id so scans see a gap (a never-minted id).
func (f *FakeLedger) SkipID() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
}

// MintCalls reports how many times Mint was invoked, successful or not.
func (f *FakeLedger) MintCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mintCalls
}

func (f *FakeLedger) AssetCounter(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CounterErr != nil {
		return 0, f.CounterErr
	}
	return f.counter, nil
}

func (f *FakeLedger) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.OwnerErr[tokenID]; err != nil {
		return "", err
	}
	owner, ok := f.owners[tokenID]
	if !ok {
		return "", fmt.Errorf("ownerOf(%d): no such token", tokenID)
	}
	return owner, nil
}

func (f *FakeLedger) AssetDetails(ctx context.Context, tokenID uint64) (ledger.AssetDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.DetailsErr[tokenID]; err != nil {
		return ledger.AssetDetails{}, err
	}
	details, ok := f.details[tokenID]
	if !ok {
		return ledger.AssetDetails{}, fmt.Errorf("getPropertyDetails(%d): no such token", tokenID)
	}
	return details, nil
}

func (f *FakeLedger) ContractOwner(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CounterErr != nil {
		return "", f.CounterErr
	}
	return f.Owner, nil
}

func (f *FakeLedger) Mint(ctx context.Context, owner, title, location string, priceWei *big.Int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mintCalls++
	if f.MintErr != nil {
		return 0, f.MintErr
	}

	f.counter++
	id := f.counter
	f.owners[id] = strings.ToLower(owner)
	f.details[id] = ledger.AssetDetails{
		Title:    title,
		Location: location,
		Price:    priceWei,
		Owner:    strings.ToLower(owner),
		Listed:   false,
	}
	f.events = append(f.events, ledger.TransferEvent{
		Event:   "PropertyMinted",
		TokenID: id,
		Price:   priceWei,
		To:      strings.ToLower(owner),
		TxHash:  fmt.Sprintf("0xmint%d", id),
	})
	return id, nil
}

func (f *FakeLedger) ListForSale(ctx context.Context, tokenID uint64, priceWei *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	details, ok := f.details[tokenID]
	if !ok {
		return fmt.Errorf("listPropertyForSale(%d): no such token", tokenID)
	}
	details.Listed = true
	details.Price = priceWei
	f.details[tokenID] = details

	f.events = append(f.events, ledger.TransferEvent{
		Event:   "PropertyListed",
		TokenID: tokenID,
		Price:   priceWei,
		From:    details.Owner,
		TxHash:  fmt.Sprintf("0xlist%d", tokenID),
	})
	return nil
}

func (f *FakeLedger) Buy(ctx context.Context, tokenID uint64, paymentWei *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	details, ok := f.details[tokenID]
	if !ok {
		return fmt.Errorf("buyProperty(%d): no such token", tokenID)
	}
	if !details.Listed {
		return fmt.Errorf("buyProperty(%d): not listed", tokenID)
	}
	if details.Price != nil && paymentWei.Cmp(details.Price) < 0 {
		return fmt.Errorf("buyProperty(%d): insufficient payment", tokenID)
	}

	seller := details.Owner
	details.Owner = f.Operator
	details.Listed = false
	f.details[tokenID] = details
	f.owners[tokenID] = f.Operator

	f.events = append(f.events, ledger.TransferEvent{
		Event:   "PropertySold",
		TokenID: tokenID,
		Price:   paymentWei,
		From:    seller,
		To:      f.Operator,
		TxHash:  fmt.Sprintf("0xsold%d", tokenID),
	})
	return nil
}

func (f *FakeLedger) TransfersInvolving(ctx context.Context, wallet string) ([]ledger.TransferEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []ledger.TransferEvent
	for _, ev := range f.events {
		if strings.EqualFold(ev.From, wallet) || strings.EqualFold(ev.To, wallet) {
			out = append(out, ev)
		}
	}
	return out, nil
}
