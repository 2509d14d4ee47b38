package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EthereumClient talks JSON-RPC to the property contract. It performs no
// retries; every write waits for the mined receipt before returning.
type EthereumClient struct {
	eth      *ethclient.Client
	contract *bind.BoundContract
	abi      abi.ABI
	address  common.Address
	key      *ecdsa.PrivateKey
	chainID  *big.Int
}

// Dial connects to the node and binds the contract at contractAddress.
// operatorKey is the hex private key used to sign mint transactions; it may
// be empty for read-only use, in which case writes fail.
func Dial(rpcURL, contractAddress, operatorKey string, chainID int64) (*EthereumClient, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger node: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddress)
	}
	address := common.HexToAddress(contractAddress)

	var key *ecdsa.PrivateKey
	if operatorKey != "" {
		key, err = crypto.HexToECDSA(strings.TrimPrefix(operatorKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid operator key: %w", err)
		}
	}

	return &EthereumClient{
		eth:      eth,
		contract: bind.NewBoundContract(address, parsed, eth, eth, eth),
		abi:      parsed,
		address:  address,
		key:      key,
		chainID:  big.NewInt(chainID),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *EthereumClient) Close() {
	c.eth.Close()
}

func (c *EthereumClient) AssetCounter(ctx context.Context) (uint64, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getTokenCounter")
	if err != nil {
		return 0, fmt.Errorf("getTokenCounter: %w", err)
	}
	counter, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("getTokenCounter: unexpected return type %T", out[0])
	}
	return counter.Uint64(), nil
}

func (c *EthereumClient) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "ownerOf", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return "", fmt.Errorf("ownerOf(%d): %w", tokenID, err)
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("ownerOf(%d): unexpected return type %T", tokenID, out[0])
	}
	return strings.ToLower(owner.Hex()), nil
}

func (c *EthereumClient) AssetDetails(ctx context.Context, tokenID uint64) (AssetDetails, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getPropertyDetails", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return AssetDetails{}, fmt.Errorf("getPropertyDetails(%d): %w", tokenID, err)
	}
	if len(out) != 5 {
		return AssetDetails{}, fmt.Errorf("getPropertyDetails(%d): expected 5 values, got %d", tokenID, len(out))
	}
	return AssetDetails{
		Title:    out[0].(string),
		Location: out[1].(string),
		Price:    out[2].(*big.Int),
		Owner:    strings.ToLower(out[3].(common.Address).Hex()),
		Listed:   out[4].(bool),
	}, nil
}

func (c *EthereumClient) ContractOwner(ctx context.Context) (string, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "owner")
	if err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("owner: unexpected return type %T", out[0])
	}
	return strings.ToLower(owner.Hex()), nil
}

func (c *EthereumClient) Mint(ctx context.Context, owner, title, location string, priceWei *big.Int) (uint64, error) {
	if !common.IsHexAddress(owner) {
		return 0, fmt.Errorf("mint: invalid owner address %q", owner)
	}

	receipt, err := c.transact(ctx, nil, "mintProperty",
		common.HexToAddress(owner), title, location, priceWei)
	if err != nil {
		return 0, fmt.Errorf("mintProperty: %w", err)
	}

	tokenID, err := c.mintedTokenID(receipt)
	if err != nil {
		return 0, fmt.Errorf("mintProperty: %w", err)
	}
	return tokenID, nil
}

func (c *EthereumClient) ListForSale(ctx context.Context, tokenID uint64, priceWei *big.Int) error {
	_, err := c.transact(ctx, nil, "listPropertyForSale", new(big.Int).SetUint64(tokenID), priceWei)
	if err != nil {
		return fmt.Errorf("listPropertyForSale(%d): %w", tokenID, err)
	}
	return nil
}

func (c *EthereumClient) Buy(ctx context.Context, tokenID uint64, paymentWei *big.Int) error {
	_, err := c.transact(ctx, paymentWei, "buyProperty", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return fmt.Errorf("buyProperty(%d): %w", tokenID, err)
	}
	return nil
}

func (c *EthereumClient) TransfersInvolving(ctx context.Context, wallet string) ([]TransferEvent, error) {
	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		Addresses: []common.Address{c.address},
	})
	if err != nil {
		return nil, fmt.Errorf("filter logs: %w", err)
	}

	wallet = strings.ToLower(wallet)
	var events []TransferEvent
	for _, lg := range logs {
		ev, ok := c.decodeEvent(lg)
		if !ok {
			continue
		}
		if strings.EqualFold(ev.From, wallet) || strings.EqualFold(ev.To, wallet) {
			events = append(events, ev)
		}
	}
	return events, nil
}

// transact signs, sends and waits for one contract write. value may be nil.
func (c *EthereumClient) transact(ctx context.Context, value *big.Int, method string, params ...interface{}) (*types.Receipt, error) {
	if c.key == nil {
		return nil, fmt.Errorf("no operator key configured")
	}

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	opts.Value = value

	tx, err := c.contract.Transact(opts, method, params...)
	if err != nil {
		return nil, err
	}

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		// The transaction was broadcast; its fate is unknown.
		return nil, fmt.Errorf("%w: %s: %v", ErrTxUnconfirmed, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}

// mintedTokenID extracts the token id from the PropertyMinted event of a
// confirmed mint receipt. A receipt without the event is an error: the
// caller must not guess ids from counters.
func (c *EthereumClient) mintedTokenID(receipt *types.Receipt) (uint64, error) {
	mintedID := c.abi.Events["PropertyMinted"].ID
	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 || lg.Topics[0] != mintedID {
			continue
		}
		if len(lg.Topics) < 2 {
			return 0, fmt.Errorf("PropertyMinted event missing token id topic")
		}
		return new(big.Int).SetBytes(lg.Topics[1].Bytes()).Uint64(), nil
	}
	return 0, fmt.Errorf("receipt %s has no PropertyMinted event", receipt.TxHash.Hex())
}

func (c *EthereumClient) decodeEvent(lg types.Log) (TransferEvent, bool) {
	if len(lg.Topics) == 0 {
		return TransferEvent{}, false
	}

	topicAddr := func(i int) string {
		return strings.ToLower(common.BytesToAddress(lg.Topics[i].Bytes()).Hex())
	}
	topicID := func(i int) uint64 {
		return new(big.Int).SetBytes(lg.Topics[i].Bytes()).Uint64()
	}
	dataPrice := func(name string) *big.Int {
		vals, err := c.abi.Unpack(name, lg.Data)
		if err != nil || len(vals) == 0 {
			return nil
		}
		price, _ := vals[0].(*big.Int)
		return price
	}

	switch lg.Topics[0] {
	case c.abi.Events["PropertyMinted"].ID:
		if len(lg.Topics) < 3 {
			return TransferEvent{}, false
		}
		return TransferEvent{
			Event:   "PropertyMinted",
			TokenID: topicID(1),
			Price:   dataPrice("PropertyMinted"),
			To:      topicAddr(2),
			TxHash:  lg.TxHash.Hex(),
		}, true
	case c.abi.Events["PropertyListed"].ID:
		if len(lg.Topics) < 3 {
			return TransferEvent{}, false
		}
		return TransferEvent{
			Event:   "PropertyListed",
			TokenID: topicID(1),
			Price:   dataPrice("PropertyListed"),
			From:    topicAddr(2),
			TxHash:  lg.TxHash.Hex(),
		}, true
	case c.abi.Events["PropertySold"].ID:
		if len(lg.Topics) < 4 {
			return TransferEvent{}, false
		}
		return TransferEvent{
			Event:   "PropertySold",
			TokenID: topicID(1),
			Price:   dataPrice("PropertySold"),
			From:    topicAddr(2),
			To:      topicAddr(3),
			TxHash:  lg.TxHash.Hex(),
		}, true
	case c.abi.Events["Transfer"].ID:
		if len(lg.Topics) < 4 {
			return TransferEvent{}, false
		}
		return TransferEvent{
			Event:   "Transfer",
			TokenID: topicID(3),
			From:    topicAddr(1),
			To:      topicAddr(2),
			TxHash:  lg.TxHash.Hex(),
		}, true
	}
	return TransferEvent{}, false
}
