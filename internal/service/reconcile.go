package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hkhalid/estatechain-server/internal/apperr"
	"github.com/hkhalid/estatechain-server/internal/ledger"
	"github.com/hkhalid/estatechain-server/internal/models"
	"github.com/shopspring/decimal"
)

// ListOwned answers "which tokens does this wallet hold" from ledger truth:
// every token id from 1 to the counter is checked against its current
// on-chain owner, then decorated with cached metadata. A single token's
// read failure skips that token; only a failed counter query (or every
// single token failing) aborts the scan.
func (s *DefaultService) ListOwned(ctx context.Context, wallet string) ([]models.OwnedAsset, error) {
	if !common.IsHexAddress(wallet) {
		return nil, apperr.Validation("invalid wallet address %q", wallet)
	}

	return s.scanAssets(ctx, func(owner string, details ledger.AssetDetails) bool {
		return strings.EqualFold(owner, wallet)
	})
}

// ListListed returns every token currently flagged for sale, any owner.
func (s *DefaultService) ListListed(ctx context.Context) ([]models.OwnedAsset, error) {
	return s.scanAssets(ctx, func(owner string, details ledger.AssetDetails) bool {
		return details.Listed
	})
}

// scanAssets walks token ids 1..counter in ascending order and keeps the
// assets the filter accepts. Output order is deterministic by token id.
func (s *DefaultService) scanAssets(ctx context.Context, keep func(owner string, details ledger.AssetDetails) bool) ([]models.OwnedAsset, error) {
	counter, err := s.ledger.AssetCounter(ctx)
	if err != nil {
		return nil, apperr.Ledger("failed to read asset counter", err)
	}

	assets := []models.OwnedAsset{}
	var failed uint64
	var lastErr error

	for id := uint64(1); id <= counter; id++ {
		owner, err := s.ledger.OwnerOf(ctx, id)
		if err != nil {
			// Never-minted ids and transient faults alike: skip.
			failed++
			lastErr = err
			continue
		}

		details, err := s.ledger.AssetDetails(ctx, id)
		if err != nil {
			failed++
			lastErr = err
			continue
		}

		if !keep(owner, details) {
			continue
		}

		asset := models.OwnedAsset{
			TokenID:  int64(id),
			Title:    details.Title,
			Location: details.Location,
			Price:    ledger.WeiToEth(details.Price),
			Owner:    owner,
			Listed:   details.Listed,
		}

		// Metadata decorates; its absence or failure never drops the asset.
		if meta, err := s.repo.GetAssetMetadata(ctx, int64(id)); err == nil && meta != nil {
			asset.Image = meta.Image
			asset.Description = meta.Description
		}

		assets = append(assets, asset)
	}

	if counter > 0 && failed == counter {
		return nil, apperr.Ledger("every asset lookup failed", lastErr)
	}
	if failed > 0 {
		s.log.Warn("asset scan skipped %d of %d tokens, last error: %v", failed, counter, lastErr)
	}

	return assets, nil
}

// GetAssetImage returns the cached image reference for a token, or the
// empty string if none was ever cached.
func (s *DefaultService) GetAssetImage(ctx context.Context, tokenID int64) (string, error) {
	meta, err := s.repo.GetAssetMetadata(ctx, tokenID)
	if err != nil {
		return "", fmt.Errorf("error getting asset metadata: %w", err)
	}
	if meta == nil {
		return "", nil
	}
	return meta.Image, nil
}

// ListForSale flags a token the caller owns as purchasable.
func (s *DefaultService) ListForSale(ctx context.Context, tokenID int64, wallet string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return apperr.Validation("price must be greater than zero")
	}

	owner, err := s.ledger.OwnerOf(ctx, uint64(tokenID))
	if err != nil {
		return apperr.Ledger(fmt.Sprintf("failed to read owner of token %d", tokenID), err)
	}
	if !strings.EqualFold(owner, wallet) {
		return apperr.Authorization("wallet %s does not own token %d", wallet, tokenID)
	}

	if err := s.ledger.ListForSale(ctx, uint64(tokenID), ledger.EthToWei(price)); err != nil {
		return apperr.Ledger(fmt.Sprintf("failed to list token %d", tokenID), err)
	}
	return nil
}

// Buy purchases a listed token at the exact price the ledger reports, so a
// price change between display and purchase never under- or over-pays.
func (s *DefaultService) Buy(ctx context.Context, tokenID int64, wallet string) error {
	details, err := s.ledger.AssetDetails(ctx, uint64(tokenID))
	if err != nil {
		return apperr.Ledger(fmt.Sprintf("failed to read token %d", tokenID), err)
	}
	if !details.Listed {
		return apperr.InvalidState("token %d is not listed for sale", tokenID)
	}
	if strings.EqualFold(details.Owner, wallet) {
		return apperr.InvalidState("wallet %s already owns token %d", wallet, tokenID)
	}

	if err := s.ledger.Buy(ctx, uint64(tokenID), details.Price); err != nil {
		return apperr.Ledger(fmt.Sprintf("failed to buy token %d", tokenID), err)
	}
	return nil
}

// TransferHistory returns the past ledger events involving a wallet.
func (s *DefaultService) TransferHistory(ctx context.Context, wallet string) ([]models.TransferRecord, error) {
	if !common.IsHexAddress(wallet) {
		return nil, apperr.Validation("invalid wallet address %q", wallet)
	}

	events, err := s.ledger.TransfersInvolving(ctx, wallet)
	if err != nil {
		return nil, apperr.Ledger("failed to read transfer events", err)
	}

	history := make([]models.TransferRecord, 0, len(events))
	for _, ev := range events {
		history = append(history, models.TransferRecord{
			Event:   ev.Event,
			TokenID: int64(ev.TokenID),
			Price:   ledger.WeiToEth(ev.Price),
			From:    ev.From,
			To:      ev.To,
			TxHash:  ev.TxHash,
		})
	}
	return history, nil
}
