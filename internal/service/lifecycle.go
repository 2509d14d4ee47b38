package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hkhalid/estatechain-server/internal/apperr"
	"github.com/hkhalid/estatechain-server/internal/ledger"
	"github.com/hkhalid/estatechain-server/internal/models"
	"github.com/hkhalid/estatechain-server/internal/repository"
	"github.com/shopspring/decimal"
)

// Submit validates and stores a new listing request with status pending.
func (s *DefaultService) Submit(ctx context.Context, req models.SubmitListingRequest) (*models.ListingRequest, error) {
	if !common.IsHexAddress(req.Wallet) {
		return nil, apperr.Validation("invalid wallet address %q", req.Wallet)
	}
	if err := validateListing(req.Title, req.Location, req.Price, req.Description, req.Image); err != nil {
		return nil, err
	}

	record := &models.ListingRequest{
		UserAddress: strings.ToLower(req.Wallet),
		Title:       req.Title,
		Location:    req.Location,
		Price:       req.Price,
		Description: req.Description,
		Image:       req.Image,
	}

	if err := s.repo.CreateListingRequest(ctx, record); err != nil {
		return nil, fmt.Errorf("error creating listing request: %w", err)
	}

	return record, nil
}

// Edit applies the provided fields to a pending or rejected request owned
// by the caller and resets it to pending.
func (s *DefaultService) Edit(ctx context.Context, requestID string, req models.UpdateListingRequest) (*models.ListingRequest, error) {
	record, err := s.loadOwnedEditable(ctx, requestID, req.Wallet)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		record.Title = *req.Title
	}
	if req.Location != nil {
		record.Location = *req.Location
	}
	if req.Price != nil {
		record.Price = *req.Price
	}
	if req.Description != nil {
		record.Description = *req.Description
	}
	if req.Image != nil {
		record.Image = *req.Image
	}

	if err := validateListing(record.Title, record.Location, record.Price, record.Description, record.Image); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateListingRequest(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("error updating listing request: %w", err)
	}
	if !updated {
		// The record was approved or removed between the read and the
		// conditional write.
		return nil, s.editConflict(ctx, requestID)
	}

	return record, nil
}

// Withdraw deletes a pending or rejected request owned by the caller. A
// request with an open mint attempt cannot be withdrawn: deleting it would
// cascade away the attempt row, the only trace of a possibly-minted token.
func (s *DefaultService) Withdraw(ctx context.Context, requestID, wallet string) error {
	if _, err := s.loadOwnedEditable(ctx, requestID, wallet); err != nil {
		return err
	}

	open, err := s.repo.GetOpenMintAttempt(ctx, requestID)
	if err != nil {
		return fmt.Errorf("error checking mint attempts: %w", err)
	}
	if open != nil {
		return apperr.InvalidState("request %s has an unresolved mint attempt %s", requestID, open.ID)
	}

	deleted, err := s.repo.DeleteListingRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("error deleting listing request: %w", err)
	}
	if !deleted {
		return s.editConflict(ctx, requestID)
	}

	return nil
}

// Approve mints a ledger token for a pending request and records the token
// id on the request. The pending precondition is re-checked atomically at
// write time, so concurrent approvals (or an approve racing a reject) end
// with exactly one winner. A durable mint attempt is written before the
// ledger call so a crash in the gap cannot lead to a second mint.
func (s *DefaultService) Approve(ctx context.Context, requestID, approverWallet string) (int64, error) {
	if err := s.requireAdmin(ctx, approverWallet); err != nil {
		return 0, err
	}

	record, err := s.repo.GetListingRequest(ctx, requestID)
	if err != nil {
		return 0, fmt.Errorf("error getting listing request: %w", err)
	}
	if record == nil {
		return 0, apperr.NotFound("no listing request with id %s", requestID)
	}
	if record.Status != models.StatusPending {
		return 0, apperr.InvalidState("request %s is %s, not pending", requestID, record.Status)
	}

	open, err := s.repo.GetOpenMintAttempt(ctx, requestID)
	if err != nil {
		return 0, fmt.Errorf("error checking mint attempts: %w", err)
	}
	if open != nil {
		// Either a concurrent approval in flight or an earlier one that
		// died with its transaction unconfirmed. Both block a new mint.
		return 0, apperr.InvalidState("request %s has an unresolved mint attempt %s", requestID, open.ID)
	}

	attempt := &models.MintAttempt{RequestID: requestID, State: models.MintSubmitted}
	if err := s.repo.CreateMintAttempt(ctx, attempt); err != nil {
		if repository.IsUniqueViolation(err) {
			// Another approval holds the open attempt slot.
			return 0, apperr.InvalidState("an approval for request %s is already in progress", requestID)
		}
		return 0, fmt.Errorf("error recording mint attempt: %w", err)
	}

	tokenID, err := s.ledger.Mint(ctx, record.UserAddress, record.Title, record.Location, ledger.EthToWei(record.Price))
	if err != nil {
		// A definitely-rejected transaction frees the attempt for a safe
		// retry. An unconfirmed one stays open: the token may exist, and
		// only reconciliation may close it.
		if ledger.IsUnconfirmed(err) {
			s.log.Warn("mint for request %s unconfirmed; attempt %s left open", requestID, attempt.ID)
		} else {
			s.closeAttempt(ctx, attempt.ID, models.MintFailed, nil)
		}
		return 0, apperr.Ledger("mint failed", err)
	}

	tid := int64(tokenID)

	approved, err := s.repo.MarkRequestApproved(ctx, requestID, tid)
	if err != nil {
		// Minted but not persisted: keep the attempt open with the token
		// id so the gap is visible and repairable.
		s.closeAttempt(ctx, attempt.ID, models.MintSubmitted, &tid)
		return 0, fmt.Errorf("minted token %d but failed to persist approval: %w", tid, err)
	}
	if !approved {
		// Lost the race after minting; the token is orphaned until
		// reconciled via the open attempt.
		s.log.Warn("request %s left pending state during approval; token %d recorded in attempt %s", requestID, tid, attempt.ID)
		s.closeAttempt(ctx, attempt.ID, models.MintSubmitted, &tid)
		return 0, apperr.InvalidState("request %s is no longer pending", requestID)
	}

	meta := &models.AssetMetadata{
		TokenID:     tid,
		Image:       record.Image,
		Description: record.Description,
	}
	if err := s.repo.CreateAssetMetadata(ctx, meta); err != nil {
		// Approval is final; the open attempt flags the missing metadata.
		s.closeAttempt(ctx, attempt.ID, models.MintSubmitted, &tid)
		return 0, fmt.Errorf("approved request %s but failed to cache metadata for token %d: %w", requestID, tid, err)
	}

	s.closeAttempt(ctx, attempt.ID, models.MintCompleted, &tid)
	return tid, nil
}

// Reject moves a pending request to rejected. The owner may later edit it
// back to pending or withdraw it.
func (s *DefaultService) Reject(ctx context.Context, requestID, approverWallet string) error {
	if err := s.requireAdmin(ctx, approverWallet); err != nil {
		return err
	}

	rejected, err := s.repo.MarkRequestRejected(ctx, requestID)
	if err != nil {
		return fmt.Errorf("error rejecting listing request: %w", err)
	}
	if rejected {
		return nil
	}

	record, err := s.repo.GetListingRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("error getting listing request: %w", err)
	}
	if record == nil {
		return apperr.NotFound("no listing request with id %s", requestID)
	}
	return apperr.InvalidState("request %s is %s, not pending", requestID, record.Status)
}

func (s *DefaultService) GetRequestsByWallet(ctx context.Context, wallet string) ([]models.ListingRequest, error) {
	requests, err := s.repo.GetRequestsByWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("error getting listing requests: %w", err)
	}
	return requests, nil
}

// GetPendingRequests returns the admin review queue.
func (s *DefaultService) GetPendingRequests(ctx context.Context, approverWallet string) ([]models.ListingRequest, error) {
	if err := s.requireAdmin(ctx, approverWallet); err != nil {
		return nil, err
	}

	requests, err := s.repo.GetRequestsByStatus(ctx, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("error getting pending requests: %w", err)
	}
	return requests, nil
}

// OpenMintAttempts returns unresolved mint attempts for admin reconciliation.
func (s *DefaultService) OpenMintAttempts(ctx context.Context, approverWallet string) ([]models.MintAttempt, error) {
	if err := s.requireAdmin(ctx, approverWallet); err != nil {
		return nil, err
	}

	attempts, err := s.repo.GetOpenMintAttempts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting mint attempts: %w", err)
	}
	return attempts, nil
}

// loadOwnedEditable fetches a request and checks the caller owns it and it
// is still editable (pending or rejected).
func (s *DefaultService) loadOwnedEditable(ctx context.Context, requestID, wallet string) (*models.ListingRequest, error) {
	record, err := s.repo.GetListingRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("error getting listing request: %w", err)
	}
	if record == nil {
		return nil, apperr.NotFound("no listing request with id %s", requestID)
	}
	if !strings.EqualFold(record.UserAddress, wallet) {
		return nil, apperr.Authorization("wallet %s does not own request %s", wallet, requestID)
	}
	if record.Status == models.StatusApproved {
		return nil, apperr.InvalidState("request %s is approved and immutable", requestID)
	}
	return record, nil
}

// editConflict maps a failed conditional edit/withdraw write to the error
// the caller should see.
func (s *DefaultService) editConflict(ctx context.Context, requestID string) error {
	record, err := s.repo.GetListingRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("error getting listing request: %w", err)
	}
	if record == nil {
		return apperr.NotFound("no listing request with id %s", requestID)
	}
	return apperr.InvalidState("request %s is approved and immutable", requestID)
}

// closeAttempt is best-effort bookkeeping on the mint outbox; its failure
// never masks the primary result of an approval.
func (s *DefaultService) closeAttempt(ctx context.Context, attemptID, state string, tokenID *int64) {
	_ = s.repo.SetMintAttemptState(ctx, attemptID, state, tokenID)
}

func validateListing(title, location string, price decimal.Decimal, description, image string) error {
	if strings.TrimSpace(title) == "" {
		return apperr.Validation("title is required")
	}
	if strings.TrimSpace(location) == "" {
		return apperr.Validation("location is required")
	}
	if !price.IsPositive() {
		return apperr.Validation("price must be greater than zero")
	}
	if strings.TrimSpace(description) == "" {
		return apperr.Validation("description is required")
	}
	if strings.TrimSpace(image) == "" {
		return apperr.Validation("image is required")
	}
	return nil
}
