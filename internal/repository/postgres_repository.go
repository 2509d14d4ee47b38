package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hkhalid/estatechain-server/internal/models"
	"github.com/jmoiron/sqlx"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByWallet(ctx context.Context, wallet string) (*models.User, error)

	// Listing request operations
	CreateListingRequest(ctx context.Context, req *models.ListingRequest) error
	GetListingRequest(ctx context.Context, id string) (*models.ListingRequest, error)
	GetRequestsByWallet(ctx context.Context, wallet string) ([]models.ListingRequest, error)
	GetRequestsByStatus(ctx context.Context, status string) ([]models.ListingRequest, error)

	// UpdateListingRequest writes the mutable fields and resets the record
	// to pending. The write is conditional on the record still being
	// editable (pending or rejected); it reports whether a row changed.
	UpdateListingRequest(ctx context.Context, req *models.ListingRequest) (bool, error)

	// DeleteListingRequest removes a record, conditional on it still being
	// withdrawable (pending or rejected).
	DeleteListingRequest(ctx context.Context, id string) (bool, error)

	// MarkRequestApproved and MarkRequestRejected are the only status
	// transitions out of pending. Both are single conditional updates:
	// the returned bool reports whether the pending precondition held at
	// write time, which is what serializes concurrent approve/reject.
	MarkRequestApproved(ctx context.Context, id string, tokenID int64) (bool, error)
	MarkRequestRejected(ctx context.Context, id string) (bool, error)

	// Asset metadata operations
	CreateAssetMetadata(ctx context.Context, meta *models.AssetMetadata) error
	GetAssetMetadata(ctx context.Context, tokenID int64) (*models.AssetMetadata, error)

	// Mint outbox operations
	CreateMintAttempt(ctx context.Context, attempt *models.MintAttempt) error
	GetOpenMintAttempt(ctx context.Context, requestID string) (*models.MintAttempt, error)
	SetMintAttemptState(ctx context.Context, id, state string, tokenID *int64) error
	GetOpenMintAttempts(ctx context.Context) ([]models.MintAttempt, error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password, phone, wallet_address, profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	user.Email = strings.ToLower(user.Email)
	user.WalletAddress = strings.ToLower(user.WalletAddress)

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.Password, user.Phone,
		user.WalletAddress, user.Profile, user.CreatedAt, user.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT * FROM users WHERE email = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByWallet(ctx context.Context, wallet string) (*models.User, error) {
	query := `SELECT * FROM users WHERE wallet_address = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, strings.ToLower(wallet))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

// Listing request repository methods
func (r *PostgresRepository) CreateListingRequest(ctx context.Context, req *models.ListingRequest) error {
	query := `
		INSERT INTO listing_requests (id, user_address, title, location, price, description, image, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	// Generate a new UUID if not provided
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	req.UserAddress = strings.ToLower(req.UserAddress)
	req.Status = models.StatusPending

	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.UserAddress, req.Title, req.Location, req.Price,
		req.Description, req.Image, req.Status, req.CreatedAt, req.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetListingRequest(ctx context.Context, id string) (*models.ListingRequest, error) {
	query := `SELECT * FROM listing_requests WHERE id = $1`

	var req models.ListingRequest
	err := r.db.GetContext(ctx, &req, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Request not found
		}
		return nil, err
	}

	return &req, nil
}

func (r *PostgresRepository) GetRequestsByWallet(ctx context.Context, wallet string) ([]models.ListingRequest, error) {
	query := `
		SELECT * FROM listing_requests
		WHERE user_address = $1
		ORDER BY created_at DESC
	`

	var requests []models.ListingRequest
	err := r.db.SelectContext(ctx, &requests, query, strings.ToLower(wallet))
	if err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *PostgresRepository) GetRequestsByStatus(ctx context.Context, status string) ([]models.ListingRequest, error) {
	query := `
		SELECT * FROM listing_requests
		WHERE status = $1
		ORDER BY created_at ASC
	`

	var requests []models.ListingRequest
	err := r.db.SelectContext(ctx, &requests, query, status)
	if err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *PostgresRepository) UpdateListingRequest(ctx context.Context, req *models.ListingRequest) (bool, error) {
	// The status guard keeps a concurrent approval from being overwritten:
	// an edit never races its way past a finished approve.
	query := `
		UPDATE listing_requests
		SET title = $2, location = $3, price = $4, description = $5, image = $6,
		    status = $7, updated_at = $8
		WHERE id = $1 AND status IN ('pending', 'rejected')
	`

	req.Status = models.StatusPending
	req.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		req.ID, req.Title, req.Location, req.Price, req.Description,
		req.Image, req.Status, req.UpdatedAt)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *PostgresRepository) DeleteListingRequest(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM listing_requests WHERE id = $1 AND status IN ('pending', 'rejected')`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *PostgresRepository) MarkRequestApproved(ctx context.Context, id string, tokenID int64) (bool, error) {
	query := `
		UPDATE listing_requests
		SET status = 'approved', token_id = $2, updated_at = $3
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, tokenID, time.Now().UTC())
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *PostgresRepository) MarkRequestRejected(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE listing_requests
		SET status = 'rejected', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

// Asset metadata repository methods
func (r *PostgresRepository) CreateAssetMetadata(ctx context.Context, meta *models.AssetMetadata) error {
	query := `
		INSERT INTO asset_metadata (token_id, image, description, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_id) DO NOTHING
	`

	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		meta.TokenID, meta.Image, meta.Description, meta.CreatedAt)

	return err
}

func (r *PostgresRepository) GetAssetMetadata(ctx context.Context, tokenID int64) (*models.AssetMetadata, error) {
	query := `SELECT * FROM asset_metadata WHERE token_id = $1`

	var meta models.AssetMetadata
	err := r.db.GetContext(ctx, &meta, query, tokenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No metadata cached for this token
		}
		return nil, err
	}

	return &meta, nil
}

// Mint outbox repository methods
func (r *PostgresRepository) CreateMintAttempt(ctx context.Context, attempt *models.MintAttempt) error {
	query := `
		INSERT INTO mint_attempts (id, request_id, state, token_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.State == "" {
		attempt.State = models.MintSubmitted
	}

	now := time.Now().UTC()
	attempt.CreatedAt = now
	attempt.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		attempt.ID, attempt.RequestID, attempt.State, attempt.TokenID,
		attempt.CreatedAt, attempt.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetOpenMintAttempt(ctx context.Context, requestID string) (*models.MintAttempt, error) {
	query := `
		SELECT * FROM mint_attempts
		WHERE request_id = $1 AND state = 'submitted'
		ORDER BY created_at DESC
		LIMIT 1
	`

	var attempt models.MintAttempt
	err := r.db.GetContext(ctx, &attempt, query, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No open attempt
		}
		return nil, err
	}

	return &attempt, nil
}

func (r *PostgresRepository) SetMintAttemptState(ctx context.Context, id, state string, tokenID *int64) error {
	query := `
		UPDATE mint_attempts
		SET state = $2, token_id = COALESCE($3, token_id), updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, state, tokenID, time.Now().UTC())
	return err
}

func (r *PostgresRepository) GetOpenMintAttempts(ctx context.Context) ([]models.MintAttempt, error) {
	query := `
		SELECT * FROM mint_attempts
		WHERE state = 'submitted'
		ORDER BY created_at ASC
	`

	var attempts []models.MintAttempt
	err := r.db.SelectContext(ctx, &attempts, query)
	if err != nil {
		return nil, err
	}

	return attempts, nil
}
