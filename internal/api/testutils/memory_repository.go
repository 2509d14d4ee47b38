package testutils

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hkhalid/estatechain-server/internal/models"
	"github.com/hkhalid/estatechain-server/internal/repository"
)

// MemoryRepository is a mutex-guarded in-memory repository.Repository with
// the same conditional-update semantics as the Postgres implementation, so
// concurrency tests exercise the real precondition behavior.
type MemoryRepository struct {
	mu       sync.Mutex
	users    map[string]models.User
	requests map[string]models.ListingRequest
	metadata map[int64]models.AssetMetadata
	attempts map[string]models.MintAttempt
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[string]models.User),
		requests: make(map[string]models.ListingRequest),
		metadata: make(map[int64]models.AssetMetadata),
		attempts: make(map[string]models.MintAttempt),
	}
}

// User operations
func (m *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(user.Email)
	user.WalletAddress = strings.ToLower(user.WalletAddress)

	for _, u := range m.users {
		if u.Email == user.Email || u.WalletAddress == user.WalletAddress {
			return repository.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) GetUserByWallet(ctx context.Context, wallet string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet = strings.ToLower(wallet)
	for _, u := range m.users {
		if u.WalletAddress == wallet {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

// Listing request operations
func (m *MemoryRepository) CreateListingRequest(ctx context.Context, req *models.ListingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.UserAddress = strings.ToLower(req.UserAddress)
	req.Status = models.StatusPending

	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	m.requests[req.ID] = *req
	return nil
}

func (m *MemoryRepository) GetListingRequest(ctx context.Context, id string) (*models.ListingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (m *MemoryRepository) GetRequestsByWallet(ctx context.Context, wallet string) ([]models.ListingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet = strings.ToLower(wallet)
	var out []models.ListingRequest
	for _, req := range m.requests {
		if req.UserAddress == wallet {
			out = append(out, req)
		}
	}
	// Newest first, matching the SQL ORDER BY created_at DESC.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepository) GetRequestsByStatus(ctx context.Context, status string) ([]models.ListingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.ListingRequest
	for _, req := range m.requests {
		if req.Status == status {
			out = append(out, req)
		}
	}
	sortRequests(out)
	return out, nil
}

func (m *MemoryRepository) UpdateListingRequest(ctx context.Context, req *models.ListingRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.requests[req.ID]
	if !ok || (current.Status != models.StatusPending && current.Status != models.StatusRejected) {
		return false, nil
	}

	current.Title = req.Title
	current.Location = req.Location
	current.Price = req.Price
	current.Description = req.Description
	current.Image = req.Image
	current.Status = models.StatusPending
	current.UpdatedAt = time.Now().UTC()
	m.requests[req.ID] = current

	req.Status = current.Status
	req.UpdatedAt = current.UpdatedAt
	return true, nil
}

func (m *MemoryRepository) DeleteListingRequest(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.requests[id]
	if !ok || (current.Status != models.StatusPending && current.Status != models.StatusRejected) {
		return false, nil
	}
	delete(m.requests, id)

	// Mirror the ON DELETE CASCADE on mint_attempts.request_id.
	for attemptID, a := range m.attempts {
		if a.RequestID == id {
			delete(m.attempts, attemptID)
		}
	}
	return true, nil
}

func (m *MemoryRepository) MarkRequestApproved(ctx context.Context, id string, tokenID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.requests[id]
	if !ok || current.Status != models.StatusPending {
		return false, nil
	}
	current.Status = models.StatusApproved
	current.TokenID = &tokenID
	current.UpdatedAt = time.Now().UTC()
	m.requests[id] = current
	return true, nil
}

func (m *MemoryRepository) MarkRequestRejected(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.requests[id]
	if !ok || current.Status != models.StatusPending {
		return false, nil
	}
	current.Status = models.StatusRejected
	current.UpdatedAt = time.Now().UTC()
	m.requests[id] = current
	return true, nil
}

// Asset metadata operations
func (m *MemoryRepository) CreateAssetMetadata(ctx context.Context, meta *models.AssetMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.metadata[meta.TokenID]; exists {
		return nil // ON CONFLICT DO NOTHING
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	m.metadata[meta.TokenID] = *meta
	return nil
}

func (m *MemoryRepository) GetAssetMetadata(ctx context.Context, tokenID int64) (*models.AssetMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, ok := m.metadata[tokenID]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

// Mint outbox operations
func (m *MemoryRepository) CreateMintAttempt(ctx context.Context, attempt *models.MintAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if attempt.State == "" {
		attempt.State = models.MintSubmitted
	}

	// Mirror the partial unique index: one open attempt per request.
	for _, a := range m.attempts {
		if a.RequestID == attempt.RequestID && a.State == models.MintSubmitted {
			return repository.ErrDuplicate
		}
	}

	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	attempt.CreatedAt = now
	attempt.UpdatedAt = now
	m.attempts[attempt.ID] = *attempt
	return nil
}

func (m *MemoryRepository) GetOpenMintAttempt(ctx context.Context, requestID string) (*models.MintAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.attempts {
		if a.RequestID == requestID && a.State == models.MintSubmitted {
			attempt := a
			return &attempt, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) SetMintAttemptState(ctx context.Context, id, state string, tokenID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempt, ok := m.attempts[id]
	if !ok {
		return nil
	}
	attempt.State = state
	if tokenID != nil {
		attempt.TokenID = tokenID
	}
	attempt.UpdatedAt = time.Now().UTC()
	m.attempts[id] = attempt
	return nil
}

func (m *MemoryRepository) GetOpenMintAttempts(ctx context.Context) ([]models.MintAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.MintAttempt
	for _, a := range m.attempts {
		if a.State == models.MintSubmitted {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// sortRequests orders oldest first, matching the admin queue's
// ORDER BY created_at ASC.
func sortRequests(reqs []models.ListingRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].ID < reqs[j].ID
		}
		return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
	})
}
