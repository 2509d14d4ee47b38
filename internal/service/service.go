package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hkhalid/estatechain-server/internal/apperr"
	"github.com/hkhalid/estatechain-server/internal/ledger"
	"github.com/hkhalid/estatechain-server/internal/models"
	"github.com/hkhalid/estatechain-server/internal/repository"
	"github.com/hkhalid/estatechain-server/internal/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Listing request lifecycle
	Submit(ctx context.Context, req models.SubmitListingRequest) (*models.ListingRequest, error)
	Edit(ctx context.Context, requestID string, req models.UpdateListingRequest) (*models.ListingRequest, error)
	Withdraw(ctx context.Context, requestID, wallet string) error
	Approve(ctx context.Context, requestID, approverWallet string) (int64, error)
	Reject(ctx context.Context, requestID, approverWallet string) error
	GetRequestsByWallet(ctx context.Context, wallet string) ([]models.ListingRequest, error)
	GetPendingRequests(ctx context.Context, approverWallet string) ([]models.ListingRequest, error)
	OpenMintAttempts(ctx context.Context, approverWallet string) ([]models.MintAttempt, error)

	// Ownership reconciliation
	ListOwned(ctx context.Context, wallet string) ([]models.OwnedAsset, error)
	ListListed(ctx context.Context) ([]models.OwnedAsset, error)
	GetAssetImage(ctx context.Context, tokenID int64) (string, error)

	// Ledger trade operations
	ListForSale(ctx context.Context, tokenID int64, wallet string, price decimal.Decimal) error
	Buy(ctx context.Context, tokenID int64, wallet string) error
	TransferHistory(ctx context.Context, wallet string) ([]models.TransferRecord, error)

	// Admin gate
	IsAdmin(ctx context.Context, wallet string) (bool, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	ledger        ledger.Client
	log           *utils.Logger
	jwtSecret     []byte
	tokenDuration time.Duration
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, lc ledger.Client, jwtSecret string) Service {
	return &DefaultService{
		repo:          repo,
		ledger:        lc,
		log:           utils.NewLogger("service"),
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour, // 24 hours token validity
	}
}

// Authentication methods
func (s *DefaultService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if !common.IsHexAddress(req.WalletAddress) {
		return nil, apperr.Validation("invalid wallet address %q", req.WalletAddress)
	}

	// Wallet address is the identity key; email must be unique too
	existingUser, err := s.repo.GetUserByWallet(ctx, req.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("error checking wallet existence: %w", err)
	}
	if existingUser != nil {
		return nil, apperr.Validation("user with this wallet already exists")
	}

	existingUser, err = s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}
	if existingUser != nil {
		return nil, apperr.Validation("user with this email already exists")
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	// Create the user
	user := &models.User{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Email:         strings.ToLower(req.Email),
		Password:      string(hashedPassword),
		Phone:         req.Phone,
		WalletAddress: strings.ToLower(req.WalletAddress),
		Profile:       req.Profile,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return &models.AuthResponse{
		Status:        "success",
		UserID:        user.ID,
		Name:          user.Name,
		Email:         user.Email,
		WalletAddress: user.WalletAddress,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	// Get the user
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, apperr.Authorization("invalid email or password")
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Authorization("invalid email or password")
	}

	// Generate JWT token
	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:        "success",
		UserID:        user.ID,
		Name:          user.Name,
		Email:         user.Email,
		WalletAddress: user.WalletAddress,
		Token:         token,
		ExpiresIn:     int(s.tokenDuration.Seconds()),
	}, nil
}

// IsAdmin reports whether wallet is the contract owner. A ledger read
// failure propagates as an error rather than a false "not admin".
func (s *DefaultService) IsAdmin(ctx context.Context, wallet string) (bool, error) {
	owner, err := s.ledger.ContractOwner(ctx)
	if err != nil {
		return false, apperr.Ledger("failed to read contract owner", err)
	}
	return strings.EqualFold(owner, wallet), nil
}

// requireAdmin is the single authorization predicate gating privileged
// lifecycle transitions.
func (s *DefaultService) requireAdmin(ctx context.Context, wallet string) error {
	isAdmin, err := s.IsAdmin(ctx, wallet)
	if err != nil {
		return err
	}
	if !isAdmin {
		return apperr.Authorization("wallet %s is not the contract owner", wallet)
	}
	return nil
}

// Helper methods
func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub":    user.ID, // subject
		"wallet": user.WalletAddress,
		"exp":    expirationTime.Unix(),
		"iat":    time.Now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
