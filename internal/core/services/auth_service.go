package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"lifekline-api/internal/adapters/persistence/models"
	"lifekline-api/internal/core/domain"
	"lifekline-api/internal/pkg/jwt"
)

// LoginInput represents login input
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Token     string                  `json:"token"`
	ExpiresAt time.Time               `json:"expiresAt"`
	User      *models.ProfileResponse `json:"user"`
}

// AuthService handles login and session resolution
type AuthService struct {
	ledger *LedgerService
	tokens *jwt.Issuer
}

// NewAuthService creates a new auth service
func NewAuthService(ledger *LedgerService, tokens *jwt.Issuer) *AuthService {
	return &AuthService{
		ledger: ledger,
		tokens: tokens,
	}
}

// Login authenticates an account and issues a session token
func (s *AuthService) Login(ctx context.Context, input *LoginInput, meta domain.RequestMeta) (*LoginResponse, error) {
	account, err := s.ledger.Authenticate(ctx, input.Username, input.Password, meta)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(account.ID, account.Username)
	if err != nil {
		log.Printf("❌ Failed to issue token for %s: %v", account.Username, err)
		return nil, err
	}

	log.Printf("✅ Login: %s (remaining %d)", account.Username, account.RemainingUses)
	return &LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      models.NewProfileResponse(account),
	}, nil
}

// Resolve maps a bearer token to its account
func (s *AuthService) Resolve(ctx context.Context, token string) (*domain.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrAuthRequired
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrAuthExpired
		}
		return nil, domain.ErrAuthInvalid
	}

	account, err := s.ledger.GetAccount(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrAuthInvalid
		}
		return nil, err
	}
	if account.Status == domain.StatusDisabled {
		return nil, domain.ErrAccountDisabled
	}
	return account, nil
}

// Logout records the event; the token itself stays valid until it expires
func (s *AuthService) Logout(ctx context.Context, accountID string, meta domain.RequestMeta) error {
	return s.ledger.RecordLogout(ctx, accountID, meta)
}
