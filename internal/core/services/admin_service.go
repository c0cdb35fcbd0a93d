package services

import (
	"context"
	"fmt"
	"strings"

	"lifekline-api/internal/adapters/persistence/models"
	"lifekline-api/internal/core/domain"
	"lifekline-api/internal/pkg/pagination"
)

// Batch generation bounds
const (
	DefaultGenerateCount  = 10
	MaxGenerateCount      = 1000
	DefaultUsesPerAccount = 3
	DefaultUsageLogLimit  = 50
)

// GenerateAccountsInput represents batch generation input
type GenerateAccountsInput struct {
	Count          *int `json:"count"`
	UsesPerAccount *int `json:"usesPerAccount"`
}

// GenerateAccountsResult is returned by GenerateAccounts
type GenerateAccountsResult struct {
	Generated      int                  `json:"generated"`
	UsesPerAccount int                  `json:"usesPerAccount"`
	Accounts       []domain.Credentials `json:"accounts"`
}

// AllocateInput represents an order fulfillment request
type AllocateInput struct {
	OrderID  string `json:"orderId"`
	Platform string `json:"platform"`
	BuyerID  string `json:"buyerId"`
}

// RecycleInput represents an order cancellation request
type RecycleInput struct {
	OrderID string `json:"orderId"`
}

// AccountListResponse is one page of the admin account listing
type AccountListResponse struct {
	Accounts   []*models.AccountResponse `json:"accounts"`
	Pagination *pagination.Meta          `json:"pagination"`
}

// AdminService backs the provisioning API
type AdminService struct {
	ledger *LedgerService
}

// NewAdminService creates a new admin service
func NewAdminService(ledger *LedgerService) *AdminService {
	return &AdminService{ledger: ledger}
}

// GenerateAccounts issues a batch of unused accounts. Count is clamped to
// 1..1000 and defaults to 10; uses defaults to 3.
func (s *AdminService) GenerateAccounts(ctx context.Context, input *GenerateAccountsInput) (*GenerateAccountsResult, error) {
	count := DefaultGenerateCount
	if input.Count != nil {
		count = *input.Count
	}
	if count < 1 {
		count = 1
	}
	if count > MaxGenerateCount {
		count = MaxGenerateCount
	}

	uses := DefaultUsesPerAccount
	if input.UsesPerAccount != nil {
		uses = *input.UsesPerAccount
	}
	if uses < 1 {
		return nil, fmt.Errorf("%w: usesPerAccount must be at least 1", domain.ErrInvalidInput)
	}

	accounts, err := s.ledger.CreateAccounts(ctx, count, uses)
	if err != nil {
		return nil, err
	}
	return &GenerateAccountsResult{
		Generated:      len(accounts),
		UsesPerAccount: uses,
		Accounts:       accounts,
	}, nil
}

// Allocate binds a pool account to an order
func (s *AdminService) Allocate(ctx context.Context, input *AllocateInput) (*AllocationResult, error) {
	return s.ledger.Allocate(ctx, input.OrderID, input.Platform, input.BuyerID)
}

// Recycle returns an unused account bound to an order back to the pool
func (s *AdminService) Recycle(ctx context.Context, input *RecycleInput) (*RecycleResult, error) {
	return s.ledger.Recycle(ctx, input.OrderID)
}

// PoolStatus reports account counts by status
func (s *AdminService) PoolStatus(ctx context.Context) (*domain.PoolStatus, error) {
	return s.ledger.PoolStatus(ctx)
}

// ListAccounts returns one page of accounts, optionally filtered by status
func (s *AdminService) ListAccounts(ctx context.Context, status string, window pagination.Window) (*AccountListResponse, error) {
	var filter domain.AccountStatus
	if status = strings.TrimSpace(status); status != "" {
		parsed, err := domain.ParseAccountStatus(status)
		if err != nil {
			return nil, err
		}
		filter = parsed
	}

	accounts, total, err := s.ledger.ListAccounts(ctx, filter, window.Offset(), window.Limit)
	if err != nil {
		return nil, err
	}

	items := make([]*models.AccountResponse, len(accounts))
	for i, a := range accounts {
		items[i] = models.NewAccountResponse(a)
	}
	return &AccountListResponse{
		Accounts:   items,
		Pagination: window.Describe(total),
	}, nil
}

// Disable blocks an account permanently
func (s *AdminService) Disable(ctx context.Context, accountID string) (*models.AccountResponse, error) {
	account, err := s.ledger.Disable(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return models.NewAccountResponse(account), nil
}

// UsageHistory lists the latest usage entries of an account
func (s *AdminService) UsageHistory(ctx context.Context, accountID string, limit int) ([]*models.UsageLogResponse, error) {
	if limit < 1 || limit > pagination.MaxLimit {
		limit = DefaultUsageLogLimit
	}

	entries, err := s.ledger.UsageHistory(ctx, accountID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]*models.UsageLogResponse, len(entries))
	for i, e := range entries {
		items[i] = models.NewUsageLogResponse(e)
	}
	return items, nil
}
