package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"lifekline-api/internal/adapters/events"
	"lifekline-api/internal/adapters/persistence/repositories"
	"lifekline-api/internal/core/domain"
	"lifekline-api/internal/pkg/password"
)

// Recycle refusal reasons
const (
	ReasonAlreadyUsed = "account has already been logged in and cannot return to the pool"
	ReasonDisabled    = "account is disabled"
)

// AllocationResult is returned by Allocate
type AllocationResult struct {
	AccountID        string `json:"-"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	RemainingUses    int    `json:"remainingUses"`
	AlreadyAllocated bool   `json:"alreadyAllocated"`
}

// RecycleResult is returned by Recycle
type RecycleResult struct {
	Recycled bool   `json:"recycled"`
	Reason   string `json:"reason,omitempty"`
	Username string `json:"username"`
}

// LedgerService owns every balance and status change of an account
type LedgerService struct {
	store       repositories.LedgerStore
	publisher   events.Publisher
	credentials *CredentialService
	now         func() time.Time
}

// NewLedgerService creates a ledger service; a nil publisher drops usage events
func NewLedgerService(store repositories.LedgerStore, publisher events.Publisher, credentials *CredentialService) *LedgerService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &LedgerService{
		store:       store,
		publisher:   publisher,
		credentials: credentials,
		now:         time.Now,
	}
}

// NormalizeUsername trims and uppercases a username
func NormalizeUsername(username string) string {
	return strings.ToUpper(strings.TrimSpace(username))
}

// Authenticate verifies credentials and records a successful login.
// Unknown usernames and wrong passwords are indistinguishable.
func (s *LedgerService) Authenticate(ctx context.Context, username, plain string, meta domain.RequestMeta) (*domain.Account, error) {
	username = NormalizeUsername(username)
	if username == "" || plain == "" {
		return nil, domain.ErrInvalidCredentials
	}

	candidate, err := s.store.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.credentials.Verify(plain, dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// bcrypt runs before the row lock is taken
	if !s.credentials.Verify(plain, candidate.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	var (
		account *domain.Account
		entry   *domain.UsageLog
	)
	err = s.store.Transaction(ctx, func(tx repositories.LedgerTx) error {
		acc, err := tx.LockAccountByID(candidate.ID)
		if err != nil {
			return err
		}
		if acc.Status == domain.StatusDisabled {
			return domain.ErrAccountDisabled
		}

		now := s.now()
		if acc.FirstLoginAt == nil {
			acc.FirstLoginAt = &now
		}
		acc.LastLoginAt = &now
		if acc.Status == domain.StatusUnused {
			if err := moveTo(acc, domain.StatusActive); err != nil {
				return err
			}
		}
		if err := tx.SaveAccount(acc); err != nil {
			return err
		}

		entry = newUsageLog(acc.ID, domain.ActionLogin, acc.RemainingUses, acc.RemainingUses, meta)
		if err := tx.AppendUsageLog(entry); err != nil {
			return err
		}
		account = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, entry)
	return account, nil
}

// DebitOne consumes exactly one credit for a generation action and returns
// the new balance. The balance is re-read under a row lock.
func (s *LedgerService) DebitOne(ctx context.Context, accountID string, action domain.ActionType, meta domain.RequestMeta) (int, error) {
	if !action.IsGeneration() {
		return 0, fmt.Errorf("%w: %s does not consume credits", domain.ErrInvalidInput, action)
	}

	var (
		remaining int
		entry     *domain.UsageLog
	)
	err := s.store.Transaction(ctx, func(tx repositories.LedgerTx) error {
		acc, err := tx.LockAccountByID(accountID)
		if err != nil {
			return err
		}
		if acc.Status == domain.StatusDisabled {
			return domain.ErrAccountDisabled
		}
		if acc.RemainingUses <= 0 {
			return &domain.InsufficientCreditsError{Remaining: 0}
		}
		// credits are spent only after the first login activated the account
		if acc.Status != domain.StatusActive {
			return fmt.Errorf("%w: cannot debit %s account", domain.ErrInvalidTransition, acc.Status)
		}

		before := acc.RemainingUses
		next := domain.StatusActive
		if before == 1 {
			next = domain.StatusExpired
		}
		if err := moveTo(acc, next); err != nil {
			return err
		}
		acc.RemainingUses--
		if err := tx.SaveAccount(acc); err != nil {
			return err
		}

		entry = newUsageLog(acc.ID, action, before, acc.RemainingUses, meta)
		entry.UsesConsumed = 1
		if err := tx.AppendUsageLog(entry); err != nil {
			return err
		}
		remaining = acc.RemainingUses
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.publish(ctx, entry)
	return remaining, nil
}

// Allocate binds a pool account to an order. Repeating the call for the
// same order returns the same credentials without further changes.
func (s *LedgerService) Allocate(ctx context.Context, orderID, platform, buyerID string) (*AllocationResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: orderId is required", domain.ErrInvalidInput)
	}

	var result *AllocationResult
	attempt := func() error {
		return s.store.Transaction(ctx, func(tx repositories.LedgerTx) error {
			existing, err := tx.LockAccountByOrderID(orderID)
			if err == nil {
				result = allocationResult(existing, true)
				return nil
			}
			if !errors.Is(err, domain.ErrAccountNotFound) {
				return err
			}

			acc, err := tx.LockOldestAvailable()
			if err != nil {
				if errors.Is(err, domain.ErrAccountNotFound) {
					return domain.ErrPoolExhausted
				}
				return err
			}

			acc.OrderID = &orderID
			acc.Platform = optional(platform)
			acc.BuyerID = optional(buyerID)
			if err := tx.SaveAccount(acc); err != nil {
				return err
			}
			result = allocationResult(acc, false)
			return nil
		})
	}

	err := attempt()
	// a concurrent call bound the same order first; read its binding
	if errors.Is(err, domain.ErrDuplicateEntry) {
		err = attempt()
	}
	if err != nil {
		return nil, err
	}

	if result.AlreadyAllocated {
		log.Printf("ℹ️ Order %s already allocated to %s", orderID, result.Username)
	} else {
		log.Printf("✅ Allocated %s to order %s", result.Username, orderID)
	}
	return result, nil
}

// Recycle returns an allocated but never used account to the pool
func (s *LedgerService) Recycle(ctx context.Context, orderID string) (*RecycleResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: orderId is required", domain.ErrInvalidInput)
	}

	var result *RecycleResult
	err := s.store.Transaction(ctx, func(tx repositories.LedgerTx) error {
		acc, err := tx.LockAccountByOrderID(orderID)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return domain.ErrAllocationNotFound
			}
			return err
		}

		result = &RecycleResult{Username: acc.Username}
		switch {
		case acc.HasLoggedIn():
			result.Reason = ReasonAlreadyUsed
			return nil
		case acc.Status == domain.StatusDisabled:
			result.Reason = ReasonDisabled
			return nil
		}

		if err := moveTo(acc, domain.StatusUnused); err != nil {
			return err
		}
		acc.OrderID = nil
		acc.Platform = nil
		acc.BuyerID = nil
		acc.RemainingUses = acc.TotalUses
		if err := tx.SaveAccount(acc); err != nil {
			return err
		}
		result.Recycled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Recycled {
		log.Printf("♻️ Recycled %s from order %s", result.Username, orderID)
	}
	return result, nil
}

// PoolStatus counts accounts by status
func (s *LedgerService) PoolStatus(ctx context.Context) (*domain.PoolStatus, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	available, err := s.store.CountAvailable(ctx)
	if err != nil {
		return nil, err
	}

	status := &domain.PoolStatus{
		Unused:    counts[domain.StatusUnused],
		Active:    counts[domain.StatusActive],
		Expired:   counts[domain.StatusExpired],
		Disabled:  counts[domain.StatusDisabled],
		Available: available,
	}
	for _, n := range counts {
		status.Total += n
	}
	return status, nil
}

// CreateAccounts issues count new unused accounts holding uses credits each
func (s *LedgerService) CreateAccounts(ctx context.Context, count, uses int) ([]domain.Credentials, error) {
	if count < 1 || uses < 1 {
		return nil, fmt.Errorf("%w: count and uses must be positive", domain.ErrInvalidInput)
	}

	type secret struct{ plain, hash string }
	secrets := make([]secret, count)
	for i := range secrets {
		plain, hash, err := s.credentials.NewPassword()
		if err != nil {
			return nil, err
		}
		secrets[i] = secret{plain, hash}
	}

	var created []domain.Credentials
	err := s.store.Transaction(ctx, func(tx repositories.LedgerTx) error {
		created = make([]domain.Credentials, 0, count)
		for _, sec := range secrets {
			username, err := s.credentials.NextUsername(tx)
			if err != nil {
				return err
			}
			acc := &domain.Account{
				Username:      username,
				PasswordHash:  sec.hash,
				PasswordPlain: sec.plain,
				RemainingUses: uses,
				TotalUses:     uses,
				Status:        domain.StatusUnused,
			}
			if err := tx.CreateAccount(acc); err != nil {
				return err
			}
			created = append(created, domain.Credentials{Username: username, Password: sec.plain})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Created %d accounts with %d uses each", len(created), uses)
	return created, nil
}

// Disable moves an account into the terminal disabled state
func (s *LedgerService) Disable(ctx context.Context, accountID string) (*domain.Account, error) {
	var account *domain.Account
	err := s.store.Transaction(ctx, func(tx repositories.LedgerTx) error {
		acc, err := tx.LockAccountByID(accountID)
		if err != nil {
			return err
		}
		if acc.Status != domain.StatusDisabled {
			if err := moveTo(acc, domain.StatusDisabled); err != nil {
				return err
			}
			if err := tx.SaveAccount(acc); err != nil {
				return err
			}
		}
		account = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🚫 Disabled account %s", account.Username)
	return account, nil
}

// RecordLogout appends an audit entry; session tokens stay valid until expiry
func (s *LedgerService) RecordLogout(ctx context.Context, accountID string, meta domain.RequestMeta) error {
	acc, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}

	entry := newUsageLog(acc.ID, domain.ActionLogout, acc.RemainingUses, acc.RemainingUses, meta)
	if err := s.store.AppendUsageLog(ctx, entry); err != nil {
		return err
	}
	s.publish(ctx, entry)
	return nil
}

// GetAccount returns the current state of an account
func (s *LedgerService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.store.GetAccountByID(ctx, accountID)
}

// ListAccounts lists accounts newest first
func (s *LedgerService) ListAccounts(ctx context.Context, status domain.AccountStatus, offset, limit int) ([]*domain.Account, int64, error) {
	return s.store.ListAccounts(ctx, repositories.AccountFilter{Status: status}, offset, limit)
}

// UsageHistory returns the most recent usage entries of an account
func (s *LedgerService) UsageHistory(ctx context.Context, accountID string, limit int) ([]*domain.UsageLog, error) {
	if _, err := s.store.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.ListUsageLogs(ctx, accountID, limit)
}

// moveTo applies next to acc when the status machine allows it
func moveTo(acc *domain.Account, next domain.AccountStatus) error {
	if !acc.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, acc.Status, next)
	}
	acc.Status = next
	return nil
}

// publish hands committed entries to the event publisher
func (s *LedgerService) publish(ctx context.Context, entry *domain.UsageLog) {
	if entry == nil {
		return
	}
	if err := s.publisher.Publish(ctx, entry); err != nil {
		log.Printf("⚠️ Failed to publish usage event %s (%s): %v", entry.ID, entry.ActionType, err)
	}
}

func newUsageLog(accountID string, action domain.ActionType, before, after int, meta domain.RequestMeta) *domain.UsageLog {
	return &domain.UsageLog{
		AccountID:  accountID,
		ActionType: action,
		UsesBefore: &before,
		UsesAfter:  &after,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		ExtraData:  meta.ExtraData,
	}
}

func allocationResult(acc *domain.Account, already bool) *AllocationResult {
	return &AllocationResult{
		AccountID:        acc.ID,
		Username:         acc.Username,
		Password:         acc.PasswordPlain,
		RemainingUses:    acc.RemainingUses,
		AlreadyAllocated: already,
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// dummyHash is verified against for unknown usernames so both failures cost one bcrypt round
var dummyHash, _ = password.Hash("lifekline-placeholder", password.DefaultCost)
