package repositories

import (
	"context"

	"lifekline-api/internal/core/domain"
)

// AccountFilter narrows account listings
type AccountFilter struct {
	Status domain.AccountStatus // empty means any
}

// LedgerStore is the persistence boundary of the account ledger.
// Lookups that miss return domain.ErrAccountNotFound.
type LedgerStore interface {
	// Transaction runs fn atomically. Rows read through the LedgerTx lock
	// methods stay locked until fn returns. Transient conflicts are retried,
	// so fn must be safe to run more than once.
	Transaction(ctx context.Context, fn func(tx LedgerTx) error) error

	GetAccountByID(ctx context.Context, id string) (*domain.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	CountByStatus(ctx context.Context) (map[domain.AccountStatus]int64, error)
	CountAvailable(ctx context.Context) (int64, error)
	ListAccounts(ctx context.Context, filter AccountFilter, offset, limit int) ([]*domain.Account, int64, error)
	ListUsageLogs(ctx context.Context, accountID string, limit int) ([]*domain.UsageLog, error)
	AppendUsageLog(ctx context.Context, entry *domain.UsageLog) error
	Ping(ctx context.Context) error
}

// LedgerTx is the set of operations available inside a ledger transaction
type LedgerTx interface {
	LockAccountByID(id string) (*domain.Account, error)
	LockAccountByOrderID(orderID string) (*domain.Account, error)
	// LockOldestAvailable picks the oldest unused, unallocated account,
	// skipping rows already locked by other transactions.
	LockOldestAvailable() (*domain.Account, error)
	CreateAccount(account *domain.Account) error
	SaveAccount(account *domain.Account) error
	AppendUsageLog(entry *domain.UsageLog) error
	// NextSequence increments and returns the counter for dateKey, creating it at 1.
	NextSequence(dateKey string) (int, error)
}
