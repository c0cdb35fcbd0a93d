package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifekline-api/internal/adapters/persistence/models"
	"lifekline-api/internal/core/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultTxRetries   = 3
	defaultTxBaseDelay = 20 * time.Millisecond
)

// ledgerStore implements LedgerStore on top of gorm
type ledgerStore struct {
	db         *gorm.DB
	maxRetries uint64
	baseDelay  time.Duration
}

// NewLedgerStore creates a new gorm-backed ledger store
func NewLedgerStore(db *gorm.DB) LedgerStore {
	return &ledgerStore{
		db:         db,
		maxRetries: defaultTxRetries,
		baseDelay:  defaultTxBaseDelay,
	}
}

// Transaction runs fn in a database transaction, retrying deadlocks and
// serialization failures with exponential backoff
func (s *ledgerStore) Transaction(ctx context.Context, fn func(tx LedgerTx) error) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.baseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&ledgerTx{db: tx})
		})
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if isTransient(err) {
		return fmt.Errorf("%w: %v", domain.ErrStorageConflict, err)
	}
	return err
}

// GetAccountByID gets an account by ID
func (s *ledgerStore) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	var row models.Account
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	return accountOrNotFound(&row, err)
}

// GetAccountByUsername gets an account by its normalized username
func (s *ledgerStore) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var row models.Account
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error
	return accountOrNotFound(&row, err)
}

type statusCount struct {
	Status string
	Count  int64
}

// CountByStatus counts accounts grouped by status
func (s *ledgerStore) CountByStatus(ctx context.Context) (map[domain.AccountStatus]int64, error) {
	var rows []statusCount
	err := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.AccountStatus]int64, len(rows))
	for _, r := range rows {
		counts[domain.AccountStatus(r.Status)] = r.Count
	}
	return counts, nil
}

// CountAvailable counts unused accounts not bound to any order
func (s *ledgerStore) CountAvailable(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("status = ?", string(domain.StatusUnused)).
		Where("order_id IS NULL").
		Count(&count).Error
	return count, err
}

// ListAccounts lists accounts newest first with pagination
func (s *ledgerStore) ListAccounts(ctx context.Context, filter AccountFilter, offset, limit int) ([]*domain.Account, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Account{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*models.Account
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	accounts := make([]*domain.Account, len(rows))
	for i, row := range rows {
		accounts[i] = row.ToDomain()
	}
	return accounts, total, nil
}

// ListUsageLogs lists the most recent usage entries of an account
func (s *ledgerStore) ListUsageLogs(ctx context.Context, accountID string, limit int) ([]*domain.UsageLog, error) {
	var rows []*models.UsageLog
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.UsageLog, len(rows))
	for i, row := range rows {
		entries[i] = row.ToDomain()
	}
	return entries, nil
}

// AppendUsageLog writes an entry outside any transaction (audit-only events)
func (s *ledgerStore) AppendUsageLog(ctx context.Context, entry *domain.UsageLog) error {
	return appendUsageLog(s.db.WithContext(ctx), entry)
}

// Ping checks the database connection
func (s *ledgerStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ledgerTx implements LedgerTx on a gorm transaction handle
type ledgerTx struct {
	db *gorm.DB
}

func (t *ledgerTx) forUpdate() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// LockAccountByID selects an account row FOR UPDATE
func (t *ledgerTx) LockAccountByID(id string) (*domain.Account, error) {
	var row models.Account
	err := t.forUpdate().Where("id = ?", id).First(&row).Error
	return accountOrNotFound(&row, err)
}

// LockAccountByOrderID selects the account bound to an order FOR UPDATE
func (t *ledgerTx) LockAccountByOrderID(orderID string) (*domain.Account, error) {
	var row models.Account
	err := t.forUpdate().Where("order_id = ?", orderID).First(&row).Error
	return accountOrNotFound(&row, err)
}

// LockOldestAvailable selects the oldest free account FOR UPDATE SKIP LOCKED
func (t *ledgerTx) LockOldestAvailable() (*domain.Account, error) {
	var row models.Account
	err := t.db.
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", string(domain.StatusUnused)).
		Where("order_id IS NULL").
		Order("created_at ASC").
		First(&row).Error
	return accountOrNotFound(&row, err)
}

// CreateAccount inserts a new account
func (t *ledgerTx) CreateAccount(account *domain.Account) error {
	row := models.AccountFromDomain(account)
	if err := t.db.Create(row).Error; err != nil {
		return mapWriteError(err)
	}
	account.ID = row.ID
	account.CreatedAt = row.CreatedAt
	return nil
}

// SaveAccount writes every mutable column of an account
func (t *ledgerTx) SaveAccount(account *domain.Account) error {
	result := t.db.Model(&models.Account{}).
		Where("id = ?", account.ID).
		Updates(map[string]interface{}{
			"remaining_uses": account.RemainingUses,
			"status":         string(account.Status),
			"order_id":       account.OrderID,
			"platform":       account.Platform,
			"buyer_id":       account.BuyerID,
			"first_login_at": account.FirstLoginAt,
			"last_login_at":  account.LastLoginAt,
		})
	if result.Error != nil {
		return mapWriteError(result.Error)
	}
	return nil
}

// AppendUsageLog writes an entry inside the transaction
func (t *ledgerTx) AppendUsageLog(entry *domain.UsageLog) error {
	return appendUsageLog(t.db, entry)
}

// NextSequence upserts the daily counter and reads it back under lock
func (t *ledgerTx) NextSequence(dateKey string) (int, error) {
	seq := models.AccountSequence{Date: dateKey, Sequence: 1}
	err := t.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"sequence": gorm.Expr("account_sequences.sequence + 1"),
		}),
	}).Create(&seq).Error
	if err != nil {
		return 0, err
	}

	var row models.AccountSequence
	if err := t.forUpdate().Where(&models.AccountSequence{Date: dateKey}).First(&row).Error; err != nil {
		return 0, err
	}
	return row.Sequence, nil
}

func appendUsageLog(db *gorm.DB, entry *domain.UsageLog) error {
	row := models.UsageLogFromDomain(entry)
	if err := db.Create(row).Error; err != nil {
		return err
	}
	entry.ID = row.ID
	entry.CreatedAt = row.CreatedAt
	return nil
}

func accountOrNotFound(row *models.Account, err error) (*domain.Account, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// mapWriteError translates unique-key violations into domain.ErrDuplicateEntry
func mapWriteError(err error) error {
	if isDuplicate(err) {
		return fmt.Errorf("%w: %v", domain.ErrDuplicateEntry, err)
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// isTransient reports deadlocks, lock wait timeouts and serialization failures
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
