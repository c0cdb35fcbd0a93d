package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"lifekline-api/internal/core/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*ledgerStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &ledgerStore{db: db, maxRetries: 1, baseDelay: time.Millisecond}, mock
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "password_hash", "remaining_uses", "total_uses", "status", "created_at"}).
		AddRow("acc-1", "LK2026010400001", "hash", 2, 3, "active", time.Now())
}

func TestGetAccountByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetAccountByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitInTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE id = \\? .*FOR UPDATE").
		WillReturnRows(accountRows())
	mock.ExpectExec("UPDATE `accounts` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `usage_logs`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Transaction(context.Background(), func(tx LedgerTx) error {
		account, err := tx.LockAccountByID("acc-1")
		if err != nil {
			return err
		}
		assert.Equal(t, domain.StatusActive, account.Status)

		before := account.RemainingUses
		account.RemainingUses--
		after := account.RemainingUses
		if err := tx.SaveAccount(account); err != nil {
			return err
		}
		return tx.AppendUsageLog(&domain.UsageLog{
			AccountID:    account.ID,
			ActionType:   domain.ActionGenerateMain,
			UsesBefore:   &before,
			UsesAfter:    &after,
			UsesConsumed: 1,
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockOldestAvailableSkipsLockedRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE status = \\? AND order_id IS NULL ORDER BY created_at ASC.*FOR UPDATE SKIP LOCKED$").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "remaining_uses", "total_uses", "status", "created_at"}).
			AddRow("acc-9", "LK2026010400009", "hash", 3, 3, "unused", time.Now()))
	mock.ExpectCommit()

	err := store.Transaction(context.Background(), func(tx LedgerTx) error {
		account, err := tx.LockOldestAvailable()
		if err != nil {
			return err
		}
		assert.Equal(t, "acc-9", account.ID)
		assert.Equal(t, domain.StatusUnused, account.Status)
		assert.False(t, account.IsAllocated())
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockOldestAvailableEmptyPool(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE status = \\? AND order_id IS NULL .*FOR UPDATE SKIP LOCKED$").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.Transaction(context.Background(), func(tx LedgerTx) error {
		_, err := tx.LockOldestAvailable()
		return err
	})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocateLocksOrderThenPool(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE order_id = \\? .*FOR UPDATE$").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE status = \\? AND order_id IS NULL .*FOR UPDATE SKIP LOCKED$").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "remaining_uses", "total_uses", "status", "created_at"}).
			AddRow("acc-9", "LK2026010400009", "hash", 3, 3, "unused", time.Now()))
	mock.ExpectExec("UPDATE `accounts` SET .*`order_id`=\\?.*WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Transaction(context.Background(), func(tx LedgerTx) error {
		_, err := tx.LockAccountByOrderID("ORD-1")
		require.ErrorIs(t, err, domain.ErrAccountNotFound)

		account, err := tx.LockOldestAvailable()
		if err != nil {
			return err
		}
		orderID := "ORD-1"
		account.OrderID = &orderID
		return tx.SaveAccount(account)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockAccountByOrderID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE order_id = \\? .*FOR UPDATE$").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "status", "order_id", "created_at"}).
			AddRow("acc-1", "LK2026010400001", "unused", "ORD-1", time.Now()))
	mock.ExpectCommit()

	err := store.Transaction(context.Background(), func(tx LedgerTx) error {
		account, err := tx.LockAccountByOrderID("ORD-1")
		if err != nil {
			return err
		}
		require.NotNil(t, account.OrderID)
		assert.Equal(t, "ORD-1", *account.OrderID)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextSequenceUpsertsThenReadsUnderLock(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `account_sequences` .*ON DUPLICATE KEY UPDATE `sequence`=account_sequences.sequence \\+ 1").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectQuery("SELECT \\* FROM `account_sequences` WHERE `account_sequences`.`date` = \\? .*FOR UPDATE$").
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "sequence"}).AddRow(1, "20260104", 7))
	mock.ExpectCommit()

	var seq int
	err := store.Transaction(context.Background(), func(tx LedgerTx) error {
		var err error
		seq, err = tx.NextSequence("20260104")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 7, seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRetriesDeadlocks(t *testing.T) {
	store, mock := newMockStore(t)
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT \\* FROM `accounts`").WillReturnError(deadlock)
		mock.ExpectRollback()
	}

	attempts := 0
	err := store.Transaction(context.Background(), func(tx LedgerTx) error {
		attempts++
		_, err := tx.LockAccountByID("acc-1")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrStorageConflict)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionDoesNotRetryDomainErrors(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err := store.Transaction(context.Background(), func(tx LedgerTx) error {
		attempts++
		return domain.ErrPoolExhausted
	})
	assert.ErrorIs(t, err, domain.ErrPoolExhausted)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `accounts`").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := store.Transaction(context.Background(), func(tx LedgerTx) error {
		return tx.CreateAccount(&domain.Account{
			Username:     "LK2026010400001",
			PasswordHash: "hash",
			Status:       domain.StatusUnused,
		})
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) AS count FROM `accounts` GROUP BY `status`").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("unused", 4).
			AddRow("expired", 1))

	counts, err := store.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts[domain.StatusUnused])
	assert.Equal(t, int64(1), counts[domain.StatusExpired])
	assert.Zero(t, counts[domain.StatusActive])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, isDuplicate(&mysql.MySQLError{Number: 1062}))
	assert.True(t, isDuplicate(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isDuplicate(gorm.ErrDuplicatedKey))
	assert.False(t, isDuplicate(errors.New("boom")))

	assert.True(t, isTransient(&mysql.MySQLError{Number: 1213}))
	assert.True(t, isTransient(&mysql.MySQLError{Number: 1205}))
	assert.True(t, isTransient(&pgconn.PgError{Code: "40001"}))
	assert.True(t, isTransient(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, isTransient(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isTransient(nil))
}
