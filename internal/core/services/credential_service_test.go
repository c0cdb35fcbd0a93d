package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"lifekline-api/internal/adapters/persistence/memstore"
	"lifekline-api/internal/adapters/persistence/repositories"
	"lifekline-api/internal/core/domain"
	"lifekline-api/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestFormatUsername(t *testing.T) {
	assert.Equal(t, "LK2026010400007", FormatUsername("20260104", 7))
	assert.Equal(t, "LK2026010412345", FormatUsername("20260104", 12345))
}

func TestCredentialService_DateKeyUsesLocation(t *testing.T) {
	cst := time.FixedZone("CST", 8*3600)
	s := NewCredentialService(bcrypt.MinCost, cst)
	// 20:00 UTC on Jan 3 is already Jan 4 in UTC+8
	s.now = func() time.Time { return time.Date(2026, 1, 3, 20, 0, 0, 0, time.UTC) }

	assert.Equal(t, "20260104", s.DateKey())
}

func TestCredentialService_NewPassword(t *testing.T) {
	s := NewCredentialService(bcrypt.MinCost, nil)
	plain, hash, err := s.NewPassword()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(plain), password.MinLength)
	assert.LessOrEqual(t, len(plain), password.MaxLength)
	assert.True(t, s.Verify(plain, hash))
	assert.False(t, s.Verify(plain+"x", hash))
}

func TestCredentialService_ConcurrentIssuesAreContiguous(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ledger.credentials.now = func() time.Time { return time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC) }

	const callers = 5
	usernames := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := ledger.CreateAccounts(context.Background(), 1, 1)
			assert.NoError(t, err)
			if len(created) == 1 {
				usernames[i] = created[0].Username
			}
		}(i)
	}
	wg.Wait()

	sort.Strings(usernames)
	assert.Equal(t, []string{
		"LK2026010400001",
		"LK2026010400002",
		"LK2026010400003",
		"LK2026010400004",
		"LK2026010400005",
	}, usernames)
}

func TestCredentialService_SequenceResetsPerDay(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := NewCredentialService(bcrypt.MinCost, time.UTC)

	next := func() string {
		var username string
		err := store.Transaction(ctx, func(tx repositories.LedgerTx) error {
			var err error
			username, err = s.NextUsername(tx)
			return err
		})
		require.NoError(t, err)
		return username
	}

	day := time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day }
	first := next()
	second := next()

	s.now = func() time.Time { return day.AddDate(0, 0, 1) }
	tomorrow := next()

	assert.Equal(t, "LK2026010400001", first)
	assert.Equal(t, "LK2026010400002", second)
	assert.Equal(t, "LK2026010500001", tomorrow)
	assert.True(t, strings.HasPrefix(tomorrow, UsernamePrefix))
}

// fixedSequenceTx hands out a preset sequence number
type fixedSequenceTx struct {
	repositories.LedgerTx
	seq int
}

func (tx fixedSequenceTx) NextSequence(string) (int, error) { return tx.seq, nil }

func TestCredentialService_SequenceCap(t *testing.T) {
	s := NewCredentialService(bcrypt.MinCost, time.UTC)
	s.now = func() time.Time { return time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC) }

	username, err := s.NextUsername(fixedSequenceTx{seq: MaxDailySequence})
	require.NoError(t, err)
	assert.Equal(t, "LK2026010499999", username)

	_, err = s.NextUsername(fixedSequenceTx{seq: MaxDailySequence + 1})
	assert.ErrorIs(t, err, domain.ErrSequenceExhausted)
}

func TestLedger_CreateAccountsStopsAtSequenceCap(t *testing.T) {
	ledger, store := newTestLedger(t)
	ledger.credentials.now = func() time.Time { return time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	require.NoError(t, store.Transaction(ctx, func(tx repositories.LedgerTx) error {
		for i := 0; i < MaxDailySequence-1; i++ {
			if _, err := tx.NextSequence("20260104"); err != nil {
				return err
			}
		}
		return nil
	}))

	created, err := ledger.CreateAccounts(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "LK2026010499999", created[0].Username)

	_, err = ledger.CreateAccounts(ctx, 2, 1)
	assert.ErrorIs(t, err, domain.ErrSequenceExhausted)

	status, err := ledger.PoolStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.Total)
}
