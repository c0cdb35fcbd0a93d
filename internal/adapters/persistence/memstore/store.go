// Package memstore is an in-process LedgerStore. Transactions are
// serialized by a single lock and staged on copies, so a failing
// transaction leaves no trace.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"lifekline-api/internal/adapters/persistence/repositories"
	"lifekline-api/internal/core/domain"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	accounts  map[string]*domain.Account
	insertSeq map[string]int64
	nextSeq   int64
	sequences map[string]int
	logs      []*domain.UsageLog

	now func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		accounts:  make(map[string]*domain.Account),
		insertSeq: make(map[string]int64),
		sequences: make(map[string]int),
		now:       time.Now,
	}
}

var _ repositories.LedgerStore = (*Store)(nil)

func (s *Store) Transaction(ctx context.Context, fn func(tx repositories.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		s:         s,
		accounts:  make(map[string]*domain.Account),
		sequences: make(map[string]int),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) GetAccountByID(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[id]; ok {
		return clone(a), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (s *Store) GetAccountByUsername(_ context.Context, username string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Username == username {
			return clone(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *Store) CountByStatus(_ context.Context) (map[domain.AccountStatus]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.AccountStatus]int64)
	for _, a := range s.accounts {
		counts[a.Status]++
	}
	return counts, nil
}

func (s *Store) CountAvailable(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, a := range s.accounts {
		if a.Status == domain.StatusUnused && !a.IsAllocated() {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListAccounts(_ context.Context, filter repositories.AccountFilter, offset, limit int) ([]*domain.Account, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if filter.Status == "" || a.Status == filter.Status {
			matched = append(matched, a)
		}
	}
	// newest first
	sort.Slice(matched, func(i, j int) bool {
		return s.before(matched[j], matched[i])
	})

	total := int64(len(matched))
	start := offset
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if limit > 0 && limit < end-start {
		end = start + limit
	}

	page := make([]*domain.Account, 0, end-start)
	for _, a := range matched[start:end] {
		page = append(page, clone(a))
	}
	return page, total, nil
}

func (s *Store) ListUsageLogs(_ context.Context, accountID string, limit int) ([]*domain.UsageLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*domain.UsageLog, 0)
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].AccountID != accountID {
			continue
		}
		entry := *s.logs[i]
		entries = append(entries, &entry)
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	return entries, nil
}

func (s *Store) AppendUsageLog(_ context.Context, entry *domain.UsageLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendLog(entry)
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// UsageLogs returns a snapshot of every entry in insertion order
func (s *Store) UsageLogs() []*domain.UsageLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.UsageLog, len(s.logs))
	for i, l := range s.logs {
		entry := *l
		out[i] = &entry
	}
	return out
}

func (s *Store) appendLog(entry *domain.UsageLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	stored := *entry
	s.logs = append(s.logs, &stored)
}

// before orders accounts by creation time, then insertion order
func (s *Store) before(a, b *domain.Account) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return s.insertSeq[a.ID] < s.insertSeq[b.ID]
}

// memTx stages writes until the transaction function returns nil
type memTx struct {
	s         *Store
	accounts  map[string]*domain.Account
	created   []string
	sequences map[string]int
	logs      []*domain.UsageLog
}

func (t *memTx) current(id string) (*domain.Account, bool) {
	if a, ok := t.accounts[id]; ok {
		return a, true
	}
	a, ok := t.s.accounts[id]
	return a, ok
}

func (t *memTx) each(fn func(a *domain.Account)) {
	for id, a := range t.s.accounts {
		if staged, ok := t.accounts[id]; ok {
			a = staged
		}
		fn(a)
	}
	for _, id := range t.created {
		fn(t.accounts[id])
	}
}

func (t *memTx) LockAccountByID(id string) (*domain.Account, error) {
	if a, ok := t.current(id); ok {
		return clone(a), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (t *memTx) LockAccountByOrderID(orderID string) (*domain.Account, error) {
	var found *domain.Account
	t.each(func(a *domain.Account) {
		if found == nil && a.OrderID != nil && *a.OrderID == orderID {
			found = a
		}
	})
	if found == nil {
		return nil, domain.ErrAccountNotFound
	}
	return clone(found), nil
}

func (t *memTx) LockOldestAvailable() (*domain.Account, error) {
	var oldest *domain.Account
	t.each(func(a *domain.Account) {
		if a.Status != domain.StatusUnused || a.IsAllocated() {
			return
		}
		if oldest == nil || t.s.before(a, oldest) {
			oldest = a
		}
	})
	if oldest == nil {
		return nil, domain.ErrAccountNotFound
	}
	return clone(oldest), nil
}

func (t *memTx) CreateAccount(account *domain.Account) error {
	var dup bool
	t.each(func(a *domain.Account) {
		if a.Username == account.Username {
			dup = true
		}
	})
	if dup {
		return domain.ErrDuplicateEntry
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = t.s.now()
	}
	t.accounts[account.ID] = clone(account)
	t.created = append(t.created, account.ID)
	return nil
}

func (t *memTx) SaveAccount(account *domain.Account) error {
	if _, ok := t.current(account.ID); !ok {
		return domain.ErrAccountNotFound
	}
	if account.OrderID != nil {
		var dup bool
		t.each(func(a *domain.Account) {
			if a.ID != account.ID && a.OrderID != nil && *a.OrderID == *account.OrderID {
				dup = true
			}
		})
		if dup {
			return domain.ErrDuplicateEntry
		}
	}
	t.accounts[account.ID] = clone(account)
	return nil
}

func (t *memTx) AppendUsageLog(entry *domain.UsageLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = t.s.now()
	}
	stored := *entry
	t.logs = append(t.logs, &stored)
	return nil
}

func (t *memTx) NextSequence(dateKey string) (int, error) {
	seq, ok := t.sequences[dateKey]
	if !ok {
		seq = t.s.sequences[dateKey]
	}
	seq++
	t.sequences[dateKey] = seq
	return seq, nil
}

func (t *memTx) commit() {
	s := t.s
	for _, id := range t.created {
		s.nextSeq++
		s.insertSeq[id] = s.nextSeq
	}
	for id, a := range t.accounts {
		s.accounts[id] = a
	}
	for k, v := range t.sequences {
		s.sequences[k] = v
	}
	for _, l := range t.logs {
		s.appendLog(l)
	}
}

func clone(a *domain.Account) *domain.Account {
	c := *a
	return &c
}
