package services

import (
	"fmt"
	"time"

	"lifekline-api/internal/adapters/persistence/repositories"
	"lifekline-api/internal/core/domain"
	"lifekline-api/internal/pkg/password"
)

const (
	// UsernamePrefix starts every generated username
	UsernamePrefix = "LK"
	// MaxDailySequence is the largest sequence that fits the five-digit suffix
	MaxDailySequence = 99999
)

// CredentialService generates and hashes account credentials
type CredentialService struct {
	cost int
	loc  *time.Location
	now  func() time.Time
}

// NewCredentialService creates a credential service; a nil location means UTC
func NewCredentialService(bcryptCost int, loc *time.Location) *CredentialService {
	if loc == nil {
		loc = time.UTC
	}
	return &CredentialService{
		cost: bcryptCost,
		loc:  loc,
		now:  time.Now,
	}
}

// NewPassword returns a random password and its bcrypt hash
func (s *CredentialService) NewPassword() (plain, hash string, err error) {
	plain, err = password.Generate()
	if err != nil {
		return "", "", fmt.Errorf("generate password: %w", err)
	}
	hash, err = password.Hash(plain, s.cost)
	if err != nil {
		return "", "", fmt.Errorf("hash password: %w", err)
	}
	return plain, hash, nil
}

// DateKey returns the YYYYMMDD key of the current day in the configured timezone
func (s *CredentialService) DateKey() string {
	return s.now().In(s.loc).Format("20060102")
}

// NextUsername draws the next daily sequence number inside tx
func (s *CredentialService) NextUsername(tx repositories.LedgerTx) (string, error) {
	dateKey := s.DateKey()
	seq, err := tx.NextSequence(dateKey)
	if err != nil {
		return "", fmt.Errorf("next sequence for %s: %w", dateKey, err)
	}
	if seq < 1 || seq > MaxDailySequence {
		return "", fmt.Errorf("%w: %s reached %d", domain.ErrSequenceExhausted, dateKey, seq)
	}
	return FormatUsername(dateKey, seq), nil
}

// FormatUsername renders LK + date + five-digit sequence
func FormatUsername(dateKey string, seq int) string {
	return fmt.Sprintf("%s%s%05d", UsernamePrefix, dateKey, seq)
}

// Verify checks a password against a stored hash
func (s *CredentialService) Verify(plain, hash string) bool {
	return password.Verify(plain, hash)
}
