package domain

import (
	"fmt"
	"time"
)

// AccountStatus is the lifecycle state of a prepaid account
type AccountStatus string

const (
	StatusUnused   AccountStatus = "unused"
	StatusActive   AccountStatus = "active"
	StatusExpired  AccountStatus = "expired"
	StatusDisabled AccountStatus = "disabled"
)

// AllStatuses lists every status in display order
var AllStatuses = []AccountStatus{StatusUnused, StatusActive, StatusExpired, StatusDisabled}

// Valid reports whether s is one of the known statuses
func (s AccountStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseAccountStatus converts a raw string into an AccountStatus
func ParseAccountStatus(raw string) (AccountStatus, error) {
	s := AccountStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown account status %q", ErrInvalidInput, raw)
	}
	return s, nil
}

// CanTransitionTo reports whether the ledger may move an account from s to next.
//
//	unused  -> active   (first login)
//	active  -> expired  (debit to zero)
//	unused  -> unused   (recycle)
//	*       -> disabled (admin)
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	if s == StatusDisabled {
		return false
	}
	if next == StatusDisabled {
		return true
	}
	switch s {
	case StatusUnused:
		return next == StatusActive || next == StatusUnused
	case StatusActive:
		return next == StatusActive || next == StatusExpired
	}
	return false
}

// ActionType tags every usage log entry
type ActionType string

const (
	ActionLogin          ActionType = "login"
	ActionLogout         ActionType = "logout"
	ActionGenerateMain   ActionType = "generate_main"
	ActionGenerateWealth ActionType = "generate_wealth"
	ActionGenerateLove   ActionType = "generate_love"
)

// IsGeneration reports whether the action consumes a credit
func (a ActionType) IsGeneration() bool {
	switch a {
	case ActionGenerateMain, ActionGenerateWealth, ActionGenerateLove:
		return true
	}
	return false
}

// Account represents a prepaid account in the domain layer
type Account struct {
	ID            string
	Username      string
	PasswordHash  string
	PasswordPlain string // kept only for order fulfillment and admin listing
	RemainingUses int
	TotalUses     int
	Status        AccountStatus
	OrderID       *string
	Platform      *string
	BuyerID       *string
	CreatedAt     time.Time
	FirstLoginAt  *time.Time
	LastLoginAt   *time.Time
}

// HasLoggedIn reports whether the account has ever been used
func (a *Account) HasLoggedIn() bool {
	return a.FirstLoginAt != nil
}

// IsAllocated reports whether the account is bound to an order
func (a *Account) IsAllocated() bool {
	return a.OrderID != nil
}

// UsageLog is one append-only audit record
type UsageLog struct {
	ID           string
	AccountID    string
	ActionType   ActionType
	UsesBefore   *int
	UsesAfter    *int
	UsesConsumed int
	IPAddress    string
	UserAgent    string
	ExtraData    []byte
	CreatedAt    time.Time
}

// RequestMeta carries request context recorded into the usage log
type RequestMeta struct {
	IPAddress string
	UserAgent string
	ExtraData []byte
}

// PoolStatus holds account counts by status
type PoolStatus struct {
	Total     int64 `json:"total"`
	Unused    int64 `json:"unused"`
	Active    int64 `json:"active"`
	Expired   int64 `json:"expired"`
	Disabled  int64 `json:"disabled"`
	Available int64 `json:"available"`
}

// Credentials is a username/password pair handed to a purchaser
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
