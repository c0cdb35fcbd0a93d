package models

import (
	"time"

	"lifekline-api/internal/core/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ============================================================
// Accounts & credit ledger
// ============================================================

// Account represents accounts table
type Account struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Username      string     `gorm:"uniqueIndex;size:32;not null" json:"username"`
	PasswordHash  string     `gorm:"size:255;not null" json:"-"`
	PasswordPlain string     `gorm:"size:32" json:"-"`
	RemainingUses int        `gorm:"not null;default:0" json:"remaining_uses"`
	TotalUses     int        `gorm:"not null;default:0" json:"total_uses"`
	Status        string     `gorm:"size:16;not null;default:'unused';index:idx_accounts_status_created,priority:1" json:"status"`
	OrderID       *string    `gorm:"uniqueIndex;size:64" json:"order_id"`
	Platform      *string    `gorm:"size:32" json:"platform"`
	BuyerID       *string    `gorm:"size:64" json:"buyer_id"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index:idx_accounts_status_created,priority:2" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	FirstLoginAt  *time.Time `json:"first_login_at"`
	LastLoginAt   *time.Time `json:"last_login_at"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ToDomain converts the row into a domain account
func (a *Account) ToDomain() *domain.Account {
	return &domain.Account{
		ID:            a.ID,
		Username:      a.Username,
		PasswordHash:  a.PasswordHash,
		PasswordPlain: a.PasswordPlain,
		RemainingUses: a.RemainingUses,
		TotalUses:     a.TotalUses,
		Status:        domain.AccountStatus(a.Status),
		OrderID:       a.OrderID,
		Platform:      a.Platform,
		BuyerID:       a.BuyerID,
		CreatedAt:     a.CreatedAt,
		FirstLoginAt:  a.FirstLoginAt,
		LastLoginAt:   a.LastLoginAt,
	}
}

// AccountFromDomain builds a row from a domain account
func AccountFromDomain(a *domain.Account) *Account {
	return &Account{
		ID:            a.ID,
		Username:      a.Username,
		PasswordHash:  a.PasswordHash,
		PasswordPlain: a.PasswordPlain,
		RemainingUses: a.RemainingUses,
		TotalUses:     a.TotalUses,
		Status:        string(a.Status),
		OrderID:       a.OrderID,
		Platform:      a.Platform,
		BuyerID:       a.BuyerID,
		CreatedAt:     a.CreatedAt,
		FirstLoginAt:  a.FirstLoginAt,
		LastLoginAt:   a.LastLoginAt,
	}
}

// AccountSequence represents account_sequences table.
// One row per calendar day; sequence is the last issued suffix.
type AccountSequence struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Date     string `gorm:"uniqueIndex;size:8;not null" json:"date"`
	Sequence int    `gorm:"not null;default:0" json:"sequence"`
}

func (AccountSequence) TableName() string {
	return "account_sequences"
}

// UsageLog represents usage_logs table (append-only)
type UsageLog struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	AccountID    string         `gorm:"size:36;not null;index:idx_usage_logs_account_created,priority:1" json:"account_id"`
	ActionType   string         `gorm:"size:32;not null;index" json:"action_type"`
	UsesBefore   *int           `json:"uses_before"`
	UsesAfter    *int           `json:"uses_after"`
	UsesConsumed int            `gorm:"not null;default:0" json:"uses_consumed"`
	IPAddress    string         `gorm:"size:64" json:"ip_address"`
	UserAgent    string         `gorm:"size:512" json:"user_agent"`
	ExtraData    datatypes.JSON `json:"extra_data"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index:idx_usage_logs_account_created,priority:2" json:"created_at"`
}

func (UsageLog) TableName() string {
	return "usage_logs"
}

func (l *UsageLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// ToDomain converts the row into a domain usage log
func (l *UsageLog) ToDomain() *domain.UsageLog {
	return &domain.UsageLog{
		ID:           l.ID,
		AccountID:    l.AccountID,
		ActionType:   domain.ActionType(l.ActionType),
		UsesBefore:   l.UsesBefore,
		UsesAfter:    l.UsesAfter,
		UsesConsumed: l.UsesConsumed,
		IPAddress:    l.IPAddress,
		UserAgent:    l.UserAgent,
		ExtraData:    []byte(l.ExtraData),
		CreatedAt:    l.CreatedAt,
	}
}

// UsageLogFromDomain builds a row from a domain usage log
func UsageLogFromDomain(l *domain.UsageLog) *UsageLog {
	row := &UsageLog{
		ID:           l.ID,
		AccountID:    l.AccountID,
		ActionType:   string(l.ActionType),
		UsesBefore:   l.UsesBefore,
		UsesAfter:    l.UsesAfter,
		UsesConsumed: l.UsesConsumed,
		IPAddress:    l.IPAddress,
		UserAgent:    l.UserAgent,
		CreatedAt:    l.CreatedAt,
	}
	if len(l.ExtraData) > 0 {
		row.ExtraData = datatypes.JSON(l.ExtraData)
	}
	return row
}

// ============================================================
// Response DTOs
// ============================================================

// AccountResponse is the admin list view (no password fields)
type AccountResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	RemainingUses int        `json:"remainingUses"`
	TotalUses     int        `json:"totalUses"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	FirstLoginAt  *time.Time `json:"firstLoginAt"`
	LastLoginAt   *time.Time `json:"lastLoginAt"`
	OrderID       *string    `json:"orderId"`
	Platform      *string    `json:"platform"`
}

// NewAccountResponse builds the admin list view of an account
func NewAccountResponse(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		Username:      a.Username,
		RemainingUses: a.RemainingUses,
		TotalUses:     a.TotalUses,
		Status:        string(a.Status),
		CreatedAt:     a.CreatedAt,
		FirstLoginAt:  a.FirstLoginAt,
		LastLoginAt:   a.LastLoginAt,
		OrderID:       a.OrderID,
		Platform:      a.Platform,
	}
}

// ProfileResponse is what an authenticated account sees about itself
type ProfileResponse struct {
	Username      string     `json:"username"`
	RemainingUses int        `json:"remainingUses"`
	TotalUses     int        `json:"totalUses"`
	Status        string     `json:"status"`
	FirstLoginAt  *time.Time `json:"firstLoginAt"`
	LastLoginAt   *time.Time `json:"lastLoginAt"`
}

// NewProfileResponse builds the self view of an account
func NewProfileResponse(a *domain.Account) *ProfileResponse {
	return &ProfileResponse{
		Username:      a.Username,
		RemainingUses: a.RemainingUses,
		TotalUses:     a.TotalUses,
		Status:        string(a.Status),
		FirstLoginAt:  a.FirstLoginAt,
		LastLoginAt:   a.LastLoginAt,
	}
}

// UsageLogResponse is the admin view of a usage-log entry
type UsageLogResponse struct {
	ID           string         `json:"id"`
	ActionType   string         `json:"actionType"`
	UsesBefore   *int           `json:"usesBefore"`
	UsesAfter    *int           `json:"usesAfter"`
	UsesConsumed int            `json:"usesConsumed"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	ExtraData    datatypes.JSON `json:"extraData,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// NewUsageLogResponse builds the admin view of a usage-log entry
func NewUsageLogResponse(l *domain.UsageLog) *UsageLogResponse {
	resp := &UsageLogResponse{
		ID:           l.ID,
		ActionType:   string(l.ActionType),
		UsesBefore:   l.UsesBefore,
		UsesAfter:    l.UsesAfter,
		UsesConsumed: l.UsesConsumed,
		IPAddress:    l.IPAddress,
		UserAgent:    l.UserAgent,
		CreatedAt:    l.CreatedAt,
	}
	if len(l.ExtraData) > 0 {
		resp.ExtraData = datatypes.JSON(l.ExtraData)
	}
	return resp
}

// AutoMigrate runs auto migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{},
		&AccountSequence{},
		&UsageLog{},
	)
}
