package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrAuthRequired       = errors.New("authentication required")
	ErrAuthExpired        = errors.New("session token expired")
	ErrAuthInvalid        = errors.New("session token invalid")
)

// Ledger errors
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientCredits = errors.New("no remaining uses")
	ErrPoolExhausted       = errors.New("account pool exhausted")
	ErrAllocationNotFound  = errors.New("no account allocated to order")
	ErrInvalidTransition   = errors.New("invalid account status transition")
	ErrStorageConflict     = errors.New("storage conflict, retries exhausted")
	ErrSequenceExhausted   = errors.New("daily username sequence exhausted")
)

// Generation errors
var (
	ErrUpstreamFailed     = errors.New("upstream generation failed")
	ErrServiceUnavailable = errors.New("generation service unavailable")
)

// Error codes returned to clients
const (
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeAuthExpired        = "AUTH_EXPIRED"
	CodeAuthInvalid        = "AUTH_INVALID"
	CodeAuthLocked         = "AUTH_LOCKED"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeInsufficientUses   = "INSUFFICIENT_USES"
	CodePoolExhausted      = "POOL_EXHAUSTED"
	CodeAIError            = "AI_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeAdminForbidden     = "ADMIN_FORBIDDEN"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidState       = "INVALID_STATE"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// InsufficientCreditsError carries the authoritative balance read inside the
// failed debit transaction.
type InsufficientCreditsError struct {
	Remaining int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("%s (remaining %d)", ErrInsufficientCredits, e.Remaining)
}

func (e *InsufficientCreditsError) Unwrap() error {
	return ErrInsufficientCredits
}

// UpstreamError wraps a failure reported by the external generator.
// Remaining carries the unchanged balance when it could be read.
type UpstreamError struct {
	Err       error
	Remaining *int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUpstreamFailed, e.Err)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamFailed
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
