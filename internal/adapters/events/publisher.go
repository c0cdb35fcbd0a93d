// Package events ships committed usage-log entries to downstream consumers
// (billing reconciliation, analytics). Publishing happens after the ledger
// transaction commits and never affects its outcome.
package events

import (
	"context"
	"encoding/json"
	"time"

	"lifekline-api/internal/core/domain"
)

// UsageEvent is the wire form of a committed usage-log entry
type UsageEvent struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"accountId"`
	ActionType   string          `json:"actionType"`
	UsesBefore   *int            `json:"usesBefore,omitempty"`
	UsesAfter    *int            `json:"usesAfter,omitempty"`
	UsesConsumed int             `json:"usesConsumed"`
	IPAddress    string          `json:"ipAddress,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	ExtraData    json.RawMessage `json:"extraData,omitempty"`
}

// NewUsageEvent converts a usage-log entry into its wire form
func NewUsageEvent(entry *domain.UsageLog) UsageEvent {
	ev := UsageEvent{
		ID:           entry.ID,
		AccountID:    entry.AccountID,
		ActionType:   string(entry.ActionType),
		UsesBefore:   entry.UsesBefore,
		UsesAfter:    entry.UsesAfter,
		UsesConsumed: entry.UsesConsumed,
		IPAddress:    entry.IPAddress,
		CreatedAt:    entry.CreatedAt,
	}
	if json.Valid(entry.ExtraData) {
		ev.ExtraData = json.RawMessage(entry.ExtraData)
	}
	return ev
}

// Publisher delivers usage events
type Publisher interface {
	Publish(ctx context.Context, entry *domain.UsageLog) error
	Close() error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *domain.UsageLog) error { return nil }

func (NoopPublisher) Close() error { return nil }
