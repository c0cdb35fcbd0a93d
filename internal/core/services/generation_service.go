package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"lifekline-api/internal/core/domain"
	"lifekline-api/internal/pkg/bazi"
)

// UpstreamFunc performs one external generation call
type UpstreamFunc func(ctx context.Context) (interface{}, error)

// Generator produces reports from a birth chart
type Generator interface {
	Available() bool
	Generate(ctx context.Context, kind bazi.Kind, info *bazi.Info) (map[string]interface{}, error)
}

// GenerationResult is a delivered report and the balance after paying for it
type GenerationResult struct {
	Data          interface{}
	RemainingUses int
}

// GenerationService charges one credit per successful generation
type GenerationService struct {
	ledger    *LedgerService
	generator Generator
}

// NewGenerationService creates a new generation service
func NewGenerationService(ledger *LedgerService, generator Generator) *GenerationService {
	return &GenerationService{
		ledger:    ledger,
		generator: generator,
	}
}

// Available reports whether the upstream generator is configured
func (s *GenerationService) Available() bool {
	return s.generator != nil && s.generator.Available()
}

// ActionForKind maps a report kind to its usage-log action
func ActionForKind(kind bazi.Kind) (domain.ActionType, error) {
	switch kind {
	case bazi.KindMain:
		return domain.ActionGenerateMain, nil
	case bazi.KindWealth:
		return domain.ActionGenerateWealth, nil
	case bazi.KindLove:
		return domain.ActionGenerateLove, nil
	}
	return "", fmt.Errorf("%w: unknown report kind %q", domain.ErrInvalidInput, kind)
}

// Generate calls upstream first and debits only if it succeeded. A failed
// upstream call leaves the ledger untouched; a failed debit discards the output.
func (s *GenerationService) Generate(ctx context.Context, accountID string, action domain.ActionType, upstream UpstreamFunc, meta domain.RequestMeta) (*GenerationResult, error) {
	if err := s.precheck(ctx, accountID); err != nil {
		return nil, err
	}
	return s.run(ctx, accountID, action, upstream, meta)
}

// GenerateReport produces a report of the given kind through the configured generator
func (s *GenerationService) GenerateReport(ctx context.Context, accountID string, kind bazi.Kind, info *bazi.Info, meta domain.RequestMeta) (*GenerationResult, error) {
	action, err := ActionForKind(kind)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: baziInfo is required", domain.ErrInvalidInput)
	}
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if err := s.precheck(ctx, accountID); err != nil {
		return nil, err
	}
	if !s.Available() {
		return nil, domain.ErrServiceUnavailable
	}

	if len(meta.ExtraData) == 0 {
		if raw, err := json.Marshal(info); err == nil {
			meta.ExtraData = raw
		}
	}

	return s.run(ctx, accountID, action, func(ctx context.Context) (interface{}, error) {
		return s.generator.Generate(ctx, kind, info)
	}, meta)
}

// precheck rejects accounts that cannot pay before any upstream cost is incurred.
// It reads outside a transaction; DebitOne re-validates.
func (s *GenerationService) precheck(ctx context.Context, accountID string) error {
	acc, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if acc.Status == domain.StatusDisabled {
		return domain.ErrAccountDisabled
	}
	if acc.RemainingUses <= 0 {
		return &domain.InsufficientCreditsError{Remaining: 0}
	}
	return nil
}

func (s *GenerationService) run(ctx context.Context, accountID string, action domain.ActionType, upstream UpstreamFunc, meta domain.RequestMeta) (*GenerationResult, error) {
	data, err := upstream(ctx)
	if err != nil {
		log.Printf("❌ Upstream %s failed for %s: %v", action, accountID, err)
		failure := &domain.UpstreamError{Err: err}
		if acc, readErr := s.ledger.GetAccount(ctx, accountID); readErr == nil {
			remaining := acc.RemainingUses
			failure.Remaining = &remaining
		}
		return nil, failure
	}

	remaining, err := s.ledger.DebitOne(ctx, accountID, action, meta)
	if err != nil {
		log.Printf("⚠️ Discarding %s output for %s: %v", action, accountID, err)
		return nil, err
	}

	return &GenerationResult{
		Data:          data,
		RemainingUses: remaining,
	}, nil
}
