package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PoolWatcherConfig controls the pool watcher job
type PoolWatcherConfig struct {
	Spec       string // cron spec, e.g. "@every 10m"
	MinUnused  int    // refill when available accounts drop below this; 0 disables refill
	RefillUses int
}

// CronService runs background ledger jobs
type CronService struct {
	cron   *cron.Cron
	ledger *LedgerService
	cfg    PoolWatcherConfig
	wg     sync.WaitGroup
}

// NewCronService creates a new cron service
func NewCronService(ledger *LedgerService, cfg PoolWatcherConfig, loc *time.Location) *CronService {
	if loc == nil {
		loc = time.UTC
	}
	if cfg.Spec == "" {
		cfg.Spec = "@every 10m"
	}
	if cfg.RefillUses < 1 {
		cfg.RefillUses = DefaultUsesPerAccount
	}
	return &CronService{
		cron:   cron.New(cron.WithLocation(loc)),
		ledger: ledger,
		cfg:    cfg,
	}
}

// Start schedules the pool watcher and runs one check immediately
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Spec, s.checkPool); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("⏰ Pool watcher scheduled [%s, min unused %d]", s.cfg.Spec, s.cfg.MinUnused)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.checkPool()
	}()
	return nil
}

// Stop waits for running jobs, including the startup check, to finish
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	log.Println("⏰ Cron service stopped")
}

func (s *CronService) checkPool() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.RefillPool(ctx); err != nil {
		log.Printf("❌ Pool check failed: %v", err)
	}
}

// RefillPool tops the pool up to MinUnused available accounts and returns
// how many were created
func (s *CronService) RefillPool(ctx context.Context) (int, error) {
	status, err := s.ledger.PoolStatus(ctx)
	if err != nil {
		return 0, err
	}
	log.Printf("📊 Pool: total=%d available=%d active=%d expired=%d disabled=%d",
		status.Total, status.Available, status.Active, status.Expired, status.Disabled)

	missing := int64(s.cfg.MinUnused) - status.Available
	if s.cfg.MinUnused <= 0 || missing <= 0 {
		return 0, nil
	}
	if missing > MaxGenerateCount {
		missing = MaxGenerateCount
	}

	log.Printf("⚠️ Pool below %d available, generating %d accounts", s.cfg.MinUnused, missing)
	created, err := s.ledger.CreateAccounts(ctx, int(missing), s.cfg.RefillUses)
	if err != nil {
		return 0, err
	}
	return len(created), nil
}
