package scheduler

import (
	"context"
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/accounts"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/egress"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
	redisstore "github.com/Miroshka000/Microsoft-Key-Checker/internal/store/redis"
)

// Snapshotter handles periodic persistence of pool state to Redis.
// Pools also persist on mutation; the ticker covers state that only
// changes implicitly, like cooldown expiry.
type Snapshotter struct {
	accounts *accounts.Pool
	egress   *egress.Pool
	store    *redisstore.Store
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSnapshotter creates a new snapshotter
func NewSnapshotter(
	accountPool *accounts.Pool,
	egressPool *egress.Pool,
	store *redisstore.Store,
	log logger.Logger,
	interval time.Duration,
) *Snapshotter {
	return &Snapshotter{
		accounts: accountPool,
		egress:   egressPool,
		store:    store,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic snapshot process
func (s *Snapshotter) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Flush(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the snapshotter
func (s *Snapshotter) Stop() {
	close(s.stopCh)
}

// Flush persists both pools once (best effort)
func (s *Snapshotter) Flush(ctx context.Context) {
	if s.store == nil {
		return
	}

	if err := s.store.SaveAccounts(ctx, s.accounts.Snapshot()); err != nil {
		s.logger.Warn("failed to snapshot accounts to redis",
			logger.Error(err))
	}

	if err := s.store.SaveEgressServices(ctx, s.egress.Snapshot()); err != nil {
		s.logger.Warn("failed to snapshot egress services to redis",
			logger.Error(err))
	}
}
