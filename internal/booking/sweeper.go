package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/slotwise/provider-booking/internal/observability"
)

// Sweeper periodically releases reservations whose grace period has
// elapsed without a confirmed payment. It is owned by the process that
// starts it: Start launches the loop, Stop shuts it down.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

func NewSweeper(svc *Service, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		svc:      svc,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start runs the sweep loop in the background until Stop is called or
// ctx is cancelled. The first sweep runs immediately.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("starting expiry sweeper", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

func (s *Sweeper) Stop() {
	s.logger.Info("stopping expiry sweeper")
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce(ctx)
		case <-s.stopChan:
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("expiry sweeper cancelled")
			return
		}
	}
}

// sweepOnce is fire-and-forget: errors are logged and the sweeper
// waits for the next tick. No caller depends on a sweep's outcome.
func (s *Sweeper) sweepOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	deleted, err := s.svc.SweepExpired(runCtx)
	observability.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("sweep run failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Info("sweep run complete",
			zap.Int("released", deleted),
			zap.Duration("took", time.Since(start)),
		)
	}
}
