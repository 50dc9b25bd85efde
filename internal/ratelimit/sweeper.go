package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// maxBatchesPerTick bounds how long a single tick can keep sweeping.
const maxBatchesPerTick = 100

// Sweeper periodically deletes expired rate limit windows.
type Sweeper struct {
	limiter   *Limiter
	interval  time.Duration
	batchSize int
	now       func() time.Time

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewSweeper(limiter *Limiter, interval time.Duration, batchSize int) *Sweeper {
	return &Sweeper{
		limiter:   limiter,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start runs the sweep loop in the background until Stop or ctx cancellation.
func (s *Sweeper) Start(ctx context.Context) {
	go s.sweepLoop(ctx)

	zap.L().Info("Rate limit sweeper started",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batchSize))
}

// Stop signals the loop to exit and waits for it.
func (s *Sweeper) Stop() {
	zap.L().Info("Stopping rate limit sweeper")
	close(s.stopChan)
	<-s.doneChan
	zap.L().Info("Rate limit sweeper stopped")
}

func (s *Sweeper) sweepLoop(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SweepOnce deletes expired windows batch by batch while full batches come
// back, and returns the total deleted.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	now := s.now()
	total := 0

	for i := 0; i < maxBatchesPerTick; i++ {
		deleted, err := s.limiter.Sweep(ctx, now, s.batchSize)
		if err != nil {
			zap.L().Error("Failed to sweep rate limit windows", zap.Error(err))
			break
		}
		total += deleted
		if deleted < s.batchSize {
			break
		}
	}

	if total > 0 {
		zap.L().Info("Swept expired rate limit windows", zap.Int("deleted", total))
	}
	return total
}
