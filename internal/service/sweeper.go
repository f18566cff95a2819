package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/logema/payments-backend/internal/logger"
)

type AutoReleaser interface {
	AutoReleaseExpired(ctx context.Context, now time.Time) (released, failed int)
}

// Sweeper periodically releases escrows whose hold period has expired. A
// mutex guards against overlapping sweeps when one run outlasts the interval.
type Sweeper struct {
	escrow   AutoReleaser
	interval time.Duration
	mu       sync.Mutex
}

func NewSweeper(escrow AutoReleaser, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{escrow: escrow, interval: interval}
}

// Run sweeps on a ticker until ctx is cancelled. It blocks; callers start it
// on its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	if logger.Log != nil {
		logger.Log.WithField("interval", s.interval).Info("auto-release sweeper started")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if logger.Log != nil {
				logger.Log.Info("auto-release sweeper stopped")
			}
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. A pass already in flight makes this call a no-op.
func (s *Sweeper) Sweep(ctx context.Context) {
	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()

	released, failed := s.escrow.AutoReleaseExpired(ctx, time.Now())
	if (released > 0 || failed > 0) && logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"released": released,
			"failed":   failed,
		}).Info("auto-release sweep finished")
	}
}
