package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"hosted-checkout/internal/domain"
	"hosted-checkout/internal/infra/redis"
)

const cleanupLockKey = "lock:checkout:cleanup"

// Sweeper removes expired checkout sessions. usecase.CheckoutUseCase satisfies it.
type Sweeper interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// CleanupWorker periodically sweeps expired sessions. With a locker, only one
// replica sweeps per tick.
type CleanupWorker struct {
	interval time.Duration
	sweeper  Sweeper
	locker   redis.Locker
	log      *zerolog.Logger
}

// NewCleanupWorker builds the worker; locker may be nil for single-instance deployments.
func NewCleanupWorker(interval time.Duration, sweeper Sweeper, locker redis.Locker, logger *zerolog.Logger) *CleanupWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	l := logger.With().Str("component", "CleanupWorker").Logger()
	return &CleanupWorker{interval: interval, sweeper: sweeper, locker: locker, log: &l}
}

func (w *CleanupWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting cleanup worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping cleanup worker")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				w.log.Error().Err(err).Msg("cleanup worker error")
			}
		}
	}
}

// Sweep runs one cleanup pass. It returns 0 without error when another
// replica holds the lock.
func (w *CleanupWorker) Sweep(ctx context.Context) (int, error) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, cleanupLockKey, w.interval)
		if errors.Is(err, domain.ErrLockNotAcquired) {
			w.log.Debug().Msg("cleanup skipped, lock held elsewhere")
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		defer func() {
			if err := w.locker.Unlock(context.Background(), cleanupLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("cleanup lock release failed")
			}
		}()
	}

	n, err := w.sweeper.CleanupExpired(ctx)
	if err != nil {
		return n, err
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("expired checkout sessions removed")
	}
	return n, nil
}
