package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/infra/metrics"
	"storefront-billing/internal/infra/redis"
	"storefront-billing/internal/usecase"
)

const lockKey = "billing:sweeper:lock"

// Sweeper drives the four reconciliation sweeps on a fixed interval. A tick
// is skipped when the previous one is still running or when another instance
// holds the distributed lock.
type Sweeper struct {
	interval time.Duration
	lockTTL  time.Duration
	sweeps   usecase.SweepUseCase
	locker   redis.Locker
	running  atomic.Bool
	log      *zerolog.Logger
}

func NewSweeper(interval, lockTTL time.Duration, sweeps usecase.SweepUseCase, locker redis.Locker, logger *zerolog.Logger) *Sweeper {
	swLog := logger.With().Str("component", "Sweeper").Logger()
	return &Sweeper{
		interval: interval,
		lockTTL:  lockTTL,
		sweeps:   sweeps,
		locker:   locker,
		log:      &swLog,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("starting sweeper")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("stopping sweeper")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.IncSweepTickSkipped()
		s.log.Warn().Msg("previous tick still running, skipping")
		return
	}
	defer s.running.Store(false)

	token, err := s.locker.TryLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotAcquired) {
			metrics.IncSweepTickSkipped()
			s.log.Debug().Msg("lock held elsewhere, skipping tick")
			return
		}
		// lock store down: run anyway, sweeps are idempotent
		s.log.Warn().Err(err).Msg("lock unavailable, sweeping without it")
	} else {
		defer func() {
			if err := s.locker.Unlock(ctx, lockKey, token); err != nil {
				s.log.Warn().Err(err).Msg("lock release failed")
			}
		}()
	}

	s.runSweep(ctx, "trial_reminders", s.sweeps.SendTrialReminders)
	s.runSweep(ctx, "trial_expiry", s.sweeps.EnforceTrialExpiry)
	s.runSweep(ctx, "renewal_expiry", s.sweeps.EnforceRenewalExpiry)
	s.runSweep(ctx, "grace_expiry", s.sweeps.MarkGraceExpired)
}

func (s *Sweeper) runSweep(ctx context.Context, name string, fn func(context.Context) (int, error)) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	n, err := fn(ctx)
	metrics.ObserveSweepDuration(name, time.Since(start))
	if err != nil {
		metrics.IncSweepError(name)
		s.log.Error().Err(err).Str("sweep", name).Msg("sweep failed")
		return
	}
	if n > 0 {
		metrics.AddSweepAffected(name, n)
		s.log.Info().Str("sweep", name).Int("affected", n).Msg("sweep finished")
	}
}
