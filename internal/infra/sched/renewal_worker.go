package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/ports/adapter"
	"trading-academy/internal/infra/logging"
	"trading-academy/internal/usecase"
)

// Sweeper is the part of the subscription use case the renewal job drives.
type Sweeper interface {
	ProcessDueSubscriptions(ctx context.Context) (usecase.SweepResult, error)
}

const renewalLockKey = "lock:job:renewal_sweep"

// RenewalWorker runs the renewal sweep. With a Locker only one replica
// sweeps at a time; the others skip the tick.
type RenewalWorker struct {
	subs    Sweeper
	locker  adapter.Locker
	lockTTL time.Duration
	log     *zerolog.Logger
}

func NewRenewalWorker(subs Sweeper, locker adapter.Locker, lockTTL time.Duration, logger *zerolog.Logger) *RenewalWorker {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &RenewalWorker{
		subs:    subs,
		locker:  locker,
		lockTTL: lockTTL,
		log:     logging.Component(logger, "renewal_worker"),
	}
}

func (w *RenewalWorker) Name() string { return "renewal_sweep" }

func (w *RenewalWorker) Run(ctx context.Context) error {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, renewalLockKey, w.lockTTL)
		if errors.Is(err, domain.ErrLocked) {
			w.log.Debug().Msg("renewal sweep running elsewhere, skipping")
			return nil
		}
		if err != nil {
			return err
		}
		defer func() {
			if err := w.locker.Unlock(context.WithoutCancel(ctx), renewalLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("failed to release renewal lock")
			}
		}()
	}

	res, err := w.subs.ProcessDueSubscriptions(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("renewal sweep error")
		return err
	}
	if res.Due > 0 {
		w.log.Info().
			Int("due", res.Due).
			Int("renewed", res.Renewed).
			Int("failed", res.Failed).
			Int("suspended", res.Suspended).
			Msg("renewal sweep done")
	}
	return nil
}
