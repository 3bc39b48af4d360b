package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	red "invoice-portal/internal/infra/redis"
)

const purgeLockKey = "lock:link_purge"

// LinkPurger deletes access links that expired at or before the given instant.
type LinkPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int, error)
}

// LinkPurgeWorker periodically removes expired access links. With a locker set,
// only one replica purges per tick.
type LinkPurgeWorker struct {
	interval time.Duration
	purger   LinkPurger
	locker   red.Locker
	now      func() time.Time
	log      *zerolog.Logger
}

func NewLinkPurgeWorker(interval time.Duration, purger LinkPurger, locker red.Locker, logger *zerolog.Logger) *LinkPurgeWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	l := logger.With().Str("component", "LinkPurgeWorker").Logger()
	return &LinkPurgeWorker{
		interval: interval,
		purger:   purger,
		locker:   locker,
		now:      time.Now,
		log:      &l,
	}
}

func (w *LinkPurgeWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting link purge worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping link purge worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *LinkPurgeWorker) tick(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, purgeLockKey, w.interval/2)
		if err != nil {
			if !errors.Is(err, red.ErrLockHeld) {
				w.log.Warn().Err(err).Msg("purge lock unavailable")
			}
			return
		}
		defer func() {
			if err := w.locker.Unlock(ctx, purgeLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("purge unlock failed")
			}
		}()
	}

	n, err := w.purger.PurgeExpired(ctx, w.now())
	if err != nil {
		w.log.Error().Err(err).Msg("link purge error")
		return
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("expired links purged")
	}
}
