package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"coach-connect/internal/domain/ports/repository"
	"coach-connect/internal/infra/metrics"
)

// Purger deletes audit rows older than a cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error)
}

// RetentionWorker periodically drops delivery audit rows older than the
// configured retention. The rows hold questionnaire answers.
type RetentionWorker struct {
	interval  time.Duration
	retention time.Duration
	repo      Purger
	now       func() time.Time
	log       *zerolog.Logger
}

func NewRetentionWorker(interval, retention time.Duration, repo Purger, logger *zerolog.Logger) *RetentionWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	l := logger.With().Str("component", "RetentionWorker").Logger()
	return &RetentionWorker{
		interval:  interval,
		retention: retention,
		repo:      repo,
		now:       time.Now,
		log:       &l,
	}
}

// Run purges once immediately and then on every tick until ctx is done.
func (w *RetentionWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("retention", w.retention).Msg("Starting retention worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.purge(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping retention worker")
			return ctx.Err()
		case <-ticker.C:
			w.purge(ctx)
		}
	}
}

func (w *RetentionWorker) purge(ctx context.Context) {
	cutoff := w.now().Add(-w.retention)
	n, err := w.repo.PurgeBefore(ctx, repository.NoTX, cutoff)
	if err != nil {
		w.log.Error().Err(err).Msg("retention worker error")
		return
	}
	if n > 0 {
		metrics.AddAuditPurged(n)
		w.log.Info().Int64("count", n).Time("cutoff", cutoff).Msg("expired audit rows purged")
	}
}
