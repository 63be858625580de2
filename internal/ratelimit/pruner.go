package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/wolfman30/aesthetic-leads/pkg/logging"
)

// PruneScheduler periodically deletes counters for buckets older than the
// retention. The current bucket is never touched.
type PruneScheduler struct {
	pruner    Pruner
	retention time.Duration
	logger    *logging.Logger
	now       func() time.Time
	cron      *cron.Cron
}

// NewPruneScheduler builds a scheduler; nil pruner yields nil.
func NewPruneScheduler(pruner Pruner, retention time.Duration, logger *logging.Logger) *PruneScheduler {
	if pruner == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if retention < 0 {
		retention = 0
	}
	return &PruneScheduler{
		pruner:    pruner,
		retention: retention,
		logger:    logger,
		now:       time.Now,
		cron:      cron.New(cron.WithLocation(time.UTC)),
	}
}

// Cutoff is the earliest bucket start that survives a prune run at now.
func (s *PruneScheduler) Cutoff(now time.Time) time.Time {
	return BucketStart(now).Add(-s.retention)
}

// PruneOnce runs a single sweep.
func (s *PruneScheduler) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := s.Cutoff(s.now())
	removed, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("rate limit prune failed", "error", err, "cutoff", cutoff)
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("rate limit counters pruned", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

// Start registers the sweep on the cron spec (e.g. "@hourly") and starts the
// scheduler in the background.
func (s *PruneScheduler) Start(spec string) error {
	if s == nil {
		return errors.New("ratelimit: prune scheduler not configured")
	}
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, _ = s.PruneOnce(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("rate limit pruning scheduled", "spec", spec, "retention", s.retention.String())
	return nil
}

// Stop halts the scheduler and returns a context done when a running sweep finishes.
func (s *PruneScheduler) Stop() context.Context {
	if s == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return s.cron.Stop()
}
