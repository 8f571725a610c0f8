package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/futureroot-service/internal/observability"
	"github.com/couchcryptid/futureroot-service/internal/pipeline"
)

// BatchRunner runs one enrichment job by name.
type BatchRunner interface {
	Run(ctx context.Context, job string) (pipeline.Summary, error)
}

// Sweeper periodically re-runs the livability job for records still missing
// scores, fails jobs that stopped making progress, and compacts the job store.
type Sweeper struct {
	jobs       JobStore
	batch      BatchRunner
	interval   time.Duration
	staleAfter time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewSweeper creates a Sweeper. Jobs not updated for staleAfter are failed.
func NewSweeper(jobs JobStore, batch BatchRunner, interval, staleAfter time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Sweeper {
	return &Sweeper{
		jobs:       jobs,
		batch:      batch,
		interval:   interval,
		staleAfter: staleAfter,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("sweeper started", "interval", s.interval)
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.staleAfter)
	n, err := s.jobs.FailStale(ctx, cutoff)
	if err != nil {
		s.logger.Error("fail stale jobs", "error", err)
	}
	if n > 0 {
		s.metrics.JobsSwept.Add(float64(n))
		s.logger.Warn("failed stale jobs", "count", n, "cutoff", cutoff)
	}
	if err := s.jobs.CollectGarbage(); err != nil {
		s.logger.Error("job store gc", "error", err)
	}

	if _, err := s.batch.Run(ctx, pipeline.JobLivability); err != nil {
		s.logger.Error("scheduled livability sweep failed", "error", err)
	}
}
