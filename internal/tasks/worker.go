package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
)

// Recommender executes a validated recommendation request.
type Recommender interface {
	Recommend(ctx context.Context, req domain.RecommendationRequest) (domain.Recommendation, error)
}

// LivabilityEnricher scrapes and stores livability data for one ZIP.
type LivabilityEnricher interface {
	EnrichLivability(ctx context.Context, zip string) error
}

// LivabilityResult is the job result of an enrich_livability task.
type LivabilityResult struct {
	ZIP        string `json:"zip_code"`
	AlreadySet bool   `json:"already_set,omitempty"`
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Worker executes tasks from a queue one at a time.
type Worker struct {
	queue       domain.TaskQueue
	jobs        JobStore
	recommender Recommender
	enricher    LivabilityEnricher
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
}

// NewWorker creates a Worker.
func NewWorker(queue domain.TaskQueue, jobs JobStore, recommender Recommender, enricher LivabilityEnricher, logger *slog.Logger, metrics *observability.Metrics) *Worker {
	return &Worker{
		queue:       queue,
		jobs:        jobs,
		recommender: recommender,
		enricher:    enricher,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once the worker is receiving from the queue.
func (w *Worker) CheckReadiness(_ context.Context) error {
	if !w.ready.Load() {
		return errors.New("task worker is not running")
	}
	return nil
}

// Run receives and executes tasks until ctx is cancelled or the queue closes.
// Receive errors back off exponentially from 200ms up to 5s.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("task worker started")
	w.metrics.WorkerRunning.Set(1)
	w.ready.Store(true)
	defer func() {
		w.ready.Store(false)
		w.metrics.WorkerRunning.Set(0)
	}()

	backoff := initialBackoff
	for {
		d, err := w.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrQueueClosed) || errors.Is(err, io.EOF) {
				w.logger.Info("task worker stopping", "reason", err)
				return nil
			}
			w.logger.Error("receive task failed", "error", err)
			if !sharedretry.SleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = sharedretry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		w.Process(ctx, d.Task)
		w.commit(ctx, d)
	}
}

// Process executes one task and records its outcome on the job.
func (w *Worker) Process(ctx context.Context, t domain.Task) {
	start := time.Now()
	typ := string(t.Type)
	if err := w.jobs.MarkRunning(ctx, t.ID); err != nil {
		w.logger.Warn("mark job running failed", "job_id", t.ID, "error", err)
	}

	result, warning, err := w.execute(ctx, t)

	outcome := "succeeded"
	if err != nil {
		outcome = "failed"
		w.logger.Error("task failed", "job_id", t.ID, "type", typ, "error", err)
		if ferr := w.jobs.Fail(ctx, t.ID, err); ferr != nil {
			w.logger.Warn("record job failure failed", "job_id", t.ID, "error", ferr)
		}
	} else {
		if cerr := w.jobs.Complete(ctx, t.ID, result, warning); cerr != nil {
			w.logger.Warn("record job result failed", "job_id", t.ID, "error", cerr)
		}
		w.logger.Info("task completed", "job_id", t.ID, "type", typ, "duration", time.Since(start))
	}
	w.metrics.TasksProcessed.WithLabelValues(typ, outcome).Inc()
	w.metrics.TaskDuration.WithLabelValues(typ).Observe(time.Since(start).Seconds())
}

// execute dispatches on the task type. A recommendation whose result could not
// be recorded still succeeds, with the persistence error as a warning.
func (w *Worker) execute(ctx context.Context, t domain.Task) (any, string, error) {
	switch t.Type {
	case domain.TaskRecommend:
		if t.Recommendation == nil {
			return nil, "", errors.New("recommend task has no request")
		}
		rec, err := w.recommender.Recommend(ctx, *t.Recommendation)
		if errors.Is(err, domain.ErrPersistResult) {
			return rec, err.Error(), nil
		}
		if err != nil {
			return nil, "", err
		}
		return rec, "", nil

	case domain.TaskEnrichLivability:
		err := w.enricher.EnrichLivability(ctx, t.ZIP)
		if errors.Is(err, domain.ErrAlreadySet) {
			return LivabilityResult{ZIP: t.ZIP, AlreadySet: true}, "", nil
		}
		if err != nil {
			return nil, "", err
		}
		return LivabilityResult{ZIP: t.ZIP}, "", nil
	}
	return nil, "", fmt.Errorf("unknown task type %q", t.Type)
}

func (w *Worker) commit(ctx context.Context, d domain.TaskDelivery) {
	if d.Commit == nil {
		return
	}
	if err := d.Commit(ctx); err != nil {
		w.logger.Warn("commit task failed", "job_id", d.Task.ID, "error", err)
	}
}
