// Package tasks runs deferred work: recommendation requests and on-demand
// livability enrichment are published to a queue, executed by a Worker, and
// tracked as pollable jobs.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
)

// JobStore tracks the status of deferred tasks.
type JobStore interface {
	Create(ctx context.Context, id string, typ domain.TaskType) (domain.Job, bool, error)
	Get(ctx context.Context, id string) (domain.Job, error)
	MarkRunning(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, result any, warning string) error
	Fail(ctx context.Context, id string, cause error) error
	FailStale(ctx context.Context, cutoff time.Time) (int, error)
	CollectGarbage() error
}

// Scheduler creates job records and publishes the matching tasks.
type Scheduler struct {
	queue   domain.TaskQueue
	jobs    JobStore
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(queue domain.TaskQueue, jobs JobStore, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	return &Scheduler{queue: queue, jobs: jobs, metrics: metrics, logger: logger}
}

// SubmitRecommendation enqueues a validated recommendation request and
// returns its job handle.
func (s *Scheduler) SubmitRecommendation(ctx context.Context, req domain.RecommendationRequest) (domain.Job, error) {
	id := uuid.NewString()
	job, _, err := s.jobs.Create(ctx, id, domain.TaskRecommend)
	if err != nil {
		return domain.Job{}, fmt.Errorf("create job: %w", err)
	}
	task := domain.Task{ID: id, Type: domain.TaskRecommend, Recommendation: &req, EnqueuedAt: domain.Now()}
	if err := s.publish(ctx, task); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

// LivabilityJobID is the job ID used for on-demand enrichment of zip, so at
// most one such job is pending per ZIP.
func LivabilityJobID(zip string) string {
	return "enrich-" + zip
}

// RequestLivability enqueues livability enrichment for zip unless a job for
// it is already queued or running, in which case that job is returned.
func (s *Scheduler) RequestLivability(ctx context.Context, zip string) (domain.Job, error) {
	id := LivabilityJobID(zip)
	job, created, err := s.jobs.Create(ctx, id, domain.TaskEnrichLivability)
	if err != nil {
		return domain.Job{}, fmt.Errorf("create job: %w", err)
	}
	if !created {
		s.logger.Debug("livability enrichment already pending", "zip", zip, "job_id", id)
		return job, nil
	}
	task := domain.Task{ID: id, Type: domain.TaskEnrichLivability, ZIP: zip, EnqueuedAt: domain.Now()}
	if err := s.publish(ctx, task); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

// Job returns the current status of a job.
func (s *Scheduler) Job(ctx context.Context, id string) (domain.Job, error) {
	return s.jobs.Get(ctx, id)
}

// publish marks the job failed if the task cannot be queued, so pollers do
// not wait on a task that will never run.
func (s *Scheduler) publish(ctx context.Context, t domain.Task) error {
	if err := s.queue.Publish(ctx, t); err != nil {
		if ferr := s.jobs.Fail(ctx, t.ID, err); ferr != nil {
			s.logger.Warn("mark unqueued job failed", "job_id", t.ID, "error", ferr)
		}
		return fmt.Errorf("enqueue %s task: %w", t.Type, err)
	}
	s.metrics.TasksEnqueued.WithLabelValues(string(t.Type)).Inc()
	s.logger.Debug("task enqueued", "job_id", t.ID, "type", t.Type)
	return nil
}
