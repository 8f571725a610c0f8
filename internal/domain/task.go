package domain

import (
	"context"
	"encoding/json"
	"time"
)

// TaskType selects the handler for a deferred task.
type TaskType string

const (
	TaskRecommend        TaskType = "recommend"
	TaskEnrichLivability TaskType = "enrich_livability"
)

// RecommendationRequest is the validated input of a recommendation.
type RecommendationRequest struct {
	UserID      int64         `json:"user_id"`
	Preferences []MetricField `json:"preferences"`
	TargetZIP   string        `json:"target_zip"`
	Label       string        `json:"label,omitempty"`
}

// Task is one unit of deferred work. Its ID doubles as the Job ID.
type Task struct {
	ID             string                 `json:"id"`
	Type           TaskType               `json:"type"`
	Recommendation *RecommendationRequest `json:"recommendation,omitempty"`
	ZIP            string                 `json:"zip,omitempty"`
	EnqueuedAt     time.Time              `json:"enqueued_at"`
}

// JobStatus tracks a task through its lifecycle.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is the pollable status of a Task.
type Job struct {
	ID        string          `json:"id"`
	Type      TaskType        `json:"type"`
	Status    JobStatus       `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Warning   string          `json:"warning,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Done reports whether the job reached a terminal status.
func (j Job) Done() bool {
	return j.Status == JobSucceeded || j.Status == JobFailed
}

// Recommendation is the result payload of a recommend task.
type Recommendation struct {
	ResultID   int64       `json:"result_id,omitempty"`
	TargetZIP  string      `json:"target_zip"`
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one recommended ZIP.
type Candidate struct {
	ZIP           string                `json:"zip_code"`
	Town          string                `json:"town"`
	DistanceMiles float64               `json:"distance"`
	Score         int                   `json:"score"`
	Grades        map[MetricField]Grade `json:"details"`
}

// TaskDelivery is a task read from a queue. Commit acknowledges it and may be
// nil for queues without acknowledgement.
type TaskDelivery struct {
	Task   Task
	Commit func(ctx context.Context) error
}

// TaskQueue transports deferred tasks from the HTTP API to the worker.
type TaskQueue interface {
	Publish(ctx context.Context, t Task) error
	Receive(ctx context.Context) (TaskDelivery, error)
	Close() error
}
