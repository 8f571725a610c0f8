package tasks

import (
	"context"
	"sync"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

// MemoryQueue is an in-process TaskQueue backed by a buffered channel. Tasks
// are lost on restart; use the Kafka queue when that matters.
type MemoryQueue struct {
	tasks chan domain.Task
	done  chan struct{}
	once  sync.Once
}

// NewMemoryQueue creates a queue holding up to size pending tasks.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1
	}
	return &MemoryQueue{
		tasks: make(chan domain.Task, size),
		done:  make(chan struct{}),
	}
}

// Publish blocks while the queue is full.
func (q *MemoryQueue) Publish(ctx context.Context, t domain.Task) error {
	select {
	case <-q.done:
		return domain.ErrQueueClosed
	default:
	}
	select {
	case q.tasks <- t:
		return nil
	case <-q.done:
		return domain.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a task is available.
func (q *MemoryQueue) Receive(ctx context.Context) (domain.TaskDelivery, error) {
	select {
	case t := <-q.tasks:
		return domain.TaskDelivery{Task: t}, nil
	case <-q.done:
		return domain.TaskDelivery{}, domain.ErrQueueClosed
	case <-ctx.Done():
		return domain.TaskDelivery{}, ctx.Err()
	}
}

// Len reports the number of pending tasks.
func (q *MemoryQueue) Len() int {
	return len(q.tasks)
}

// Close is idempotent.
func (q *MemoryQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}
