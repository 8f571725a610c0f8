// Package kafka carries deferred tasks over a Kafka topic so enqueued work
// survives a service restart.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

const (
	headerTaskType   = "task_type"
	headerEnqueuedAt = "enqueued_at"
)

// Config selects the brokers, topic and consumer group of a TaskQueue.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// TaskQueue implements domain.TaskQueue on a Kafka topic. Offsets are
// committed only after the worker has recorded the task outcome.
type TaskQueue struct {
	writer *kafkago.Writer
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewTaskQueue creates a producer and a consumer-group reader for cfg.Topic.
func NewTaskQueue(cfg Config, logger *slog.Logger) *TaskQueue {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafkago.FirstOffset,
		MaxWait:     time.Second,
	})
	return &TaskQueue{writer: w, reader: r, logger: logger}
}

// Publish writes t to the topic keyed by its ID.
func (q *TaskQueue) Publish(ctx context.Context, t domain.Task) error {
	msg, err := serializeTask(t)
	if err != nil {
		return err
	}
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return domain.ErrQueueClosed
		}
		return fmt.Errorf("publish task %s: %w", t.ID, err)
	}
	return nil
}

// Receive fetches the next decodable task. Messages that cannot be decoded
// are logged, committed and skipped so they do not block the partition.
func (q *TaskQueue) Receive(ctx context.Context) (domain.TaskDelivery, error) {
	for {
		msg, err := q.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return domain.TaskDelivery{}, domain.ErrQueueClosed
			}
			return domain.TaskDelivery{}, err
		}
		task, err := mapMessageToTask(msg)
		if err != nil {
			q.logger.Warn("skipping undecodable task message",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
			if cerr := q.reader.CommitMessages(ctx, msg); cerr != nil {
				return domain.TaskDelivery{}, fmt.Errorf("commit skipped message: %w", cerr)
			}
			continue
		}
		return domain.TaskDelivery{
			Task: task,
			Commit: func(ctx context.Context) error {
				return q.reader.CommitMessages(ctx, msg)
			},
		}, nil
	}
}

// Close closes the producer and the consumer.
func (q *TaskQueue) Close() error {
	return errors.Join(q.writer.Close(), q.reader.Close())
}

func serializeTask(t domain.Task) (kafkago.Message, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize task: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(t.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: headerTaskType, Value: []byte(t.Type)},
			{Key: headerEnqueuedAt, Value: []byte(t.EnqueuedAt.Format(time.RFC3339))},
		},
	}, nil
}

func mapMessageToTask(msg kafkago.Message) (domain.Task, error) {
	var t domain.Task
	if err := json.Unmarshal(msg.Value, &t); err != nil {
		return domain.Task{}, fmt.Errorf("decode task: %w", err)
	}
	if t.ID == "" {
		t.ID = string(msg.Key)
	}
	if t.ID == "" {
		return domain.Task{}, errors.New("task has no id")
	}
	if t.Type == "" {
		for _, h := range msg.Headers {
			if h.Key == headerTaskType {
				t.Type = domain.TaskType(h.Value)
			}
		}
	}
	return t, nil
}
