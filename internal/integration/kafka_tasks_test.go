//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/futureroot-service/internal/adapter/kafka"
	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
	"github.com/couchcryptid/futureroot-service/internal/store/jobstore"
	"github.com/couchcryptid/futureroot-service/internal/tasks"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	testcontainers.Logger = log.New(io.Discard, "", 0)

	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("futureroot-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type stubRecommender struct{}

func (stubRecommender) Recommend(_ context.Context, req domain.RecommendationRequest) (domain.Recommendation, error) {
	return domain.Recommendation{
		TargetZIP:  req.TargetZIP,
		Candidates: []domain.Candidate{{ZIP: "11021", Town: "Great Neck", DistanceMiles: 14.2, Score: 21}},
	}, nil
}

type stubEnricher struct{ zips chan string }

func (s stubEnricher) EnrichLivability(_ context.Context, zip string) error {
	s.zips <- zip
	return nil
}

// TestKafkaTaskQueueRoundTrip publishes a task and reads it back with its
// commit callback.
func TestKafkaTaskQueueRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	topic := "tasks-roundtrip"
	createTopic(t, broker, topic)

	q := kafka.NewTaskQueue(kafka.Config{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: fmt.Sprintf("test-roundtrip-%d", time.Now().UnixNano()),
	}, discardLogger())
	t.Cleanup(func() { _ = q.Close() })

	sent := domain.Task{ID: "enrich-11576", Type: domain.TaskEnrichLivability, ZIP: "11576", EnqueuedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, q.Publish(ctx, sent))

	d, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, sent.ID, d.Task.ID)
	assert.Equal(t, sent.Type, d.Task.Type)
	assert.Equal(t, "11576", d.Task.ZIP)
	assert.True(t, sent.EnqueuedAt.Equal(d.Task.EnqueuedAt))
	require.NotNil(t, d.Commit, "commit callback should be set")
	require.NoError(t, d.Commit(ctx))
}

// TestKafkaWorkerEndToEnd runs the scheduler and worker over a real broker and
// polls the job store until both task types complete.
func TestKafkaWorkerEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	topic := "tasks-e2e"
	createTopic(t, broker, topic)

	q := kafka.NewTaskQueue(kafka.Config{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: fmt.Sprintf("test-worker-%d", time.Now().UnixNano()),
	}, discardLogger())
	t.Cleanup(func() { _ = q.Close() })

	jobs, err := jobstore.Open("", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Close() })

	metrics := observability.NewMetricsForTesting()
	enricher := stubEnricher{zips: make(chan string, 1)}
	scheduler := tasks.NewScheduler(q, jobs, metrics, discardLogger())
	worker := tasks.NewWorker(q, jobs, stubRecommender{}, enricher, discardLogger(), metrics)

	workerCtx, workerCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- worker.Run(workerCtx) }()

	rec, err := scheduler.SubmitRecommendation(ctx, domain.RecommendationRequest{
		UserID:      1,
		Preferences: []domain.MetricField{domain.MetricHousing, domain.MetricHealth, domain.MetricLivability},
		TargetZIP:   "11576",
	})
	require.NoError(t, err)
	_, err = scheduler.RequestLivability(ctx, "11577")
	require.NoError(t, err)

	var job domain.Job
	require.Eventually(t, func() bool {
		job, err = jobs.Get(ctx, rec.ID)
		return err == nil && job.Status == domain.JobSucceeded
	}, 60*time.Second, 200*time.Millisecond, "recommendation job did not complete")

	var got domain.Recommendation
	require.NoError(t, json.Unmarshal(job.Result, &got))
	assert.Equal(t, "11576", got.TargetZIP)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "Great Neck", got.Candidates[0].Town)

	select {
	case zip := <-enricher.zips:
		assert.Equal(t, "11577", zip)
	case <-ctx.Done():
		t.Fatal("livability task was not delivered")
	}

	workerCancel()
	require.NoError(t, <-errCh)
}
