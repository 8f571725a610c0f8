// Command server runs the HTTP API, the deferred-task worker and the
// livability sweeper under one supervisor.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	httpadapter "github.com/couchcryptid/futureroot-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/futureroot-service/internal/adapter/kafka"
	"github.com/couchcryptid/futureroot-service/internal/app"
	"github.com/couchcryptid/futureroot-service/internal/auth"
	"github.com/couchcryptid/futureroot-service/internal/compare"
	"github.com/couchcryptid/futureroot-service/internal/config"
	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
	"github.com/couchcryptid/futureroot-service/internal/recommend"
	"github.com/couchcryptid/futureroot-service/internal/store/jobstore"
	"github.com/couchcryptid/futureroot-service/internal/tasks"
)

const (
	memoryQueueSize = 256
	staleJobAfter   = 30 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, metrics, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) error {
	core, err := app.NewCore(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("close core", "error", err)
		}
	}()

	jobs, err := jobstore.Open(cfg.JobStorePath, cfg.JobTTL)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobs.Close(); err != nil {
			logger.Error("job store close error", "error", err)
		}
	}()

	queue := newQueue(cfg, logger)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Error("task queue close error", "error", err)
		}
	}()

	accounts, err := auth.NewService(core.Store, auth.Options{Secret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL})
	if err != nil {
		return err
	}
	engine := recommend.NewEngine(core.Store, core.Store, core.Store, core.Resolver, metrics, logger)
	scheduler := tasks.NewScheduler(queue, jobs, metrics, logger)
	comparer := compare.NewService(core.Store, core.Store, scheduler, logger)
	worker := tasks.NewWorker(queue, jobs, engine, core.Enricher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Accounts:  accounts,
		Comparer:  comparer,
		Validator: engine,
		Jobs:      scheduler,
		Ready:     readiness{core.Store, worker},
	}, httpadapter.Options{
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}, logger)

	sup := suture.New("futureroot", suture.Spec{
		EventHook: (&sutureslog.Handler{Logger: logger}).MustHook(),
		Timeout:   cfg.ShutdownTimeout,
	})
	sup.Add(service{name: "http-server", run: func(ctx context.Context) error {
		return srv.Serve(ctx, cfg.ShutdownTimeout)
	}})
	sup.Add(service{name: "task-worker", run: worker.Run})
	if cfg.SweepInterval > 0 {
		sweeper := tasks.NewSweeper(jobs, core.Enricher, cfg.SweepInterval, staleJobAfter, clockwork.NewRealClock(), logger, metrics)
		sup.Add(service{name: "sweeper", run: sweeper.Run})
	} else {
		logger.Info("livability sweeper disabled")
	}

	logger.Info("service starting", "addr", cfg.HTTPAddr, "task_queue", cfg.TaskQueue)
	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	logger.Info("shutting down")
	return nil
}

func newQueue(cfg *config.Config, logger *slog.Logger) domain.TaskQueue {
	if cfg.TaskQueue == config.QueueKafka {
		logger.Info("kafka task queue", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTaskTopic)
		return kafkaadapter.NewTaskQueue(kafkaadapter.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTaskTopic,
			GroupID: cfg.KafkaGroupID,
		}, logger)
	}
	return tasks.NewMemoryQueue(memoryQueueSize)
}

// service adapts a blocking run function to suture.Service. A run that
// returns while its context is still live is not restarted.
type service struct {
	name string
	run  func(ctx context.Context) error
}

func (s service) Serve(ctx context.Context) error {
	err := s.run(ctx)
	if err == nil && ctx.Err() == nil {
		return suture.ErrDoNotRestart
	}
	return err
}

func (s service) String() string { return s.name }

// readiness requires every checker to pass.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
