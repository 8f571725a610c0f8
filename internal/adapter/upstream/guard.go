// Package upstream wraps calls to third-party data sources with a rate limiter
// and a circuit breaker so a failing source is skipped quickly during a batch run.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
)

// StatusError reports a non-2xx response from a data source.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Code, e.Body)
}

// Options tune a Guard.
type Options struct {
	// RatePerSecond caps call rate; zero or negative means unlimited.
	RatePerSecond float64
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// DefaultOptions returns production defaults.
func DefaultOptions(ratePerSecond float64) Options {
	return Options{
		RatePerSecond:    ratePerSecond,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Guard rate-limits and circuit-breaks calls to one named service.
type Guard struct {
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
	metrics *observability.Metrics
}

// NewGuard creates a guard for service name.
func NewGuard(name string, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Guard {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	g := &Guard{
		name:    name,
		limiter: rate.NewLimiter(limit, 1),
		metrics: metrics,
	}
	g.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("upstream breaker state change", "service", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	metrics.BreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return g
}

// Name returns the service label.
func (g *Guard) Name() string {
	return g.name
}

// isSuccessful keeps per-record data gaps from tripping the breaker; only
// transport failures, 429s and 5xx count against the source.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, domain.ErrInsufficientData) || errors.Is(err, domain.ErrUnresolvedZIP) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code < 500 && se.Code != http.StatusTooManyRequests
	}
	return false
}

// Do waits for the rate limiter, then runs fn through the circuit breaker.
func Do[T any](ctx context.Context, g *Guard, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := g.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("%s rate limit: %w", g.name, err)
	}

	start := time.Now()
	out, err := g.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	g.metrics.UpstreamDuration.WithLabelValues(g.name).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.metrics.UpstreamRequests.WithLabelValues(g.name, "rejected").Inc()
		return zero, fmt.Errorf("%s: %w", g.name, err)
	case err != nil:
		g.metrics.UpstreamRequests.WithLabelValues(g.name, "error").Inc()
		return zero, err
	}
	g.metrics.UpstreamRequests.WithLabelValues(g.name, "success").Inc()
	v, _ := out.(T)
	return v, nil
}
