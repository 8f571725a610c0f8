package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
)

func testGuard(opts Options) (*Guard, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewGuard("rentcast", opts, m, slog.New(slog.NewTextHandler(io.Discard, nil))), m
}

func TestDo_Success(t *testing.T) {
	g, m := testGuard(DefaultOptions(0))

	v, err := Do(context.Background(), g, func(context.Context) (float64, error) {
		return 2450, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2450.0, v)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("rentcast", "success")))
}

func TestDo_BreakerOpensOnServerErrors(t *testing.T) {
	g, m := testGuard(Options{FailureThreshold: 2, OpenTimeout: time.Minute})
	calls := 0
	fail := func(context.Context) (float64, error) {
		calls++
		return 0, &StatusError{Service: "rentcast", Code: http.StatusBadGateway}
	}

	for range 2 {
		_, err := Do(context.Background(), g, fail)
		require.Error(t, err)
	}
	_, err := Do(context.Background(), g, fail)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)

	assert.Equal(t, 2, calls, "open breaker must not call through")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("rentcast", "rejected")))
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(m.BreakerState.WithLabelValues("rentcast")))
}

func TestDo_DataGapsDoNotTrip(t *testing.T) {
	g, _ := testGuard(Options{FailureThreshold: 1, OpenTimeout: time.Minute})

	for range 3 {
		_, err := Do(context.Background(), g, func(context.Context) (float64, error) {
			return 0, domain.ErrInsufficientData
		})
		require.ErrorIs(t, err, domain.ErrInsufficientData)
	}
	_, err := Do(context.Background(), g, func(context.Context) (float64, error) {
		return 0, &StatusError{Code: http.StatusNotFound}
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, gobreaker.ErrOpenState))
}

func TestDo_RateLimitHonorsContext(t *testing.T) {
	g, _ := testGuard(DefaultOptions(0.001))
	_, err := Do(context.Background(), g, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = Do(ctx, g, func(context.Context) (int, error) { return 1, nil })
	assert.Error(t, err)
}

func TestIsSuccessful(t *testing.T) {
	assert.True(t, isSuccessful(nil))
	assert.True(t, isSuccessful(&StatusError{Code: http.StatusNotFound}))
	assert.False(t, isSuccessful(&StatusError{Code: http.StatusTooManyRequests}))
	assert.False(t, isSuccessful(&StatusError{Code: http.StatusServiceUnavailable}))
	assert.False(t, isSuccessful(errors.New("connection reset")))
}
