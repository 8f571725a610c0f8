package rentcast

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/futureroot-service/internal/adapter/upstream"
	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
)

func testClient(baseURL string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := upstream.NewGuard("rentcast", upstream.DefaultOptions(0), observability.NewMetricsForTesting(), logger)
	return NewClient(Config{APIKey: "rc-key", BaseURL: baseURL, Timeout: 5 * time.Second}, guard, logger)
}

func TestMedianRent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "rc-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "11021", r.URL.Query().Get("zipCode"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"zipCode":"11021","rentalData":{"medianRent":3150,"averageRent":3300}}`))
	}))
	defer srv.Close()

	rent, err := testClient(srv.URL).MedianRent(context.Background(), "11021")
	require.NoError(t, err)
	assert.Equal(t, 3150.0, rent)
}

func TestMedianRent_TopLevelField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"zipCode":"11050","medianRent":2800}`))
	}))
	defer srv.Close()

	rent, err := testClient(srv.URL).MedianRent(context.Background(), "11050")
	require.NoError(t, err)
	assert.Equal(t, 2800.0, rent)
}

func TestMedianRent_Missing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"zipCode":"11050","rentalData":{}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).MedianRent(context.Background(), "11050")
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestMedianRent_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad key"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).MedianRent(context.Background(), "11050")
	var se *upstream.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
}
