//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/futureroot-service/internal/observability"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, 10*time.Second, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_ResolveZIP(t *testing.T) {
	c := smokeClient(t)

	place, err := c.ResolveZIP(context.Background(), "11021")
	require.NoError(t, err)

	assert.InDelta(t, 40.80, place.Lat, 0.1, "lat should be near Great Neck")
	assert.InDelta(t, -73.73, place.Lon, 0.1, "lon should be near Great Neck")
	assert.Equal(t, "NY", place.State)
	assert.NotEmpty(t, place.City)
}

func TestSmoke_ResolveZIP_Unknown(t *testing.T) {
	c := smokeClient(t)

	// 00000 is not an assigned postcode.
	_, err := c.ResolveZIP(context.Background(), "00000")
	require.Error(t, err)
}

func TestSmoke_CachedResolver(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedResolver(c, 10, time.Hour, observability.NewMetricsForTesting())

	p1, err := cached.ResolveZIP(context.Background(), "10001")
	require.NoError(t, err)
	assert.Equal(t, "NY", p1.State)

	p2, err := cached.ResolveZIP(context.Background(), "10001")
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}
