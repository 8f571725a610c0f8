package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements domain.ZIPResolver using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// ResolveZIP looks up a US postcode and returns its place name, state and centroid.
func (c *Client) ResolveZIP(ctx context.Context, zip string) (domain.ZIPPlace, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(zip))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"postcode"},
		"country":      {"us"},
	}

	start := time.Now()
	place, err := c.doRequest(ctx, u+"?"+params.Encode(), zip)
	c.metrics.ResolveDuration.WithLabelValues("mapbox").Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.ResolveRequests.WithLabelValues("mapbox", "error").Inc()
		c.logger.Warn("mapbox zip lookup failed", "zip", zip, "error", err)
	case place.City == "":
		c.metrics.ResolveRequests.WithLabelValues("mapbox", "empty").Inc()
		return domain.ZIPPlace{}, fmt.Errorf("mapbox: %w: %s", domain.ErrUnresolvedZIP, zip)
	default:
		c.metrics.ResolveRequests.WithLabelValues("mapbox", "success").Inc()
	}
	return place, err
}

func (c *Client) doRequest(ctx context.Context, fullURL, zip string) (domain.ZIPPlace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.ZIPPlace{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ZIPPlace{}, fmt.Errorf("postcode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.ZIPPlace{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.ZIPPlace{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.ZIPPlace{}, nil
	}

	f := mapboxResp.Features[0]
	place := domain.ZIPPlace{ZIP: zip}
	if len(f.Center) == 2 {
		place.Lon = f.Center[0]
		place.Lat = f.Center[1]
	}
	for _, ctxEntry := range f.Context {
		switch {
		case strings.HasPrefix(ctxEntry.ID, "place."):
			place.City = ctxEntry.Text
		case strings.HasPrefix(ctxEntry.ID, "locality.") && place.City == "":
			place.City = ctxEntry.Text
		case strings.HasPrefix(ctxEntry.ID, "region."):
			place.State = strings.TrimPrefix(strings.ToUpper(ctxEntry.ShortCode), "US-")
		}
	}
	return place, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64      `json:"center"` // [lon, lat]
	PlaceName string         `json:"place_name"`
	Text      string         `json:"text"`
	Context   []contextEntry `json:"context"`
}

type contextEntry struct {
	ID        string `json:"id"` // "place.1234", "region.5678"
	Text      string `json:"text"`
	ShortCode string `json:"short_code"`
}
