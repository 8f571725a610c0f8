// Package rentcast fetches ZIP-level rental market data from the RentCast API.
package rentcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/couchcryptid/futureroot-service/internal/adapter/upstream"
	"github.com/couchcryptid/futureroot-service/internal/domain"
)

// DefaultBaseURL is the public RentCast API root.
const DefaultBaseURL = "https://api.rentcast.io/v1"

// Config holds the explicit settings a Client needs.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client reads median rent per ZIP.
type Client struct {
	http   *resty.Client
	guard  *upstream.Guard
	logger *slog.Logger
}

// NewClient creates a RentCast client. Calls go through guard.
func NewClient(cfg Config, guard *upstream.Guard, logger *slog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("X-Api-Key", cfg.APIKey).
		SetHeader("Accept", "application/json")
	return &Client{http: rc, guard: guard, logger: logger}
}

type marketResponse struct {
	ZIPCode     string   `json:"zipCode"`
	MedianRent  *float64 `json:"medianRent"`
	LastUpdated string   `json:"lastUpdated"`
	RentalData  *struct {
		MedianRent  *float64 `json:"medianRent"`
		AverageRent *float64 `json:"averageRent"`
	} `json:"rentalData"`
}

func (r marketResponse) medianRent() (float64, bool) {
	if r.RentalData != nil && r.RentalData.MedianRent != nil && *r.RentalData.MedianRent > 0 {
		return *r.RentalData.MedianRent, true
	}
	if r.MedianRent != nil && *r.MedianRent > 0 {
		return *r.MedianRent, true
	}
	return 0, false
}

// MedianRent returns the median monthly rent for zip. A response without a
// positive median yields domain.ErrInsufficientData.
func (c *Client) MedianRent(ctx context.Context, zip string) (float64, error) {
	return upstream.Do(ctx, c.guard, func(ctx context.Context) (float64, error) {
		var body marketResponse
		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{"zipCode": zip, "dataType": "Rental"}).
			SetResult(&body).
			Get("/markets")
		if err != nil {
			return 0, fmt.Errorf("rentcast request %s: %w", zip, err)
		}
		if res.IsError() {
			return 0, &upstream.StatusError{Service: "rentcast", Code: res.StatusCode(), Body: res.String()}
		}
		rent, ok := body.medianRent()
		if !ok {
			return 0, fmt.Errorf("rentcast %s: %w: no median rent", zip, domain.ErrInsufficientData)
		}
		c.logger.Debug("rentcast median rent", "zip", zip, "rent", rent, "last_updated", body.LastUpdated)
		return rent, nil
	})
}
