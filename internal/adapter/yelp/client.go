// Package yelp searches business listings through the Yelp Fusion API.
package yelp

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/couchcryptid/futureroot-service/internal/adapter/upstream"
)

// DefaultBaseURL is the public Yelp Fusion API root.
const DefaultBaseURL = "https://api.yelp.com/v3"

// Config holds the explicit settings a Client needs.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// SearchQuery is a free-text category and location search.
type SearchQuery struct {
	Term       string
	Location   string
	Categories []string
	Limit      int
}

// Business is one listing from a search response.
type Business struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	Coordinates struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"coordinates"`
	Location struct {
		DisplayAddress []string `json:"display_address"`
	} `json:"location"`
}

// Address joins the display-address lines the way they render on a listing.
func (b Business) Address() string {
	return strings.Join(b.Location.DisplayAddress, ", ")
}

type searchResponse struct {
	Businesses []Business `json:"businesses"`
	Total      int        `json:"total"`
}

// Client calls the business search endpoint.
type Client struct {
	http   *resty.Client
	guard  *upstream.Guard
	logger *slog.Logger
}

// NewClient creates a Yelp client authenticated with a bearer API key.
func NewClient(cfg Config, guard *upstream.Guard, logger *slog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Accept", "application/json")
	return &Client{http: rc, guard: guard, logger: logger}
}

// Search returns the businesses matching q.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]Business, error) {
	params := map[string]string{
		"term":     q.Term,
		"location": q.Location,
	}
	if len(q.Categories) > 0 {
		params["categories"] = strings.Join(q.Categories, ",")
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}

	return upstream.Do(ctx, c.guard, func(ctx context.Context) ([]Business, error) {
		var body searchResponse
		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(&body).
			Get("/businesses/search")
		if err != nil {
			return nil, fmt.Errorf("yelp search %q: %w", q.Location, err)
		}
		if res.IsError() {
			return nil, &upstream.StatusError{Service: "yelp", Code: res.StatusCode(), Body: res.String()}
		}
		c.logger.Debug("yelp search", "location", q.Location, "returned", len(body.Businesses), "total", body.Total)
		return body.Businesses, nil
	})
}

// Providers runs a listing search and maps each business onto a daycare provider
// with no cost set.
func (c *Client) Providers(ctx context.Context, q domain.ListingQuery) ([]domain.ChildcareProvider, error) {
	found, err := c.Search(ctx, SearchQuery(q))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChildcareProvider, 0, len(found))
	for _, b := range found {
		out = append(out, b.provider())
	}
	return out, nil
}

func (b Business) provider() domain.ChildcareProvider {
	p := domain.ChildcareProvider{
		Name:    b.Name,
		Type:    domain.ProviderDaycare,
		Address: b.Address(),
		Lat:     b.Coordinates.Latitude,
		Lon:     b.Coordinates.Longitude,
		AddedOn: domain.Now(),
	}
	if b.Rating > 0 {
		p.QualityRating = domain.Ptr(b.Rating)
	}
	return p
}
