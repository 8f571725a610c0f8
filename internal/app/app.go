// Package app assembles the adapters, stores and services shared by the
// server and the batch CLI from a loaded Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/futureroot-service/internal/adapter/aarp"
	"github.com/couchcryptid/futureroot-service/internal/adapter/mapbox"
	"github.com/couchcryptid/futureroot-service/internal/adapter/rentcast"
	"github.com/couchcryptid/futureroot-service/internal/adapter/upstream"
	"github.com/couchcryptid/futureroot-service/internal/adapter/yelp"
	"github.com/couchcryptid/futureroot-service/internal/adapter/ziptable"
	"github.com/couchcryptid/futureroot-service/internal/config"
	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
	"github.com/couchcryptid/futureroot-service/internal/pipeline"
	"github.com/couchcryptid/futureroot-service/internal/store/sqlite"
)

// Core holds the components both binaries need.
type Core struct {
	Store    *sqlite.Store
	Resolver domain.ZIPResolver
	Enricher *pipeline.Enricher
	Scraper  *aarp.Scraper

	closers []func()
}

// Close releases the browser and the database.
func (c *Core) Close() error {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	return c.Store.Close()
}

// NewCore opens the database and wires the enrichment sources. Sources whose
// credentials are missing are left nil and the jobs needing them are skipped.
func NewCore(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*Core, error) {
	store, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	core := &Core{Store: store}

	resolver, err := NewResolver(cfg, metrics, logger)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	core.Resolver = resolver

	src := pipeline.Sources{
		Resolver: resolver,
		Datasets: pipeline.DatasetsIn(cfg.DataDir),
	}
	opts := upstream.DefaultOptions(cfg.UpstreamRate)

	if cfg.RentcastAPIKey != "" {
		guard := upstream.NewGuard("rentcast", opts, metrics, logger)
		src.Rent = rentcast.NewClient(rentcast.Config{
			APIKey:  cfg.RentcastAPIKey,
			BaseURL: cfg.RentcastBaseURL,
			Timeout: cfg.UpstreamTimeout,
		}, guard, logger)
	} else {
		logger.Info("rentcast disabled, housing job will be skipped")
	}

	if cfg.YelpAPIKey != "" {
		guard := upstream.NewGuard("yelp", opts, metrics, logger)
		src.Listings = yelp.NewClient(yelp.Config{
			APIKey:  cfg.YelpAPIKey,
			BaseURL: cfg.YelpBaseURL,
			Timeout: cfg.UpstreamTimeout,
		}, guard, logger)
	} else {
		logger.Info("yelp disabled, provider import will be skipped")
	}

	guard := upstream.NewGuard("aarp", opts, metrics, logger)
	var renderer aarp.Renderer
	if cfg.BrowserEnabled {
		br := aarp.NewBrowserRenderer(cfg.UpstreamTimeout, guard, logger)
		core.closers = append(core.closers, br.Close)
		renderer = br
		logger.Info("livability scraper using headless browser")
	} else {
		renderer = aarp.NewHTTPRenderer(cfg.UpstreamTimeout, guard)
	}
	core.Scraper = aarp.NewScraper(aarp.Config{
		BaseURL:  cfg.AARPBaseURL,
		MinDelay: cfg.ScrapeMinDelay,
		MaxDelay: cfg.ScrapeMaxDelay,
	}, renderer, clockwork.NewRealClock(), logger)
	src.Livability = core.Scraper

	core.Enricher = pipeline.New(store, store, src, logger, metrics)
	return core, nil
}

// NewResolver builds the ZIP lookup chain: the offline table first, then
// Mapbox behind an LRU cache when enabled.
func NewResolver(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.ZIPResolver, error) {
	var table domain.ZIPResolver
	if cfg.ZIPTablePath != "" {
		t, err := ziptable.LoadFile(cfg.ZIPTablePath, metrics)
		if err != nil {
			return nil, fmt.Errorf("load zip table: %w", err)
		}
		logger.Info("zip table loaded", "path", cfg.ZIPTablePath, "entries", t.Len())
		table = t
	}

	var geocoder domain.ZIPResolver
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedResolver(client, cfg.MapboxCacheSize, cfg.MapboxCacheTTL, metrics)
		metrics.MapboxEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "cache_ttl", cfg.MapboxCacheTTL, "timeout", cfg.MapboxTimeout)
	} else {
		metrics.MapboxEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
	}

	return ziptable.NewChain(logger, table, geocoder), nil
}
