// Package aarp scrapes livability sub-scores and median household income per ZIP.
package aarp

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

// DefaultBaseURL is the public livability index site.
const DefaultBaseURL = "https://livabilityindex.aarp.org"

// Config holds the explicit settings a Scraper needs.
type Config struct {
	BaseURL  string
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Scraper loads one page per ZIP, pausing a random interval between loads.
type Scraper struct {
	renderer Renderer
	baseURL  string
	minDelay time.Duration
	maxDelay time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	mu       sync.Mutex
	lastLoad time.Time
}

// NewScraper creates a scraper over renderer.
func NewScraper(cfg Config, renderer Renderer, clock clockwork.Clock, logger *slog.Logger) *Scraper {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	return &Scraper{
		renderer: renderer,
		baseURL:  base,
		minDelay: cfg.MinDelay,
		maxDelay: cfg.MaxDelay,
		clock:    clock,
		logger:   logger,
	}
}

// PageURL returns the search page for zip.
func (s *Scraper) PageURL(zip string) string {
	return s.baseURL + "/search/" + url.PathEscape(zip+", United States")
}

// Scores renders and parses the livability page for zip. Calls are serialized.
func (s *Scraper) Scores(ctx context.Context, zip string) (domain.LivabilityScores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pause(ctx); err != nil {
		return domain.LivabilityScores{}, err
	}
	html, err := s.renderer.Render(ctx, s.PageURL(zip))
	s.lastLoad = s.clock.Now()
	if err != nil {
		return domain.LivabilityScores{}, fmt.Errorf("livability %s: %w", zip, err)
	}
	return ParseScores(zip, html)
}

func (s *Scraper) pause(ctx context.Context) error {
	if s.lastLoad.IsZero() || s.maxDelay <= 0 {
		return nil
	}
	delay := s.minDelay
	if span := s.maxDelay - s.minDelay; span > 0 {
		delay += rand.N(span)
	}
	wait := delay - s.clock.Since(s.lastLoad)
	if wait <= 0 {
		return nil
	}
	s.logger.Debug("scrape delay", "wait", wait)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(wait):
		return nil
	}
}
