package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
)

// RentSource returns the median monthly rent for a ZIP.
type RentSource interface {
	MedianRent(ctx context.Context, zip string) (float64, error)
}

// LivabilitySource scrapes livability sub-scores for a ZIP.
type LivabilitySource interface {
	Scores(ctx context.Context, zip string) (domain.LivabilityScores, error)
}

// ListingSource searches a business-listing API for childcare providers.
type ListingSource interface {
	Providers(ctx context.Context, q domain.ListingQuery) ([]domain.ChildcareProvider, error)
}

// Datasets names the static extracts read by the dataset-backed jobs.
type Datasets struct {
	HomeValues  string
	TaxBrackets string
	Commute     string
	NDCP        string
	ZIPCounty   string
}

// DatasetsIn returns the conventional file names under dir.
func DatasetsIn(dir string) Datasets {
	return Datasets{
		HomeValues:  filepath.Join(dir, "B25077_median_home_value.csv"),
		TaxBrackets: filepath.Join(dir, "B25103_property_taxes_paid.csv"),
		Commute:     filepath.Join(dir, "commuteData.csv"),
		NDCP:        filepath.Join(dir, "NDCP2022.csv"),
		ZIPCounty:   filepath.Join(dir, "ZIP_COUNTY_032025.csv"),
	}
}

// Sources bundles the adapters the jobs read from. A nil source disables the
// jobs that need it.
type Sources struct {
	Rent       RentSource
	Livability LivabilitySource
	Listings   ListingSource
	Resolver   domain.ZIPResolver
	Datasets   Datasets
	Import     domain.ListingQuery
}

// DefaultImportQuery is the provider import search.
var DefaultImportQuery = domain.ListingQuery{
	Term:       "childcare",
	Location:   "Roslyn, NY",
	Categories: []string{"childcare", "daycare", "preschool"},
	Limit:      50,
}

// ErrSourceUnavailable is returned when a job runs without its source configured.
var ErrSourceUnavailable = errors.New("source not configured")

// Summary is the terminal report of one job run.
type Summary struct {
	Job         string `json:"job"`
	Updated     int    `json:"updated"`
	Skipped     int    `json:"skipped"`
	AlreadySet  int    `json:"already_set"`
	Interrupted bool   `json:"interrupted,omitempty"`
}

// Total is the number of records visited.
func (s Summary) Total() int {
	return s.Updated + s.Skipped + s.AlreadySet
}

// Enricher runs the enrichment jobs against the location and provider stores.
// Records are processed one at a time; each record commits independently.
type Enricher struct {
	locations domain.LocationRepository
	providers domain.ProviderRepository
	src       Sources
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates an Enricher.
func New(locations domain.LocationRepository, providers domain.ProviderRepository, src Sources, logger *slog.Logger, metrics *observability.Metrics) *Enricher {
	if src.Import.Term == "" {
		src.Import = DefaultImportQuery
	}
	return &Enricher{
		locations: locations,
		providers: providers,
		src:       src,
		logger:    logger,
		metrics:   metrics,
	}
}

// each applies fn to every item in order and tallies the outcome: nil is an
// update, ErrAlreadySet is counted apart, anything else is a logged skip.
// It stops between records once ctx is done and returns the partial summary.
func each[T any](ctx context.Context, e *Enricher, job string, items []T, attr func(T) slog.Attr, fn func(context.Context, T) error) Summary {
	start := time.Now()
	s := Summary{Job: job}

	for _, it := range items {
		if ctx.Err() != nil {
			s.Interrupted = true
			break
		}

		err := fn(ctx, it)
		switch {
		case err == nil:
			s.Updated++
			e.metrics.EnrichmentRecords.WithLabelValues(job, "updated").Inc()
		case errors.Is(err, domain.ErrAlreadySet):
			s.AlreadySet++
			e.metrics.EnrichmentRecords.WithLabelValues(job, "already_set").Inc()
		case ctx.Err() != nil:
			s.Interrupted = true
		default:
			s.Skipped++
			e.metrics.EnrichmentRecords.WithLabelValues(job, "skipped").Inc()
			e.logger.Warn("enrichment skipped record", "job", job, attr(it), "error", err)
		}
		if s.Interrupted {
			break
		}
	}

	e.metrics.EnrichmentRunDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
	e.logger.Info("enrichment finished",
		"job", job,
		"updated", s.Updated,
		"skipped", s.Skipped,
		"already_set", s.AlreadySet,
		"interrupted", s.Interrupted,
		"duration", time.Since(start),
	)
	return s
}

func zipAttr(r domain.LocationRecord) slog.Attr {
	return slog.String("zip", r.ZIP)
}

func providerAttr(p domain.ChildcareProvider) slog.Attr {
	return slog.String("provider", p.Name)
}

// knownLocations returns every stored location plus an empty record for each
// ZIP referenced by a provider address or listed in extra but not yet stored,
// ordered by ZIP.
func (e *Enricher) knownLocations(ctx context.Context, extra []string) ([]domain.LocationRecord, error) {
	stored, err := e.locations.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	providers, err := e.providers.ListProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}

	seen := make(map[string]bool, len(stored))
	out := make([]domain.LocationRecord, 0, len(stored))
	for _, r := range stored {
		seen[r.ZIP] = true
		out = append(out, r)
	}
	for _, p := range providers {
		zip, err := p.ZIP()
		if err != nil || seen[zip] {
			continue
		}
		seen[zip] = true
		out = append(out, domain.LocationRecord{ZIP: zip})
	}
	for _, zip := range extra {
		if seen[zip] || !domain.ValidZIP(zip) {
			continue
		}
		seen[zip] = true
		out = append(out, domain.LocationRecord{ZIP: zip})
	}

	slices.SortFunc(out, func(a, b domain.LocationRecord) int {
		return cmp.Compare(a.ZIP, b.ZIP)
	})
	return out, nil
}

// overLocations runs fn over the known locations, skipping the record with
// ErrAlreadySet when isSet reports the target field populated.
func (e *Enricher) overLocations(ctx context.Context, job string, isSet func(domain.LocationRecord) bool, fn func(context.Context, domain.LocationRecord) error) (Summary, error) {
	return e.overZIPs(ctx, job, nil, isSet, fn)
}

// overZIPs is overLocations that also visits, and so creates, the ZIPs in extra.
func (e *Enricher) overZIPs(ctx context.Context, job string, extra []string, isSet func(domain.LocationRecord) bool, fn func(context.Context, domain.LocationRecord) error) (Summary, error) {
	records, err := e.knownLocations(ctx, extra)
	if err != nil {
		return Summary{Job: job}, err
	}
	return each(ctx, e, job, records, zipAttr, func(ctx context.Context, r domain.LocationRecord) error {
		if isSet(r) {
			return domain.ErrAlreadySet
		}
		return fn(ctx, r)
	}), nil
}

// overProviders is overLocations for childcare providers.
func (e *Enricher) overProviders(ctx context.Context, job string, isSet func(domain.ChildcareProvider) bool, fn func(context.Context, domain.ChildcareProvider) error) (Summary, error) {
	providers, err := e.providers.ListProviders(ctx)
	if err != nil {
		return Summary{Job: job}, fmt.Errorf("list providers: %w", err)
	}
	return each(ctx, e, job, providers, providerAttr, func(ctx context.Context, p domain.ChildcareProvider) error {
		if isSet(p) {
			return domain.ErrAlreadySet
		}
		return fn(ctx, p)
	}), nil
}
