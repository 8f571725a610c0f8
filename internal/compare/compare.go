// Package compare serves the read side: per-town childcare and housing cost
// comparisons and formatted location lookups.
package compare

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

// LivabilityRequester schedules livability enrichment for a ZIP without waiting for it.
type LivabilityRequester interface {
	RequestLivability(ctx context.Context, zip string) (domain.Job, error)
}

// TownComparison aggregates one town's providers and locations.
type TownComparison struct {
	AvgMonthlyChildcare *float64               `json:"avg_monthly_childcare"`
	AvgHousingCost      *string                `json:"avg_housing_cost"`
	Location            *domain.LocationRecord `json:"location_data"`
	Providers           int                    `json:"provider_count"`
	ZIPCodes            []string               `json:"zip_codes"`
	PendingEnrichment   bool                   `json:"pending_enrichment"`
}

// Service answers comparison and lookup queries. Missing livability data is
// requested asynchronously and flagged as pending rather than fetched inline.
type Service struct {
	providers domain.ProviderRepository
	locations domain.LocationRepository
	requester LivabilityRequester
	logger    *slog.Logger
}

// NewService creates a Service. requester may be nil, in which case missing
// data is only flagged.
func NewService(providers domain.ProviderRepository, locations domain.LocationRepository, requester LivabilityRequester, logger *slog.Logger) *Service {
	return &Service{providers: providers, locations: locations, requester: requester, logger: logger}
}

type townGroup struct {
	name      string
	providers int
	costs     []float64
	zips      map[string]bool
}

// CompareTowns groups providers by town. An empty towns list compares every
// town; otherwise names match case-insensitively.
func (s *Service) CompareTowns(ctx context.Context, towns []string) (map[string]TownComparison, error) {
	providers, err := s.providers.ListProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}

	wanted := make(map[string]bool, len(towns))
	for _, t := range towns {
		if t = strings.TrimSpace(t); t != "" {
			wanted[strings.ToLower(t)] = true
		}
	}

	groups := make(map[string]*townGroup)
	var order []string
	for _, p := range providers {
		if p.Town == nil || strings.TrimSpace(*p.Town) == "" {
			continue
		}
		name := strings.TrimSpace(*p.Town)
		key := strings.ToLower(name)
		if len(wanted) > 0 && !wanted[key] {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &townGroup{name: name, zips: make(map[string]bool)}
			groups[key] = g
			order = append(order, key)
		}
		g.providers++
		if p.CostPerMonth != nil {
			g.costs = append(g.costs, *p.CostPerMonth)
		}
		if zip, err := p.ZIP(); err == nil {
			g.zips[zip] = true
		}
	}

	out := make(map[string]TownComparison, len(groups))
	for _, key := range order {
		g := groups[key]
		c, err := s.compareTown(ctx, g)
		if err != nil {
			return nil, err
		}
		out[g.name] = c
	}
	return out, nil
}

func (s *Service) compareTown(ctx context.Context, g *townGroup) (TownComparison, error) {
	c := TownComparison{Providers: g.providers}
	if avg, ok := mean(g.costs); ok {
		c.AvgMonthlyChildcare = &avg
	}

	for zip := range g.zips {
		c.ZIPCodes = append(c.ZIPCodes, zip)
	}
	slices.Sort(c.ZIPCodes)

	var housing []float64
	for _, zip := range c.ZIPCodes {
		loc, err := s.locations.GetLocation(ctx, zip)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return TownComparison{}, fmt.Errorf("get location %s: %w", zip, err)
		}
		if loc.LivabilityScore == nil {
			s.request(ctx, zip)
			c.PendingEnrichment = true
		}
		if loc.HousingCost != nil {
			housing = append(housing, *loc.HousingCost)
		}
		if c.Location == nil {
			c.Location = &loc
		}
	}
	if avg, ok := mean(housing); ok {
		formatted := FormatDollars(avg)
		c.AvgHousingCost = &formatted
	}
	return c, nil
}

func (s *Service) request(ctx context.Context, zip string) {
	if s.requester == nil {
		return
	}
	if _, err := s.requester.RequestLivability(ctx, zip); err != nil {
		s.logger.Warn("livability enrichment not scheduled", "zip", zip, "error", err)
	}
}

// Providers lists every provider, or those in one town when town is not empty.
func (s *Service) Providers(ctx context.Context, town string) ([]domain.ChildcareProvider, error) {
	if town = strings.TrimSpace(town); town != "" {
		return s.providers.ListProvidersByTown(ctx, town)
	}
	return s.providers.ListProviders(ctx)
}

// LivabilityZIPs returns the ZIPs that have a livability score.
func (s *Service) LivabilityZIPs(ctx context.Context) ([]string, error) {
	records, err := s.locations.ListLocationsWithMetrics(ctx, []domain.MetricField{domain.MetricLivability})
	if err != nil {
		return nil, err
	}
	zips := make([]string, len(records))
	for i, r := range records {
		zips[i] = r.ZIP
	}
	return zips, nil
}

func mean(vs []float64) (float64, bool) {
	if len(vs) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return domain.Round2(sum / float64(len(vs))), true
}

// FormatDollars renders whole dollars with thousands separators, e.g. "$3,150".
func FormatDollars(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}
