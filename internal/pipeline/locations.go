package pipeline

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/couchcryptid/futureroot-service/internal/adapter/dataset"
	"github.com/couchcryptid/futureroot-service/internal/domain"
)

// Housing fills housingCost from the rent API's median rent.
func (e *Enricher) Housing(ctx context.Context) (Summary, error) {
	if e.src.Rent == nil {
		return Summary{Job: JobHousing}, fmt.Errorf("%s: rent api: %w", JobHousing, ErrSourceUnavailable)
	}
	return e.overLocations(ctx, JobHousing,
		func(r domain.LocationRecord) bool { return r.HousingCost != nil },
		func(ctx context.Context, r domain.LocationRecord) error {
			rent, err := e.src.Rent.MedianRent(ctx, r.ZIP)
			if err != nil {
				return err
			}
			return e.locations.UpsertLocation(ctx, domain.LocationRecord{ZIP: r.ZIP, HousingCost: domain.Ptr(domain.Round2(rent))})
		})
}

// TaxRate fills taxRate from the home-value and tax-bracket extracts.
func (e *Enricher) TaxRate(ctx context.Context) (Summary, error) {
	homeValues, err := dataset.LoadHomeValues(e.src.Datasets.HomeValues)
	if err != nil {
		return Summary{Job: JobTaxRate}, fmt.Errorf("%s: %w", JobTaxRate, err)
	}
	brackets, err := dataset.LoadTaxBrackets(e.src.Datasets.TaxBrackets)
	if err != nil {
		return Summary{Job: JobTaxRate}, fmt.Errorf("%s: %w", JobTaxRate, err)
	}

	return e.overLocations(ctx, JobTaxRate,
		func(r domain.LocationRecord) bool { return r.TaxRate != nil },
		func(ctx context.Context, r domain.LocationRecord) error {
			b, ok := brackets[r.ZIP]
			if !ok {
				return fmt.Errorf("%w: no tax bracket row", domain.ErrInsufficientData)
			}
			rate, err := domain.DeriveTaxRate(b, homeValues[r.ZIP])
			if err != nil {
				return err
			}
			return e.locations.UpsertLocation(ctx, domain.LocationRecord{ZIP: r.ZIP, TaxRate: domain.Ptr(rate)})
		})
}

// Commute fills commuterScore from the commute-time extract.
func (e *Enricher) Commute(ctx context.Context) (Summary, error) {
	counts, err := dataset.LoadCommute(e.src.Datasets.Commute)
	if err != nil {
		return Summary{Job: JobCommute}, fmt.Errorf("%s: %w", JobCommute, err)
	}

	return e.overLocations(ctx, JobCommute,
		func(r domain.LocationRecord) bool { return r.CommuterScore != nil },
		func(ctx context.Context, r domain.LocationRecord) error {
			c, ok := counts[r.ZIP]
			if !ok {
				return fmt.Errorf("%w: no commute row", domain.ErrInsufficientData)
			}
			grade, _ := domain.DeriveCommuteGrade(c)
			return e.locations.UpsertLocation(ctx, domain.LocationRecord{ZIP: r.ZIP, CommuterScore: domain.Ptr(grade)})
		})
}

// NDCP fills infantCareWeeklyCost from county pricing joined through the
// ZIP-to-county table. Every priced ZIP gets a location record, so this job
// seeds the location list for the later jobs.
func (e *Enricher) NDCP(ctx context.Context) (Summary, error) {
	weekly, err := dataset.LoadNDCP(e.src.Datasets.NDCP, e.src.Datasets.ZIPCounty)
	if err != nil {
		return Summary{Job: JobNDCP}, fmt.Errorf("%s: %w", JobNDCP, err)
	}

	return e.overZIPs(ctx, JobNDCP, slices.Sorted(maps.Keys(weekly)),
		func(r domain.LocationRecord) bool { return r.InfantCareWeeklyCost != nil },
		func(ctx context.Context, r domain.LocationRecord) error {
			cost, ok := weekly[r.ZIP]
			if !ok {
				return fmt.Errorf("%w: no county price", domain.ErrInsufficientData)
			}
			return e.locations.UpsertLocation(ctx, domain.LocationRecord{ZIP: r.ZIP, InfantCareWeeklyCost: domain.Ptr(cost)})
		})
}

// Livability scrapes the sub-scores for every location missing livabilityScore.
func (e *Enricher) Livability(ctx context.Context) (Summary, error) {
	if e.src.Livability == nil {
		return Summary{Job: JobLivability}, fmt.Errorf("%s: scraper: %w", JobLivability, ErrSourceUnavailable)
	}
	return e.overLocations(ctx, JobLivability,
		func(r domain.LocationRecord) bool { return r.LivabilityScore != nil },
		func(ctx context.Context, r domain.LocationRecord) error {
			return e.enrichLivability(ctx, r.ZIP)
		})
}

// EnrichLivability scrapes and stores the sub-scores of one ZIP, creating the
// record if absent. It returns ErrAlreadySet when the score is present.
func (e *Enricher) EnrichLivability(ctx context.Context, zip string) error {
	if e.src.Livability == nil {
		return fmt.Errorf("scraper: %w", ErrSourceUnavailable)
	}
	current, err := e.locations.GetLocation(ctx, zip)
	switch {
	case err == nil && current.LivabilityScore != nil:
		return domain.ErrAlreadySet
	case err != nil && !isNotFound(err):
		return err
	}
	return e.enrichLivability(ctx, zip)
}

func (e *Enricher) enrichLivability(ctx context.Context, zip string) error {
	scores, err := e.src.Livability.Scores(ctx, zip)
	if err != nil {
		return err
	}

	patch := domain.LocationRecord{ZIP: zip}
	for _, f := range domain.LivabilityMetrics {
		if g, ok := domain.LivabilityGradeFromText(scores.Scores[f]); ok {
			patch.SetMetric(f, g)
		}
	}
	if patch.LivabilityScore == nil {
		return fmt.Errorf("%w: no overall livability score", domain.ErrInsufficientData)
	}
	if income := strings.TrimSpace(scores.Income); income != "" {
		patch.MedianHouseholdIncome = &income
	}
	return e.locations.UpsertLocation(ctx, patch)
}

// SchoolLinks fills schoolResourceUrl with the school search page for the
// ZIP's town.
func (e *Enricher) SchoolLinks(ctx context.Context) (Summary, error) {
	if e.src.Resolver == nil {
		return Summary{Job: JobSchoolLinks}, fmt.Errorf("%s: zip resolver: %w", JobSchoolLinks, ErrSourceUnavailable)
	}
	return e.overLocations(ctx, JobSchoolLinks,
		func(r domain.LocationRecord) bool { return r.SchoolResourceURL != nil && *r.SchoolResourceURL != "" },
		func(ctx context.Context, r domain.LocationRecord) error {
			place, err := e.src.Resolver.ResolveZIP(ctx, r.ZIP)
			if err != nil {
				return err
			}
			if place.City == "" || place.State == "" {
				return fmt.Errorf("%w: no city or state", domain.ErrUnresolvedTown)
			}
			url := SchoolSearchURL(place.City, place.State)
			return e.locations.UpsertLocation(ctx, domain.LocationRecord{ZIP: r.ZIP, SchoolResourceURL: &url})
		})
}

// SchoolSearchURL builds the public-school ranking page for a town.
func SchoolSearchURL(city, state string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(city)), " ", "-")
	slug = strings.ReplaceAll(slug, "'", "")
	return fmt.Sprintf("https://www.niche.com/k12/search/best-public-schools/m/%s-%s/", slug, strings.ToLower(state))
}
