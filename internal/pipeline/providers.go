package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// providerLocation resolves the location record joined to a provider through
// the ZIP in its address.
func (e *Enricher) providerLocation(ctx context.Context, p domain.ChildcareProvider) (domain.LocationRecord, error) {
	zip, err := p.ZIP()
	if err != nil {
		return domain.LocationRecord{}, err
	}
	return e.locations.GetLocation(ctx, zip)
}

func hasCost(p domain.ChildcareProvider) bool {
	return p.CostPerMonth != nil
}

// ProviderCostsNDCP prices providers from their location's NDCP weekly cost.
func (e *Enricher) ProviderCostsNDCP(ctx context.Context) (Summary, error) {
	return e.overProviders(ctx, JobProviderCostsNDCP, hasCost,
		func(ctx context.Context, p domain.ChildcareProvider) error {
			loc, err := e.providerLocation(ctx, p)
			if err != nil {
				return err
			}
			if loc.InfantCareWeeklyCost == nil {
				return fmt.Errorf("%w: zip %s has no county price", domain.ErrInsufficientData, loc.ZIP)
			}
			return e.providers.SetProviderCost(ctx, p.ID, domain.MonthlyFromWeekly(*loc.InfantCareWeeklyCost))
		})
}

// ProviderCostsEstimate prices providers by scaling the base cost with the
// location's median household income.
func (e *Enricher) ProviderCostsEstimate(ctx context.Context) (Summary, error) {
	return e.overProviders(ctx, JobProviderCostsEstimate, hasCost,
		func(ctx context.Context, p domain.ChildcareProvider) error {
			loc, err := e.providerLocation(ctx, p)
			if err != nil {
				return err
			}
			var income float64
			if loc.MedianHouseholdIncome != nil {
				income, _ = domain.ParseIncome(*loc.MedianHouseholdIncome)
			}
			return e.providers.SetProviderCost(ctx, p.ID, domain.EstimateMonthlyChildcareCost(income))
		})
}

// Towns derives each provider's town from the trailing "town, ST 12345" of its address.
func (e *Enricher) Towns(ctx context.Context) (Summary, error) {
	return e.overProviders(ctx, JobTowns,
		func(p domain.ChildcareProvider) bool { return p.Town != nil && *p.Town != "" },
		func(ctx context.Context, p domain.ChildcareProvider) error {
			town, err := domain.ExtractTown(p.Address)
			if err != nil {
				return err
			}
			return e.providers.SetProviderTown(ctx, p.ID, town)
		})
}

// ImportProviders upserts the listing search results by name. Existing
// providers count as already set.
func (e *Enricher) ImportProviders(ctx context.Context) (Summary, error) {
	if e.src.Listings == nil {
		return Summary{Job: JobImportProviders}, fmt.Errorf("%s: listing api: %w", JobImportProviders, ErrSourceUnavailable)
	}
	found, err := e.src.Listings.Providers(ctx, e.src.Import)
	if err != nil {
		return Summary{Job: JobImportProviders}, fmt.Errorf("%s: %w", JobImportProviders, err)
	}

	return each(ctx, e, JobImportProviders, found, providerAttr,
		func(ctx context.Context, p domain.ChildcareProvider) error {
			if p.Name == "" {
				return errors.New("listing has no name")
			}
			created, err := e.providers.UpsertProviderByName(ctx, p)
			if err != nil {
				return err
			}
			if !created {
				return domain.ErrAlreadySet
			}
			return nil
		}), nil
}
