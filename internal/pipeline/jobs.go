package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Job names, as accepted by Run and the enrich CLI.
const (
	JobImportProviders       = "import-providers"
	JobTowns                 = "towns"
	JobHousing               = "housing"
	JobTaxRate               = "tax-rate"
	JobCommute               = "commute"
	JobNDCP                  = "ndcp"
	JobLivability            = "livability"
	JobSchoolLinks           = "school-links"
	JobProviderCostsNDCP     = "provider-costs-ndcp"
	JobProviderCostsEstimate = "provider-costs-estimate"
)

// JobNames lists every job in the order RunAll executes them. Providers and
// the NDCP county join come first since their ZIPs seed the location jobs;
// NDCP pricing runs before the income estimate so measured prices win.
var JobNames = []string{
	JobImportProviders,
	JobTowns,
	JobNDCP,
	JobTaxRate,
	JobCommute,
	JobHousing,
	JobLivability,
	JobSchoolLinks,
	JobProviderCostsNDCP,
	JobProviderCostsEstimate,
}

// Describe returns a one-line description of a job.
func Describe(job string) string {
	switch job {
	case JobImportProviders:
		return "import childcare providers from the listing search"
	case JobTowns:
		return "derive provider towns from addresses"
	case JobHousing:
		return "fill housing cost from median rent"
	case JobTaxRate:
		return "derive property tax rate from census extracts"
	case JobCommute:
		return "grade commute burden from census extracts"
	case JobNDCP:
		return "fill weekly infant care cost from county pricing"
	case JobLivability:
		return "scrape livability sub-scores and median income"
	case JobSchoolLinks:
		return "link each ZIP to its school ranking page"
	case JobProviderCostsNDCP:
		return "price providers from county infant care cost"
	case JobProviderCostsEstimate:
		return "estimate provider cost from median income"
	}
	return ""
}

// Run executes one job by name.
func (e *Enricher) Run(ctx context.Context, job string) (Summary, error) {
	switch job {
	case JobImportProviders:
		return e.ImportProviders(ctx)
	case JobTowns:
		return e.Towns(ctx)
	case JobHousing:
		return e.Housing(ctx)
	case JobTaxRate:
		return e.TaxRate(ctx)
	case JobCommute:
		return e.Commute(ctx)
	case JobNDCP:
		return e.NDCP(ctx)
	case JobLivability:
		return e.Livability(ctx)
	case JobSchoolLinks:
		return e.SchoolLinks(ctx)
	case JobProviderCostsNDCP:
		return e.ProviderCostsNDCP(ctx)
	case JobProviderCostsEstimate:
		return e.ProviderCostsEstimate(ctx)
	}
	return Summary{Job: job}, fmt.Errorf("unknown job %q", job)
}

// RunAll executes every job in JobNames order. A job that cannot start is
// logged and does not stop the others; the joined errors are returned.
func (e *Enricher) RunAll(ctx context.Context) ([]Summary, error) {
	var (
		out  []Summary
		errs []error
	)
	for _, job := range JobNames {
		if ctx.Err() != nil {
			break
		}
		s, err := e.Run(ctx, job)
		if err != nil {
			e.logger.Error("enrichment job failed", "job", job, "error", err)
			errs = append(errs, err)
			continue
		}
		out = append(out, s)
	}
	return out, errors.Join(errs...)
}
