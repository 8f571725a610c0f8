// Command validate checks the static extracts read by the enrichment jobs
// before a batch run: that every file loads, that counts are internally
// consistent, and that the derivations produce sane values for each ZIP.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data [-zip-table zips.csv]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/couchcryptid/futureroot-service/internal/adapter/dataset"
	"github.com/couchcryptid/futureroot-service/internal/adapter/ziptable"
	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
	"github.com/couchcryptid/futureroot-service/internal/pipeline"
)

// Counts may be off by a household or two due to census rounding.
const countTolerance = 2.0

// Rates outside this band indicate a unit or column mix-up.
const (
	minTaxRate = 0.05
	maxTaxRate = 10.0
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// sources holds every loaded extract keyed by ZIP.
type sources struct {
	homeValues map[string]float64
	taxes      map[string]domain.TaxBracketCounts
	commute    map[string]domain.CommuteCounts
	ndcp       map[string]float64
	zips       *ziptable.Table
}

func main() {
	dataDir := flag.String("data-dir", "data", "directory containing the census, NDCP and ZIP-county extracts")
	zipTable := flag.String("zip-table", "", "optional offline ZIP table CSV to cross-check")
	flag.Parse()

	if *dataDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, pipeline.DatasetsIn(*dataDir), *zipTable, observability.NewMetrics()); code != 0 {
		os.Exit(code)
	}
}

func run(w io.Writer, ds pipeline.Datasets, zipTablePath string, metrics *observability.Metrics) int {
	fmt.Fprintln(w, "=== Dataset Integrity Validation ===")
	fmt.Fprintln(w)

	src, err := load(ds, zipTablePath, metrics)
	if err != nil {
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateHomeValues(src),
		validateTaxBrackets(src),
		validateCommute(src),
		validateNDCP(src),
		validateCoverage(src),
	}

	fmt.Fprintln(w)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "ZIPs: %d home value, %d tax, %d commute, %d NDCP\n",
		len(src.homeValues), len(src.taxes), len(src.commute), len(src.ndcp))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

func load(ds pipeline.Datasets, zipTablePath string, metrics *observability.Metrics) (*sources, error) {
	var (
		src sources
		err error
	)
	if src.homeValues, err = dataset.LoadHomeValues(ds.HomeValues); err != nil {
		return nil, fmt.Errorf("load home values: %w", err)
	}
	if src.taxes, err = dataset.LoadTaxBrackets(ds.TaxBrackets); err != nil {
		return nil, fmt.Errorf("load tax brackets: %w", err)
	}
	if src.commute, err = dataset.LoadCommute(ds.Commute); err != nil {
		return nil, fmt.Errorf("load commute: %w", err)
	}
	if src.ndcp, err = dataset.LoadNDCP(ds.NDCP, ds.ZIPCounty); err != nil {
		return nil, fmt.Errorf("load NDCP: %w", err)
	}
	if zipTablePath != "" {
		if src.zips, err = ziptable.LoadFile(zipTablePath, metrics); err != nil {
			return nil, fmt.Errorf("load zip table: %w", err)
		}
	}
	return &src, nil
}

// sortedKeys keeps error output stable between runs.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func validateHomeValues(src *sources) *phase {
	p := &phase{name: "Home values"}
	if len(src.homeValues) == 0 {
		p.errorf("no ZIP rows with a positive median home value")
	}
	for _, zip := range sortedKeys(src.homeValues) {
		if !domain.ValidZIP(zip) {
			p.errorf("%s: not a five-digit ZIP", zip)
		}
	}
	return p
}

func validateTaxBrackets(src *sources) *phase {
	p := &phase{name: "Tax brackets and derived rate"}
	for _, zip := range sortedKeys(src.taxes) {
		b := src.taxes[zip]
		var sum float64
		for i, c := range b.Counts {
			if c < 0 {
				p.errorf("%s: bracket %d has negative count %v", zip, i, c)
			}
			sum += c
		}
		if b.TotalHouseholds > 0 && sum > b.TotalHouseholds+countTolerance {
			p.errorf("%s: brackets sum to %v, more than the %v household total", zip, sum, b.TotalHouseholds)
		}

		home, ok := src.homeValues[zip]
		if !ok {
			continue
		}
		rate, err := domain.DeriveTaxRate(b, home)
		if err != nil {
			continue
		}
		if rate < minTaxRate || rate > maxTaxRate {
			p.errorf("%s: derived tax rate %.2f%% outside %.2f..%.2f", zip, rate, minTaxRate, maxTaxRate)
		}
	}
	return p
}

func validateCommute(src *sources) *phase {
	p := &phase{name: "Commute bands and derived grade"}
	for _, zip := range sortedKeys(src.commute) {
		c := src.commute[zip]
		if c.TotalCommuters < 0 {
			p.errorf("%s: negative commuter total %v", zip, c.TotalCommuters)
			continue
		}
		var sum float64
		for i, n := range c.Buckets {
			if n < 0 {
				p.errorf("%s: band %d has negative count %v", zip, i, n)
			}
			sum += n
		}
		if sum > c.TotalCommuters+countTolerance {
			p.errorf("%s: bands sum to %v, more than the %v commuter total", zip, sum, c.TotalCommuters)
		}
		grade, score := domain.DeriveCommuteGrade(c)
		if _, ok := domain.ParseGrade(string(grade)); !ok || math.IsNaN(score) {
			p.errorf("%s: commute derivation produced grade %q score %v", zip, grade, score)
		}
	}
	return p
}

func validateNDCP(src *sources) *phase {
	p := &phase{name: "NDCP county join"}
	if len(src.ndcp) == 0 {
		p.errorf("no ZIP joined to a county infant-care price")
	}
	for _, zip := range sortedKeys(src.ndcp) {
		if cost := src.ndcp[zip]; cost <= 0 {
			p.errorf("%s: weekly infant cost %v is not positive", zip, cost)
		}
	}
	return p
}

// validateCoverage checks that the census extracts describe the same ZIPs and,
// when a ZIP table is given, that it can resolve them.
func validateCoverage(src *sources) *phase {
	p := &phase{name: "Cross-source coverage"}
	overlap := 0
	for zip := range src.taxes {
		if _, ok := src.homeValues[zip]; ok {
			overlap++
		}
	}
	if len(src.taxes) > 0 && overlap == 0 {
		p.errorf("tax and home value extracts share no ZIPs; tax rate cannot be derived")
	}

	if src.zips == nil {
		return p
	}
	for _, zip := range sortedKeys(src.commute) {
		if _, err := src.zips.ResolveZIP(context.Background(), zip); err != nil {
			p.errorf("%s: not in ZIP table", zip)
		}
	}
	return p
}
