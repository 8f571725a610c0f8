package dataset

import (
	"fmt"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

// Census ACS column names.
const (
	ColName = "NAME"

	ColHomeValue         = "B25077_001E"
	ColHomeValueFallback = "B25077I_001E"

	ColTaxTotal = "B25103_001E"

	ColCommuteTotal = "B08303_001E"

	ColNDCPCounty = "COUNTY_FIPS_CODE"
	ColNDCPInfant = "MCINFANT"
	ColZIP        = "ZIP"
	ColCounty     = "COUNTY"
)

// TaxBracketColumns are B25103_002E..B25103_011E, lowest bracket first.
var TaxBracketColumns = censusRange("B25103", 2, 11)

// CommuteBucketColumns are the six travel-time bands B08303_009E..B08303_014E.
var CommuteBucketColumns = censusRange("B08303", 9, 14)

func censusRange(table string, from, to int) []string {
	cols := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		cols = append(cols, fmt.Sprintf("%s_%03dE", table, i))
	}
	return cols
}

// censusRows calls fn for each row whose NAME parses as a ZCTA.
func censusRows(t *Table, fn func(zip string, row []string)) {
	for _, row := range t.Rows {
		zip, ok := domain.ZIPFromCensusName(t.Get(row, ColName))
		if !ok {
			continue
		}
		fn(zip, row)
	}
}

// LoadHomeValues returns median home value by ZIP.
func LoadHomeValues(path string) (map[string]float64, error) {
	t, err := Open(path)
	if err != nil {
		return nil, err
	}
	col := ColHomeValue
	if !t.Has(col) {
		col = ColHomeValueFallback
	}
	if err := t.Require(ColName, col); err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	censusRows(t, func(zip string, row []string) {
		if v, ok := Number(t.Get(row, col)); ok && v > 0 {
			out[zip] = v
		}
	})
	return out, nil
}

// LoadTaxBrackets returns real-estate-tax bracket counts by ZIP. Missing cells count as zero.
func LoadTaxBrackets(path string) (map[string]domain.TaxBracketCounts, error) {
	t, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require(append([]string{ColName}, TaxBracketColumns...)...); err != nil {
		return nil, err
	}

	out := make(map[string]domain.TaxBracketCounts)
	censusRows(t, func(zip string, row []string) {
		var b domain.TaxBracketCounts
		for i, col := range TaxBracketColumns {
			b.Counts[i], _ = Number(t.Get(row, col))
		}
		b.TotalHouseholds, _ = Number(t.Get(row, ColTaxTotal))
		out[zip] = b
	})
	return out, nil
}

// LoadCommute returns commuter counts per travel-time band by ZIP.
func LoadCommute(path string) (map[string]domain.CommuteCounts, error) {
	t, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require(append([]string{ColName, ColCommuteTotal}, CommuteBucketColumns...)...); err != nil {
		return nil, err
	}

	out := make(map[string]domain.CommuteCounts)
	censusRows(t, func(zip string, row []string) {
		var c domain.CommuteCounts
		c.TotalCommuters, _ = Number(t.Get(row, ColCommuteTotal))
		for i, col := range CommuteBucketColumns {
			c.Buckets[i], _ = Number(t.Get(row, col))
		}
		out[zip] = c
	})
	return out, nil
}

// LoadNDCP joins county infant-care prices onto ZIPs. The first county listed
// for a ZIP wins. The result is the weekly median center-based infant price.
func LoadNDCP(ndcpPath, zipCountyPath string) (map[string]float64, error) {
	ndcp, err := Open(ndcpPath)
	if err != nil {
		return nil, err
	}
	if err := ndcp.Require(ColNDCPCounty, ColNDCPInfant); err != nil {
		return nil, err
	}
	byCounty := make(map[string]float64)
	for _, row := range ndcp.Rows {
		fips := ndcp.Get(row, ColNDCPCounty)
		cost, ok := Number(ndcp.Get(row, ColNDCPInfant))
		if fips == "" || !ok {
			continue
		}
		byCounty[domain.NormalizeZIP(fips)] = cost
	}

	zc, err := Open(zipCountyPath)
	if err != nil {
		return nil, err
	}
	if err := zc.Require(ColZIP, ColCounty); err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, row := range zc.Rows {
		zip := domain.NormalizeZIP(zc.Get(row, ColZIP))
		county := domain.NormalizeZIP(zc.Get(row, ColCounty))
		if _, seen := out[zip]; seen || !domain.ValidZIP(zip) {
			continue
		}
		if cost, ok := byCounty[county]; ok {
			out[zip] = cost
		}
	}
	return out, nil
}
