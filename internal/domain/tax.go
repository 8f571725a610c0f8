package domain

import "fmt"

// TaxBracketMidpoints are the dollar midpoints of the ten real-estate-taxes-paid
// brackets, lowest first.
var TaxBracketMidpoints = [10]float64{300, 800, 1250, 1750, 2250, 2750, 3250, 3750, 4250, 15000}

// FallbackAverageTaxPaid is assumed when bracket counts are empty but the total
// household count is positive.
const FallbackAverageTaxPaid = 18000.0

// TaxBracketCounts holds household counts per bracket for one ZIP.
type TaxBracketCounts struct {
	Counts          [10]float64
	TotalHouseholds float64
}

// AverageTaxPaid returns the count-weighted mean tax paid across brackets.
func (b TaxBracketCounts) AverageTaxPaid() (float64, error) {
	var sum, n float64
	for i, c := range b.Counts {
		sum += c * TaxBracketMidpoints[i]
		n += c
	}
	if n > 0 {
		return sum / n, nil
	}
	if b.TotalHouseholds > 0 {
		return FallbackAverageTaxPaid, nil
	}
	return 0, fmt.Errorf("%w: no bracket counts and no household total", ErrInsufficientData)
}

// DeriveTaxRate computes the effective property tax rate as a percentage of
// median home value, rounded to two decimals.
func DeriveTaxRate(b TaxBracketCounts, homeValue float64) (float64, error) {
	if homeValue <= 0 {
		return 0, fmt.Errorf("%w: home value %v", ErrInsufficientData, homeValue)
	}
	avg, err := b.AverageTaxPaid()
	if err != nil {
		return 0, err
	}
	return Round2(avg / homeValue * 100), nil
}
