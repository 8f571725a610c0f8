package domain

import (
	"strconv"
	"strings"
)

const (
	// BaseChildcareCost is the national-average monthly infant care cost in dollars.
	BaseChildcareCost = 1200.0
	// BaselineIncome is the household income at which BaseChildcareCost applies.
	BaselineIncome = 70000.0
	// NDCPWeeksPerMonth converts NDCP weekly prices to a monthly figure.
	NDCPWeeksPerMonth = 4.63
)

// EstimateMonthlyChildcareCost scales the base cost by the ratio of median
// household income to the baseline. Non-positive income returns the base cost.
func EstimateMonthlyChildcareCost(medianIncome float64) float64 {
	if medianIncome <= 0 {
		return BaseChildcareCost
	}
	return Round2(BaseChildcareCost * (medianIncome / BaselineIncome))
}

// ParseIncome parses free-text income such as "$98,123" or "250,000+".
func ParseIncome(text string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", "+", "").Replace(strings.TrimSpace(text))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// MonthlyFromWeekly converts an NDCP weekly price to a monthly cost.
func MonthlyFromWeekly(weekly float64) float64 {
	return Round2(weekly * NDCPWeeksPerMonth)
}
