package domain

import (
	"fmt"
	"math"
	"strings"
)

// MetricField names one livability sub-score on a LocationRecord. It is the
// closed set of fields a recommendation may rank on.
type MetricField string

const (
	MetricLivability     MetricField = "livability_score"
	MetricHousing        MetricField = "housing_score"
	MetricNeighborhood   MetricField = "neighborhood_score"
	MetricTransportation MetricField = "transportation_score"
	MetricEnvironment    MetricField = "environment_score"
	MetricHealth         MetricField = "health_score"
	MetricEngagement     MetricField = "engagement_score"
	MetricOpportunity    MetricField = "opportunity_score"
)

// LivabilityMetrics lists the sub-scores in the order the scoring site renders them.
var LivabilityMetrics = []MetricField{
	MetricLivability,
	MetricHousing,
	MetricNeighborhood,
	MetricTransportation,
	MetricEnvironment,
	MetricHealth,
	MetricEngagement,
	MetricOpportunity,
}

// ParseMetricField validates a preference field name.
func ParseMetricField(s string) (MetricField, error) {
	f := MetricField(strings.TrimSpace(s))
	for _, m := range LivabilityMetrics {
		if f == m {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// LocationRecord accumulates per-ZIP fields written by independent enrichment jobs.
// A nil field has not been enriched yet.
type LocationRecord struct {
	ZIP                   string   `json:"zip_code"`
	HousingCost           *float64 `json:"housing_cost"`
	InfantCareWeeklyCost  *float64 `json:"infant_care_weekly_cost"`
	TaxRate               *float64 `json:"tax_rate"`
	CommuterScore         *Grade   `json:"commuter_score"`
	LivabilityScore       *Grade   `json:"livability_score"`
	HousingScore          *Grade   `json:"housing_score"`
	NeighborhoodScore     *Grade   `json:"neighborhood_score"`
	TransportationScore   *Grade   `json:"transportation_score"`
	EnvironmentScore      *Grade   `json:"environment_score"`
	HealthScore           *Grade   `json:"health_score"`
	EngagementScore       *Grade   `json:"engagement_score"`
	OpportunityScore      *Grade   `json:"opportunity_score"`
	MedianHouseholdIncome *string  `json:"median_household_income"`
	SchoolResourceURL     *string  `json:"school_resource_url"`
}

// Metric returns the grade stored for a livability sub-score.
func (r LocationRecord) Metric(f MetricField) *Grade {
	switch f {
	case MetricLivability:
		return r.LivabilityScore
	case MetricHousing:
		return r.HousingScore
	case MetricNeighborhood:
		return r.NeighborhoodScore
	case MetricTransportation:
		return r.TransportationScore
	case MetricEnvironment:
		return r.EnvironmentScore
	case MetricHealth:
		return r.HealthScore
	case MetricEngagement:
		return r.EngagementScore
	case MetricOpportunity:
		return r.OpportunityScore
	default:
		return nil
	}
}

// SetMetric stores a grade for a livability sub-score.
func (r *LocationRecord) SetMetric(f MetricField, g Grade) {
	p := Ptr(g)
	switch f {
	case MetricLivability:
		r.LivabilityScore = p
	case MetricHousing:
		r.HousingScore = p
	case MetricNeighborhood:
		r.NeighborhoodScore = p
	case MetricTransportation:
		r.TransportationScore = p
	case MetricEnvironment:
		r.EnvironmentScore = p
	case MetricHealth:
		r.HealthScore = p
	case MetricEngagement:
		r.EngagementScore = p
	case MetricOpportunity:
		r.OpportunityScore = p
	}
}

// HasMetrics reports whether every listed sub-score is present.
func (r LocationRecord) HasMetrics(fields []MetricField) bool {
	for _, f := range fields {
		if r.Metric(f) == nil {
			return false
		}
	}
	return true
}

// LivabilityScores is one scrape of the livability index for a ZIP.
type LivabilityScores struct {
	ZIP    string
	Scores map[MetricField]string // raw numeric text per sub-score
	Income string                 // free text, e.g. "$98,123"
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
