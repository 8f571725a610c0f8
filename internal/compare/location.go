package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// LocationView is a LocationRecord formatted for display.
type LocationView struct {
	ZIP                   string        `json:"zip_code"`
	CommuterScore         *domain.Grade `json:"commuter_score"`
	HousingCost           *string       `json:"housing_cost"`
	InfantCareWeeklyCost  *float64      `json:"infant_care_weekly_cost"`
	SchoolResourceURL     *string       `json:"school_rating"`
	TaxRate               *string       `json:"tax_rate"`
	LivabilityScore       *domain.Grade `json:"livability_score"`
	HousingScore          *domain.Grade `json:"housing_score"`
	NeighborhoodScore     *domain.Grade `json:"neighborhood_score"`
	TransportationScore   *domain.Grade `json:"transportation_score"`
	EnvironmentScore      *domain.Grade `json:"environment_score"`
	HealthScore           *domain.Grade `json:"health_score"`
	EngagementScore       *domain.Grade `json:"engagement_score"`
	OpportunityScore      *domain.Grade `json:"opportunity_score"`
	MedianHouseholdIncome *string       `json:"median_household_income"`
	PendingEnrichment     bool          `json:"pending_enrichment"`
}

// NewLocationView formats housing cost as "$3,150" and tax rate as "2.35%".
func NewLocationView(r domain.LocationRecord) LocationView {
	v := LocationView{
		ZIP:                   r.ZIP,
		CommuterScore:         r.CommuterScore,
		InfantCareWeeklyCost:  r.InfantCareWeeklyCost,
		SchoolResourceURL:     r.SchoolResourceURL,
		LivabilityScore:       r.LivabilityScore,
		HousingScore:          r.HousingScore,
		NeighborhoodScore:     r.NeighborhoodScore,
		TransportationScore:   r.TransportationScore,
		EnvironmentScore:      r.EnvironmentScore,
		HealthScore:           r.HealthScore,
		EngagementScore:       r.EngagementScore,
		OpportunityScore:      r.OpportunityScore,
		MedianHouseholdIncome: r.MedianHouseholdIncome,
	}
	if r.HousingCost != nil {
		v.HousingCost = domain.Ptr(FormatDollars(*r.HousingCost))
	}
	if r.TaxRate != nil {
		v.TaxRate = domain.Ptr(fmt.Sprintf("%.2f%%", *r.TaxRate))
	}
	return v
}

// Location returns the formatted record for zip. When the livability score is
// missing, enrichment is scheduled and the view is flagged pending.
func (s *Service) Location(ctx context.Context, zip string) (LocationView, error) {
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return LocationView{}, &domain.FieldError{Field: "zip", Err: domain.ErrTargetZIPRequired}
	}
	if !domain.ValidZIP(zip) {
		return LocationView{}, &domain.FieldError{Field: "zip", Err: fmt.Errorf("%w: %q", domain.ErrUnresolvedZIP, zip)}
	}

	r, err := s.locations.GetLocation(ctx, zip)
	if err != nil {
		return LocationView{}, err
	}
	v := NewLocationView(r)
	if r.LivabilityScore == nil {
		s.request(ctx, zip)
		v.PendingEnrichment = true
	}
	return v, nil
}
