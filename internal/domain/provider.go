package domain

import "time"

// ProviderType classifies a childcare business.
type ProviderType string

const (
	ProviderDaycare     ProviderType = "daycare"
	ProviderPreschool   ProviderType = "preschool"
	ProviderAfterSchool ProviderType = "after_school"
	ProviderNanny       ProviderType = "nanny"
	ProviderOther       ProviderType = "other"
)

// ParseProviderType maps unknown values to ProviderOther.
func ParseProviderType(s string) ProviderType {
	switch t := ProviderType(s); t {
	case ProviderDaycare, ProviderPreschool, ProviderAfterSchool, ProviderNanny:
		return t
	default:
		return ProviderOther
	}
}

// ChildcareProvider is one imported business listing. Address is immutable once
// imported; Town and CostPerMonth are backfilled later.
type ChildcareProvider struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Type              ProviderType `json:"type"`
	Address           string       `json:"address"`
	Lat               *float64     `json:"lat"`
	Lon               *float64     `json:"lon"`
	AgeRange          string       `json:"age_range"`
	CostPerMonth      *float64     `json:"cost_per_month"`
	Capacity          *int         `json:"capacity"`
	CurrentEnrollment int          `json:"current_enrollment"`
	QualityRating     *float64     `json:"quality_rating"`
	Verified          bool         `json:"is_verified"`
	Town              *string      `json:"town"`
	AddedOn           time.Time    `json:"added_on"`
}

// ZIP derives the provider's ZIP code from its address.
func (p ChildcareProvider) ZIP() (string, error) {
	return ExtractZIP(p.Address)
}

// ListingQuery is a free-text business search by category and location.
type ListingQuery struct {
	Term       string
	Location   string
	Categories []string
	Limit      int
}
