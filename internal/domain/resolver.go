package domain

import "context"

// ZIPPlace is the resolved place for a ZIP code.
type ZIPPlace struct {
	ZIP   string  `json:"zip"`
	City  string  `json:"city"`
	State string  `json:"state"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// ZIPResolver maps a ZIP code to city, state and coordinates.
type ZIPResolver interface {
	ResolveZIP(ctx context.Context, zip string) (ZIPPlace, error)
}
