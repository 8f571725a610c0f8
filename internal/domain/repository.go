package domain

import "context"

// LocationRepository persists LocationRecords keyed by ZIP.
type LocationRepository interface {
	GetLocation(ctx context.Context, zip string) (LocationRecord, error)
	// UpsertLocation merges the non-nil fields of patch into the stored record,
	// creating it if absent.
	UpsertLocation(ctx context.Context, patch LocationRecord) error
	ListLocations(ctx context.Context) ([]LocationRecord, error)
	// ListLocationsWithMetrics returns records where every field is set, ordered by ZIP.
	ListLocationsWithMetrics(ctx context.Context, fields []MetricField) ([]LocationRecord, error)
}

// ProviderRepository persists childcare providers.
type ProviderRepository interface {
	ListProviders(ctx context.Context) ([]ChildcareProvider, error)
	ListProvidersByTown(ctx context.Context, town string) ([]ChildcareProvider, error)
	// UpsertProviderByName inserts a new provider or updates the mutable fields
	// of an existing provider with the same name. It reports whether a row was created.
	UpsertProviderByName(ctx context.Context, p ChildcareProvider) (bool, error)
	SetProviderTown(ctx context.Context, id int64, town string) error
	SetProviderCost(ctx context.Context, id int64, costPerMonth float64) error
}

// PreferenceResultRepository stores recommendation results.
type PreferenceResultRepository interface {
	CreatePreferenceResult(ctx context.Context, r PreferenceResult) (int64, error)
	ListPreferenceResults(ctx context.Context, userID int64) ([]PreferenceResult, error)
}

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, u User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
}
