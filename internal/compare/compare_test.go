package compare_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/futureroot-service/internal/compare"
	"github.com/couchcryptid/futureroot-service/internal/domain"
)

type fakeProviders []domain.ChildcareProvider

func (f fakeProviders) ListProviders(context.Context) ([]domain.ChildcareProvider, error) {
	return f, nil
}

func (f fakeProviders) ListProvidersByTown(_ context.Context, town string) ([]domain.ChildcareProvider, error) {
	var out []domain.ChildcareProvider
	for _, p := range f {
		if p.Town != nil && strings.EqualFold(*p.Town, town) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f fakeProviders) UpsertProviderByName(context.Context, domain.ChildcareProvider) (bool, error) {
	return false, nil
}

func (f fakeProviders) SetProviderTown(context.Context, int64, string) error { return nil }

func (f fakeProviders) SetProviderCost(context.Context, int64, float64) error { return nil }

type fakeLocations map[string]domain.LocationRecord

func (f fakeLocations) GetLocation(_ context.Context, zip string) (domain.LocationRecord, error) {
	r, ok := f[zip]
	if !ok {
		return domain.LocationRecord{}, domain.ErrNotFound
	}
	return r, nil
}

func (f fakeLocations) UpsertLocation(context.Context, domain.LocationRecord) error { return nil }

func (f fakeLocations) ListLocations(context.Context) ([]domain.LocationRecord, error) {
	return nil, nil
}

func (f fakeLocations) ListLocationsWithMetrics(_ context.Context, fields []domain.MetricField) ([]domain.LocationRecord, error) {
	var out []domain.LocationRecord
	for _, zip := range []string{"11021", "11576", "11577"} {
		if r, ok := f[zip]; ok && r.HasMetrics(fields) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeRequester struct {
	zips []string
	err  error
}

func (f *fakeRequester) RequestLivability(_ context.Context, zip string) (domain.Job, error) {
	f.zips = append(f.zips, zip)
	return domain.Job{ID: "enrich-" + zip}, f.err
}

func provider(town, address string, cost *float64) domain.ChildcareProvider {
	return domain.ChildcareProvider{Name: town + address, Address: address, Town: domain.Ptr(town), CostPerMonth: cost}
}

func fixture() (fakeProviders, fakeLocations) {
	providers := fakeProviders{
		provider("Roslyn", "1 Main St, Roslyn, NY 11576", domain.Ptr(1000.0)),
		provider("roslyn", "2 Main St, Roslyn, NY 11576", domain.Ptr(1200.0)),
		provider("Roslyn", "3 Elm St, Roslyn, NY 11577", domain.Ptr(1400.0)),
		provider("Roslyn", "4 Elm St, Roslyn, NY 11577", nil),
		provider("Great Neck", "5 Northern Blvd, Great Neck, NY 11021", nil),
		{Name: "No Town", Address: "6 Oak St, Nowhere"},
	}
	locations := fakeLocations{
		"11576": {ZIP: "11576", HousingCost: domain.Ptr(3000.0), LivabilityScore: domain.Ptr(domain.GradeA)},
		"11577": {ZIP: "11577", HousingCost: domain.Ptr(3301.0)},
		"11021": {ZIP: "11021", LivabilityScore: domain.Ptr(domain.GradeB)},
	}
	return providers, locations
}

func TestCompareTowns_AllTowns(t *testing.T) {
	providers, locations := fixture()
	req := &fakeRequester{}
	svc := compare.NewService(providers, locations, req, slog.Default())

	got, err := svc.CompareTowns(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	roslyn := got["Roslyn"]
	require.NotNil(t, roslyn.AvgMonthlyChildcare)
	assert.Equal(t, 1200.0, *roslyn.AvgMonthlyChildcare)
	require.NotNil(t, roslyn.AvgHousingCost)
	assert.Equal(t, "$3,151", *roslyn.AvgHousingCost)
	assert.Equal(t, 4, roslyn.Providers)
	assert.Equal(t, []string{"11576", "11577"}, roslyn.ZIPCodes)
	require.NotNil(t, roslyn.Location)
	assert.Equal(t, "11576", roslyn.Location.ZIP)
	assert.True(t, roslyn.PendingEnrichment)
	assert.Equal(t, []string{"11577"}, req.zips)

	neck := got["Great Neck"]
	assert.Nil(t, neck.AvgMonthlyChildcare)
	assert.Nil(t, neck.AvgHousingCost)
	assert.False(t, neck.PendingEnrichment)
}

func TestCompareTowns_FilterIsCaseInsensitive(t *testing.T) {
	providers, locations := fixture()
	svc := compare.NewService(providers, locations, nil, slog.Default())

	got, err := svc.CompareTowns(context.Background(), []string{" great neck ", ""})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got, "Great Neck")
}

func TestCompareTowns_RequestFailureIsNotFatal(t *testing.T) {
	providers, locations := fixture()
	svc := compare.NewService(providers, locations, &fakeRequester{err: errors.New("queue full")}, slog.Default())

	got, err := svc.CompareTowns(context.Background(), []string{"Roslyn"})
	require.NoError(t, err)
	assert.True(t, got["Roslyn"].PendingEnrichment)
}

func TestLocation(t *testing.T) {
	_, locations := fixture()
	locations["11021"] = domain.LocationRecord{
		ZIP:             "11021",
		HousingCost:     domain.Ptr(3150.4),
		TaxRate:         domain.Ptr(2.346),
		LivabilityScore: domain.Ptr(domain.GradeA),
	}
	req := &fakeRequester{}
	svc := compare.NewService(fakeProviders{}, locations, req, slog.Default())

	v, err := svc.Location(context.Background(), "11021")
	require.NoError(t, err)
	assert.Equal(t, "$3,150", *v.HousingCost)
	assert.Equal(t, "2.35%", *v.TaxRate)
	assert.False(t, v.PendingEnrichment)
	assert.Empty(t, req.zips)

	v, err = svc.Location(context.Background(), "11577")
	require.NoError(t, err)
	assert.True(t, v.PendingEnrichment)
	assert.Equal(t, []string{"11577"}, req.zips)
}

func TestLocation_Errors(t *testing.T) {
	svc := compare.NewService(fakeProviders{}, fakeLocations{}, nil, slog.Default())

	_, err := svc.Location(context.Background(), "")
	var fe *domain.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "zip", fe.Field)

	_, err = svc.Location(context.Background(), "abc")
	require.ErrorIs(t, err, domain.ErrUnresolvedZIP)

	_, err = svc.Location(context.Background(), "99999")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLivabilityZIPs(t *testing.T) {
	_, locations := fixture()
	svc := compare.NewService(fakeProviders{}, locations, nil, slog.Default())

	zips, err := svc.LivabilityZIPs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"11021", "11576"}, zips)
}

func TestProviders(t *testing.T) {
	providers, _ := fixture()
	svc := compare.NewService(providers, fakeLocations{}, nil, slog.Default())

	all, err := svc.Providers(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, len(providers))

	roslyn, err := svc.Providers(context.Background(), "ROSLYN")
	require.NoError(t, err)
	assert.Len(t, roslyn, 4)
}

func TestFormatDollars(t *testing.T) {
	assert.Equal(t, "$1,234,568", compare.FormatDollars(1234567.6))
	assert.Equal(t, "$0", compare.FormatDollars(0))
}
