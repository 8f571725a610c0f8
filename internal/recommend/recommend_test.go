package recommend_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
	"github.com/couchcryptid/futureroot-service/internal/recommend"
)

type fakeLocations struct {
	records []domain.LocationRecord
}

func (f *fakeLocations) GetLocation(_ context.Context, zip string) (domain.LocationRecord, error) {
	for _, r := range f.records {
		if r.ZIP == zip {
			return r, nil
		}
	}
	return domain.LocationRecord{}, domain.ErrNotFound
}

func (f *fakeLocations) UpsertLocation(context.Context, domain.LocationRecord) error { return nil }

func (f *fakeLocations) ListLocations(context.Context) ([]domain.LocationRecord, error) {
	return f.records, nil
}

// ListLocationsWithMetrics returns every record unfiltered so Rank's own
// filter is exercised.
func (f *fakeLocations) ListLocationsWithMetrics(context.Context, []domain.MetricField) ([]domain.LocationRecord, error) {
	return f.records, nil
}

type fakeResults struct {
	saved []domain.PreferenceResult
	err   error
}

func (f *fakeResults) CreatePreferenceResult(_ context.Context, r domain.PreferenceResult) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, r)
	return int64(len(f.saved)), nil
}

func (f *fakeResults) ListPreferenceResults(context.Context, int64) ([]domain.PreferenceResult, error) {
	return f.saved, nil
}

type fakeUsers map[int64]domain.User

func (f fakeUsers) CreateUser(context.Context, domain.User) (int64, error) { return 0, nil }

func (f fakeUsers) GetUserByEmail(context.Context, string) (domain.User, error) {
	return domain.User{}, domain.ErrNotFound
}

func (f fakeUsers) GetUserByID(_ context.Context, id int64) (domain.User, error) {
	u, ok := f[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

type fakeResolver map[string]domain.ZIPPlace

func (f fakeResolver) ResolveZIP(_ context.Context, zip string) (domain.ZIPPlace, error) {
	p, ok := f[zip]
	if !ok {
		return domain.ZIPPlace{}, domain.ErrUnresolvedZIP
	}
	return p, nil
}

var prefs = []domain.MetricField{domain.MetricHousing, domain.MetricHealth, domain.MetricOpportunity}

const targetZIP = "11021"

// north places a ZIP latDelta degrees north of the target; 0.1 degree is
// about 6.9 miles.
func north(resolver fakeResolver, zip, city string, latDelta float64) {
	resolver[zip] = domain.ZIPPlace{ZIP: zip, City: city, State: "NY", Lat: 40.0 + latDelta, Lon: -73.0}
}

func record(zip string, housing, health, opportunity domain.Grade) domain.LocationRecord {
	return domain.LocationRecord{
		ZIP:              zip,
		HousingScore:     domain.Ptr(housing),
		HealthScore:      domain.Ptr(health),
		OpportunityScore: domain.Ptr(opportunity),
	}
}

func newEngine(locs *fakeLocations, results *fakeResults, resolver fakeResolver) (*recommend.Engine, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	users := fakeUsers{1: {ID: 1, Email: "a@example.com"}}
	return recommend.NewEngine(locs, results, users, resolver, m, slog.Default()), m
}

func baseResolver() fakeResolver {
	r := fakeResolver{}
	north(r, targetZIP, "Great Neck", 0)
	return r
}

func recommendationCount(m *observability.Metrics, outcome string) int {
	return int(testutil.ToFloat64(m.Recommendations.WithLabelValues(outcome)))
}

func TestValidate(t *testing.T) {
	e, _ := newEngine(&fakeLocations{}, &fakeResults{}, baseResolver())
	ctx := context.Background()

	cases := []struct {
		name  string
		user  int64
		prefs []string
		zip   string
		field string
		want  error
	}{
		{"two preferences", 1, []string{"housing_score", "health_score"}, "11021", "preferences", domain.ErrPreferenceCount},
		{"four preferences", 1, []string{"housing_score", "health_score", "engagement_score", "opportunity_score"}, "11021", "preferences", domain.ErrPreferenceCount},
		{"unknown field", 1, []string{"housing_score", "health_score", "crime_score"}, "11021", "preferences", domain.ErrUnknownMetric},
		{"duplicate field", 1, []string{"housing_score", "housing_score", "health_score"}, "11021", "preferences", domain.ErrDuplicateMetric},
		{"missing zip", 1, []string{"housing_score", "health_score", "opportunity_score"}, " ", "target_zip", domain.ErrTargetZIPRequired},
		{"malformed zip", 1, []string{"housing_score", "health_score", "opportunity_score"}, "1102", "target_zip", domain.ErrUnresolvedZIP},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Validate(ctx, tc.user, tc.prefs, tc.zip, "")
			require.ErrorIs(t, err, tc.want)
			var fe *domain.FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.field, fe.Field)
		})
	}

	t.Run("unknown caller", func(t *testing.T) {
		_, err := e.Validate(ctx, 42, []string{"housing_score", "health_score", "opportunity_score"}, "11021", "")
		require.ErrorIs(t, err, domain.ErrUnknownCaller)
	})

	t.Run("valid", func(t *testing.T) {
		req, err := e.Validate(ctx, 1, []string{"housing_score", "health_score", "opportunity_score"}, " 11021 ", " weekend ")
		require.NoError(t, err)
		assert.Equal(t, domain.RecommendationRequest{UserID: 1, Preferences: prefs, TargetZIP: "11021", Label: "weekend"}, req)
	})
}

func TestRank(t *testing.T) {
	records := []domain.LocationRecord{
		record("00001", domain.GradeC, domain.GradeC, domain.GradeC),
		record("00002", domain.GradeAPlus, domain.GradeA, domain.GradeB),
		record("00003", domain.GradeC, domain.GradeC, domain.GradeC),
		{ZIP: "00004", HousingScore: domain.Ptr(domain.GradeAPlus)},
	}

	got := recommend.Rank(records, prefs)

	require.Len(t, got, 3, "records missing a preference field are excluded")
	assert.Equal(t, "00002", got[0].Record.ZIP)
	assert.Equal(t, 8+7+5, got[0].Score)
	assert.Equal(t, "00001", got[1].Record.ZIP, "ties keep input order")
	assert.Equal(t, "00003", got[2].Record.ZIP)
}

func TestRecommend_FiltersByDistanceBand(t *testing.T) {
	resolver := baseResolver()
	north(resolver, "10001", "Too Close", 0.1) // ~6.9 mi
	north(resolver, "10002", "Near", 0.2)      // ~13.8 mi
	north(resolver, "10003", "Far", 0.3)       // ~20.7 mi
	north(resolver, "10004", "Too Far", 0.4)   // ~27.6 mi

	locs := &fakeLocations{records: []domain.LocationRecord{
		record("10001", domain.GradeAPlus, domain.GradeAPlus, domain.GradeAPlus),
		record("10003", domain.GradeA, domain.GradeA, domain.GradeA),
		record("10002", domain.GradeB, domain.GradeB, domain.GradeB),
		record("10004", domain.GradeA, domain.GradeA, domain.GradeA),
		record("10005", domain.GradeA, domain.GradeA, domain.GradeA), // unresolvable
		{ZIP: "10006", HousingScore: domain.Ptr(domain.GradeA)},
	}}
	results := &fakeResults{}
	e, m := newEngine(locs, results, resolver)

	req := domain.RecommendationRequest{UserID: 1, Preferences: prefs, TargetZIP: targetZIP, Label: "first"}
	rec, err := e.Recommend(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, rec.Candidates, 2)
	first := rec.Candidates[0]
	assert.Equal(t, "10003", first.ZIP)
	assert.Equal(t, "Far", first.Town)
	assert.Equal(t, 21, first.Score)
	assert.InDelta(t, 20.73, first.DistanceMiles, 0.05)
	assert.Equal(t, map[domain.MetricField]domain.Grade{
		domain.MetricHousing:     domain.GradeA,
		domain.MetricHealth:      domain.GradeA,
		domain.MetricOpportunity: domain.GradeA,
	}, first.Grades)
	assert.Equal(t, "10002", rec.Candidates[1].ZIP)

	for _, c := range rec.Candidates {
		assert.GreaterOrEqual(t, c.DistanceMiles, recommend.MinDistanceMiles)
		assert.LessOrEqual(t, c.DistanceMiles, recommend.MaxDistanceMiles)
	}

	require.Len(t, results.saved, 1)
	assert.Equal(t, int64(1), rec.ResultID)
	assert.Equal(t, []string{"10003", "10002"}, results.saved[0].ZIPCodes)
	assert.Equal(t, "first", results.saved[0].Name)
	assert.Equal(t, domain.PreferenceFilters{Preferences: prefs, TargetZIP: targetZIP}, results.saved[0].Filters)
	assert.Equal(t, 1, recommendationCount(m, "succeeded"))
}

// edgeLat returns the latitude due north of the target whose distance sits on
// the edge of miles: the smallest latitude at least miles away when atLeast is
// set, otherwise the largest latitude at most miles away. One ULP further out
// crosses the edge.
func edgeLat(miles float64, atLeast bool) float64 {
	const lat0, lon = 40.0, -73.0
	dist := func(lat float64) float64 { return domain.HaversineMiles(lat0, lon, lat, lon) }
	lat := lat0 + miles/domain.EarthRadiusMiles*180/math.Pi
	up, down := math.Inf(1), math.Inf(-1)

	if atLeast {
		for dist(lat) < miles {
			lat = math.Nextafter(lat, up)
		}
		for dist(math.Nextafter(lat, down)) >= miles {
			lat = math.Nextafter(lat, down)
		}
		return lat
	}
	for dist(lat) > miles {
		lat = math.Nextafter(lat, down)
	}
	for dist(math.Nextafter(lat, up)) <= miles {
		lat = math.Nextafter(lat, up)
	}
	return lat
}

func TestRecommend_DistanceBandIsInclusive(t *testing.T) {
	minEdge := edgeLat(recommend.MinDistanceMiles, true)
	maxEdge := edgeLat(recommend.MaxDistanceMiles, false)

	resolver := baseResolver()
	place := func(zip string, lat float64) {
		resolver[zip] = domain.ZIPPlace{ZIP: zip, City: zip, State: "NY", Lat: lat, Lon: -73.0}
	}
	place("20001", minEdge)
	place("20002", math.Nextafter(minEdge, math.Inf(-1)))
	place("20003", maxEdge)
	place("20004", math.Nextafter(maxEdge, math.Inf(1)))

	locs := &fakeLocations{}
	for _, zip := range []string{"20001", "20002", "20003", "20004"} {
		locs.records = append(locs.records, record(zip, domain.GradeB, domain.GradeB, domain.GradeB))
	}
	e, _ := newEngine(locs, &fakeResults{}, resolver)

	rec, err := e.Recommend(context.Background(), domain.RecommendationRequest{UserID: 1, Preferences: prefs, TargetZIP: targetZIP})
	require.NoError(t, err)

	var zips []string
	for _, c := range rec.Candidates {
		zips = append(zips, c.ZIP)
	}
	assert.Equal(t, []string{"20001", "20003"}, zips)
	assert.InDelta(t, recommend.MinDistanceMiles, rec.Candidates[0].DistanceMiles, 0.005)
	assert.InDelta(t, recommend.MaxDistanceMiles, rec.Candidates[1].DistanceMiles, 0.005)
}

func TestRecommend_CapsAtTen(t *testing.T) {
	resolver := baseResolver()
	locs := &fakeLocations{}
	for i := range 15 {
		zip := fmt.Sprintf("1100%d", i)
		if i >= 10 {
			zip = fmt.Sprintf("110%d", i)
		}
		north(resolver, zip, "Town", 0.25)
		locs.records = append(locs.records, record(zip, domain.GradeB, domain.GradeB, domain.GradeB))
	}
	e, _ := newEngine(locs, &fakeResults{}, resolver)

	rec, err := e.Recommend(context.Background(), domain.RecommendationRequest{UserID: 1, Preferences: prefs, TargetZIP: targetZIP})
	require.NoError(t, err)
	assert.Len(t, rec.Candidates, recommend.MaxCandidates)
	assert.Equal(t, "11000", rec.Candidates[0].ZIP)
}

func TestRecommend_UnresolvableTarget(t *testing.T) {
	results := &fakeResults{}
	e, _ := newEngine(&fakeLocations{}, results, fakeResolver{})

	_, err := e.Recommend(context.Background(), domain.RecommendationRequest{UserID: 1, Preferences: prefs, TargetZIP: "99999"})
	require.ErrorIs(t, err, domain.ErrUnresolvedZIP)
	assert.Empty(t, results.saved)
}

func TestRecommend_PersistFailureStillReturnsResult(t *testing.T) {
	resolver := baseResolver()
	north(resolver, "10003", "Far", 0.3)
	locs := &fakeLocations{records: []domain.LocationRecord{record("10003", domain.GradeA, domain.GradeA, domain.GradeA)}}
	e, m := newEngine(locs, &fakeResults{err: errors.New("disk full")}, resolver)

	rec, err := e.Recommend(context.Background(), domain.RecommendationRequest{UserID: 1, Preferences: prefs, TargetZIP: targetZIP})
	require.ErrorIs(t, err, domain.ErrPersistResult)
	require.Len(t, rec.Candidates, 1)
	assert.Zero(t, rec.ResultID)
	assert.Equal(t, 1, recommendationCount(m, "persist_failed"))
}
