// Package recommend ranks locations against three preferred livability
// sub-scores and keeps the best ones within commuting distance of a target ZIP.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
)

const (
	// PreferenceCount is the number of sub-scores a request ranks on.
	PreferenceCount = 3
	// MinDistanceMiles and MaxDistanceMiles bound the inclusive distance band.
	MinDistanceMiles = 12.0
	MaxDistanceMiles = 25.0
	// MaxCandidates caps the result list.
	MaxCandidates = 10
)

// Engine validates and executes recommendation requests.
type Engine struct {
	locations domain.LocationRepository
	results   domain.PreferenceResultRepository
	users     domain.UserRepository
	resolver  domain.ZIPResolver
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(
	locations domain.LocationRepository,
	results domain.PreferenceResultRepository,
	users domain.UserRepository,
	resolver domain.ZIPResolver,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		locations: locations,
		results:   results,
		users:     users,
		resolver:  resolver,
		metrics:   metrics,
		logger:    logger,
	}
}

// Validate checks a raw request before it is enqueued. Each failure is a
// *domain.FieldError wrapping one of the domain validation errors, except an
// unknown caller which returns domain.ErrUnknownCaller.
func (e *Engine) Validate(ctx context.Context, userID int64, preferences []string, targetZIP, label string) (domain.RecommendationRequest, error) {
	if len(preferences) != PreferenceCount {
		return domain.RecommendationRequest{}, &domain.FieldError{Field: "preferences", Err: domain.ErrPreferenceCount}
	}

	fields := make([]domain.MetricField, 0, PreferenceCount)
	for _, p := range preferences {
		f, err := domain.ParseMetricField(p)
		if err != nil {
			return domain.RecommendationRequest{}, &domain.FieldError{Field: "preferences", Err: err}
		}
		if slices.Contains(fields, f) {
			return domain.RecommendationRequest{}, &domain.FieldError{Field: "preferences", Err: fmt.Errorf("%w: %s", domain.ErrDuplicateMetric, f)}
		}
		fields = append(fields, f)
	}

	targetZIP = strings.TrimSpace(targetZIP)
	if targetZIP == "" {
		return domain.RecommendationRequest{}, &domain.FieldError{Field: "target_zip", Err: domain.ErrTargetZIPRequired}
	}
	if !domain.ValidZIP(targetZIP) {
		return domain.RecommendationRequest{}, &domain.FieldError{Field: "target_zip", Err: fmt.Errorf("%w: %q", domain.ErrUnresolvedZIP, targetZIP)}
	}

	if _, err := e.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.RecommendationRequest{}, domain.ErrUnknownCaller
		}
		return domain.RecommendationRequest{}, fmt.Errorf("look up caller: %w", err)
	}

	return domain.RecommendationRequest{
		UserID:      userID,
		Preferences: fields,
		TargetZIP:   targetZIP,
		Label:       strings.TrimSpace(label),
	}, nil
}

// Ranked is a location with its summed preference score.
type Ranked struct {
	Record domain.LocationRecord
	Score  int
}

// Recommend runs the ranking for a validated request and records the result.
// An unresolvable target ZIP fails the whole request. If only the final
// persistence fails, the computed recommendation is returned together with an
// error wrapping domain.ErrPersistResult.
func (e *Engine) Recommend(ctx context.Context, req domain.RecommendationRequest) (domain.Recommendation, error) {
	target, err := e.resolver.ResolveZIP(ctx, req.TargetZIP)
	if err != nil {
		e.metrics.Recommendations.WithLabelValues("failed").Inc()
		return domain.Recommendation{}, fmt.Errorf("resolve target zip %s: %w", req.TargetZIP, err)
	}

	records, err := e.locations.ListLocationsWithMetrics(ctx, req.Preferences)
	if err != nil {
		e.metrics.Recommendations.WithLabelValues("failed").Inc()
		return domain.Recommendation{}, fmt.Errorf("load candidates: %w", err)
	}

	ranked := Rank(records, req.Preferences)
	candidates := e.withinBand(ctx, target, ranked, req.Preferences)

	rec := domain.Recommendation{TargetZIP: req.TargetZIP, Candidates: candidates}
	e.metrics.RecommendationCandidates.Observe(float64(len(candidates)))

	zips := make([]string, len(candidates))
	for i, c := range candidates {
		zips[i] = c.ZIP
	}
	id, err := e.results.CreatePreferenceResult(ctx, domain.PreferenceResult{
		UserID:    req.UserID,
		Name:      req.Label,
		Filters:   domain.PreferenceFilters{Preferences: req.Preferences, TargetZIP: req.TargetZIP},
		ZIPCodes:  zips,
		CreatedAt: domain.Now(),
	})
	if err != nil {
		e.metrics.Recommendations.WithLabelValues("persist_failed").Inc()
		e.logger.Warn("recommendation computed but not recorded", "user_id", req.UserID, "target_zip", req.TargetZIP, "error", err)
		return rec, fmt.Errorf("%w: %w", domain.ErrPersistResult, err)
	}

	rec.ResultID = id
	e.metrics.Recommendations.WithLabelValues("succeeded").Inc()
	e.logger.Info("recommendation completed", "user_id", req.UserID, "target_zip", req.TargetZIP, "candidates", len(candidates))
	return rec, nil
}

// Rank orders records by the summed rank value of the given fields, highest
// first. Ties keep their input order.
func Rank(records []domain.LocationRecord, fields []domain.MetricField) []Ranked {
	out := make([]Ranked, 0, len(records))
	for _, r := range records {
		if !r.HasMetrics(fields) {
			continue
		}
		total := 0
		for _, f := range fields {
			total += domain.RankValue(r.Metric(f))
		}
		out = append(out, Ranked{Record: r, Score: total})
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		return b.Score - a.Score
	})
	return out
}

// withinBand walks the ranked list and keeps candidates whose distance to
// target falls in the band, stopping at MaxCandidates. Candidates that cannot
// be resolved are skipped.
func (e *Engine) withinBand(ctx context.Context, target domain.ZIPPlace, ranked []Ranked, fields []domain.MetricField) []domain.Candidate {
	out := make([]domain.Candidate, 0, MaxCandidates)
	for _, s := range ranked {
		if len(out) == MaxCandidates || ctx.Err() != nil {
			break
		}
		place, err := e.resolver.ResolveZIP(ctx, s.Record.ZIP)
		if err != nil {
			e.logger.Debug("skipping unresolvable candidate", "zip", s.Record.ZIP, "error", err)
			continue
		}
		d := domain.HaversineMiles(target.Lat, target.Lon, place.Lat, place.Lon)
		if d < MinDistanceMiles || d > MaxDistanceMiles {
			continue
		}

		grades := make(map[domain.MetricField]domain.Grade, len(fields))
		for _, f := range fields {
			grades[f] = *s.Record.Metric(f)
		}
		out = append(out, domain.Candidate{
			ZIP:           s.Record.ZIP,
			Town:          place.City,
			DistanceMiles: domain.Round2(d),
			Score:         s.Score,
			Grades:        grades,
		})
	}
	return out
}
