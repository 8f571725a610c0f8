package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dario.cat/mergo"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

const locationColumns = `zip_code, housing_cost, infant_care_weekly_cost, tax_rate, commuter_score,
	livability_score, housing_score, neighborhood_score, transportation_score,
	environment_score, health_score, engagement_score, opportunity_score,
	median_household_income, school_resource_url`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (domain.LocationRecord, error) {
	var r domain.LocationRecord
	err := row.Scan(&r.ZIP, &r.HousingCost, &r.InfantCareWeeklyCost, &r.TaxRate, &r.CommuterScore,
		&r.LivabilityScore, &r.HousingScore, &r.NeighborhoodScore, &r.TransportationScore,
		&r.EnvironmentScore, &r.HealthScore, &r.EngagementScore, &r.OpportunityScore,
		&r.MedianHouseholdIncome, &r.SchoolResourceURL)
	return r, err
}

func locationArgs(r domain.LocationRecord) []any {
	return []any{r.ZIP, nullable(r.HousingCost), nullable(r.InfantCareWeeklyCost), nullable(r.TaxRate),
		grade(r.CommuterScore), grade(r.LivabilityScore), grade(r.HousingScore), grade(r.NeighborhoodScore),
		grade(r.TransportationScore), grade(r.EnvironmentScore), grade(r.HealthScore),
		grade(r.EngagementScore), grade(r.OpportunityScore),
		nullable(r.MedianHouseholdIncome), nullable(r.SchoolResourceURL)}
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func grade(g *domain.Grade) any {
	if g == nil {
		return nil
	}
	return string(*g)
}

// GetLocation returns domain.ErrNotFound when no record exists for zip.
func (s *Store) GetLocation(ctx context.Context, zip string) (domain.LocationRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM locations WHERE zip_code = ?`, zip)
	r, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LocationRecord{}, fmt.Errorf("location %s: %w", zip, domain.ErrNotFound)
	}
	if err != nil {
		return domain.LocationRecord{}, fmt.Errorf("get location %s: %w", zip, err)
	}
	return r, nil
}

// UpsertLocation merges the non-nil fields of patch over the stored record in a
// single transaction, so concurrent jobs writing different fields never clobber
// each other.
func (s *Store) UpsertLocation(ctx context.Context, patch domain.LocationRecord) error {
	if !domain.ValidZIP(patch.ZIP) {
		return fmt.Errorf("upsert location: invalid zip %q", patch.ZIP)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert %s: %w", patch.ZIP, err)
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := scanLocation(tx.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE zip_code = ?`, patch.ZIP))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing = domain.LocationRecord{ZIP: patch.ZIP}
	case err != nil:
		return fmt.Errorf("read location %s: %w", patch.ZIP, err)
	}

	if err := mergo.Merge(&existing, patch, mergo.WithOverride, mergo.WithoutDereference); err != nil {
		return fmt.Errorf("merge location %s: %w", patch.ZIP, err)
	}

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO locations (`+locationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, locationArgs(existing)...)
	if err != nil {
		return fmt.Errorf("write location %s: %w", patch.ZIP, err)
	}
	return tx.Commit()
}

// ListLocations returns every record ordered by ZIP.
func (s *Store) ListLocations(ctx context.Context) ([]domain.LocationRecord, error) {
	return s.queryLocations(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY zip_code`)
}

// ListLocationsWithMetrics returns records where every listed sub-score is set.
func (s *Store) ListLocationsWithMetrics(ctx context.Context, fields []domain.MetricField) ([]domain.LocationRecord, error) {
	var where []string
	for _, f := range fields {
		// Column names equal the metric field names; reject anything outside the enum.
		if _, err := domain.ParseMetricField(string(f)); err != nil {
			return nil, err
		}
		where = append(where, string(f)+" IS NOT NULL")
	}
	q := `SELECT ` + locationColumns + ` FROM locations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	return s.queryLocations(ctx, q+` ORDER BY zip_code`)
}

func (s *Store) queryLocations(ctx context.Context, q string, args ...any) ([]domain.LocationRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var out []domain.LocationRecord
	for rows.Next() {
		r, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
