package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

const providerColumns = `id, name, provider_type, address, lat, lon, age_range, cost_per_month,
	capacity, current_enrollment, quality_rating, is_verified, town, added_on`

func scanProvider(row rowScanner) (domain.ChildcareProvider, error) {
	var (
		p       domain.ChildcareProvider
		typ     string
		addedOn int64
	)
	err := row.Scan(&p.ID, &p.Name, &typ, &p.Address, &p.Lat, &p.Lon, &p.AgeRange, &p.CostPerMonth,
		&p.Capacity, &p.CurrentEnrollment, &p.QualityRating, &p.Verified, &p.Town, &addedOn)
	p.Type = domain.ParseProviderType(typ)
	p.AddedOn = time.Unix(addedOn, 0).UTC()
	return p, err
}

// ListProviders returns every provider ordered by id.
func (s *Store) ListProviders(ctx context.Context) ([]domain.ChildcareProvider, error) {
	return s.queryProviders(ctx, `SELECT `+providerColumns+` FROM providers ORDER BY id`)
}

// ListProvidersByTown matches town case-insensitively.
func (s *Store) ListProvidersByTown(ctx context.Context, town string) ([]domain.ChildcareProvider, error) {
	return s.queryProviders(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE town = ? COLLATE NOCASE ORDER BY id`, town)
}

// UpsertProviderByName creates a provider or refreshes the listing fields of an
// existing one. Address, town and cost are left alone on update.
func (s *Store) UpsertProviderByName(ctx context.Context, p domain.ChildcareProvider) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE providers
		SET provider_type = ?, lat = COALESCE(?, lat), lon = COALESCE(?, lon), quality_rating = COALESCE(?, quality_rating)
		WHERE name = ?`,
		string(p.Type), nullable(p.Lat), nullable(p.Lon), nullable(p.QualityRating), p.Name)
	if err != nil {
		return false, fmt.Errorf("update provider %q: %w", p.Name, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	addedOn := p.AddedOn
	if addedOn.IsZero() {
		addedOn = domain.Now()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO providers
		(name, provider_type, address, lat, lon, age_range, cost_per_month, capacity,
		 current_enrollment, quality_rating, is_verified, town, added_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, string(p.Type), p.Address, nullable(p.Lat), nullable(p.Lon), p.AgeRange,
		nullable(p.CostPerMonth), nullable(p.Capacity), p.CurrentEnrollment, nullable(p.QualityRating),
		p.Verified, nullable(p.Town), addedOn.Unix())
	if err != nil {
		return false, fmt.Errorf("insert provider %q: %w", p.Name, err)
	}
	return true, nil
}

// SetProviderTown records the town derived from a provider's address.
func (s *Store) SetProviderTown(ctx context.Context, id int64, town string) error {
	return s.updateProvider(ctx, id, `UPDATE providers SET town = ? WHERE id = ?`, town)
}

// SetProviderCost records a monthly cost for a provider.
func (s *Store) SetProviderCost(ctx context.Context, id int64, costPerMonth float64) error {
	return s.updateProvider(ctx, id, `UPDATE providers SET cost_per_month = ? WHERE id = ?`, costPerMonth)
}

func (s *Store) updateProvider(ctx context.Context, id int64, q string, v any) error {
	res, err := s.db.ExecContext(ctx, q, v, id)
	if err != nil {
		return fmt.Errorf("update provider %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("provider %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) queryProviders(ctx context.Context, q string, args ...any) ([]domain.ChildcareProvider, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query providers: %w", err)
	}
	defer rows.Close()

	var out []domain.ChildcareProvider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
