package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

const userColumns = `id, username, email, first_name, last_name, phone_number, password_hash, created_at`

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u       domain.User
		created int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.PasswordHash, &created)
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, err
}

// CreateUser inserts an account and returns its id.
func (s *Store) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = domain.Now()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO users
		(username, email, first_name, last_name, phone_number, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.FirstName, u.LastName, u.PhoneNumber, u.PasswordHash, u.CreatedAt.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("create user %s: %w", u.Email, domain.ErrDuplicateEmail)
		}
		return 0, fmt.Errorf("create user %s: %w", u.Email, err)
	}
	return res.LastInsertId()
}

// GetUserByEmail matches email case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetUserByID returns domain.ErrNotFound for unknown ids.
func (s *Store) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, q string, arg any) (domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %v: %w", arg, domain.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %v: %w", arg, err)
	}
	return u, nil
}

// CreatePreferenceResult appends a recommendation result.
func (s *Store) CreatePreferenceResult(ctx context.Context, r domain.PreferenceResult) (int64, error) {
	filters, err := json.Marshal(r.Filters)
	if err != nil {
		return 0, fmt.Errorf("encode filters: %w", err)
	}
	if r.ZIPCodes == nil {
		r.ZIPCodes = []string{}
	}
	zips, err := json.Marshal(r.ZIPCodes)
	if err != nil {
		return 0, fmt.Errorf("encode zip codes: %w", err)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = domain.Now()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO preference_results (user_id, name, filters, zip_codes, created_at)
		VALUES (?, ?, ?, ?, ?)`, r.UserID, r.Name, string(filters), string(zips), r.CreatedAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("insert preference result: %w", err)
	}
	return res.LastInsertId()
}

// ListPreferenceResults returns a user's results, newest first.
func (s *Store) ListPreferenceResults(ctx context.Context, userID int64) ([]domain.PreferenceResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, name, filters, zip_codes, created_at
		FROM preference_results WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query preference results: %w", err)
	}
	defer rows.Close()

	var out []domain.PreferenceResult
	for rows.Next() {
		var (
			r             domain.PreferenceResult
			filters, zips string
			created       int64
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &filters, &zips, &created); err != nil {
			return nil, fmt.Errorf("scan preference result: %w", err)
		}
		if err := json.Unmarshal([]byte(filters), &r.Filters); err != nil {
			return nil, fmt.Errorf("decode filters %d: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(zips), &r.ZIPCodes); err != nil {
			return nil, fmt.Errorf("decode zip codes %d: %w", r.ID, err)
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
