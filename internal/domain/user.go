package domain

import "time"

// User is an account that can submit recommendation requests.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  string    `json:"phone_number"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PreferenceFilters is the request half of a PreferenceResult.
type PreferenceFilters struct {
	Preferences []MetricField `json:"preferences"`
	TargetZIP   string        `json:"target_zip"`
}

// PreferenceResult is an append-only record of one recommendation request and
// the ordered ZIP codes it produced.
type PreferenceResult struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"user_id"`
	Name      string            `json:"name"`
	Filters   PreferenceFilters `json:"filters"`
	ZIPCodes  []string          `json:"zip_codes"`
	CreatedAt time.Time         `json:"created_at"`
}
