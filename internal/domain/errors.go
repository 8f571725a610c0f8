package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when no record matches the key.
	ErrNotFound = errors.New("not found")

	// ErrAlreadySet marks a record whose target field is already populated.
	// Enrichment jobs count it separately from skips.
	ErrAlreadySet = errors.New("field already set")

	// ErrUnresolvedZIP is returned when no ZIP code can be derived from text.
	ErrUnresolvedZIP = errors.New("zip code unresolved")

	// ErrUnresolvedTown is returned when an address has no trailing "town, ST 12345".
	ErrUnresolvedTown = errors.New("town unresolved")

	// ErrInsufficientData is returned by derivations that lack the inputs they need.
	ErrInsufficientData = errors.New("insufficient data")
)

// Recommendation request validation errors.
var (
	ErrPreferenceCount   = errors.New("exactly three preference fields are required")
	ErrUnknownMetric     = errors.New("unknown preference field")
	ErrDuplicateMetric   = errors.New("duplicate preference field")
	ErrTargetZIPRequired = errors.New("target zip code is required")
	ErrUnknownCaller     = errors.New("caller identity could not be resolved")
)

// ErrPersistResult wraps a failure to record a computed recommendation.
// The computed result is still returned alongside it.
var ErrPersistResult = errors.New("persist recommendation result")

// FieldError ties a validation failure to the request field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ErrQueueClosed is returned by a TaskQueue after Close.
var ErrQueueClosed = errors.New("task queue closed")

// ErrDuplicateEmail is returned when registering an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")
