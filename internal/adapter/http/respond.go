package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/futureroot-service/internal/auth"
	"github.com/couchcryptid/futureroot-service/internal/domain"
)

const (
	errInternal = "internal server error"
	maxBodySize = 1 << 20
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, field string) {
	sharedobs.WriteJSON(w, status, errorBody{Error: msg, Field: field})
}

// respondError maps service errors onto status codes. Unclassified errors are
// logged and answered with a generic message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *domain.FieldError
	switch {
	case errors.As(err, &fe):
		writeError(w, http.StatusBadRequest, fe.Err.Error(), fe.Field)
	case errors.Is(err, domain.ErrUnresolvedZIP):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, domain.ErrUnknownCaller), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusForbidden, domain.ErrUnknownCaller.Error(), "")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error(), "")
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, domain.ErrDuplicateEmail.Error(), "email")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", "")
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, errInternal, "")
	}
}

// decode reads a JSON body into dst and runs struct validation on it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &domain.FieldError{Field: "body", Err: errors.New("malformed JSON body")}
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &domain.FieldError{Field: verrs[0].Field(), Err: validationMessage(verrs[0])}
		}
		return &domain.FieldError{Field: "body", Err: err}
	}
	return nil
}

func validationMessage(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return errors.New("is required")
	case "email":
		return errors.New("must be a valid email address")
	case "min":
		return errors.New("must be at least " + fe.Param() + " characters")
	case "max":
		return errors.New("must be at most " + fe.Param() + " characters")
	}
	return errors.New("failed " + fe.Tag() + " validation")
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
