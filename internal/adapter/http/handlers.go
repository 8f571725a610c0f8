package http

import (
	"errors"
	"net/http"
	"strings"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/futureroot-service/internal/auth"
	"github.com/couchcryptid/futureroot-service/internal/domain"
)

type registerRequest struct {
	Username    string `json:"username" validate:"required,max=150"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	FirstName   string `json:"first_name" validate:"max=150"`
	LastName    string `json:"last_name" validate:"max=150"`
	PhoneNumber string `json:"phone_number" validate:"max=32"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type recommendRequest struct {
	Preferences []string `json:"preferences" validate:"required"`
	TargetZIP   string   `json:"target_zip" validate:"required"`
	Name        string   `json:"name" validate:"max=255"`
}

type jobAccepted struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	sess, err := s.deps.Accounts.Register(r.Context(), auth.Registration{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	sess, err := s.deps.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, sess)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.deps.Comparer.Providers(r.Context(), "")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, nonNil(providers))
}

func (s *Server) handleTown(w http.ResponseWriter, r *http.Request) {
	town := strings.TrimSpace(r.URL.Query().Get("town"))
	if town == "" {
		writeError(w, http.StatusBadRequest, "is required", "town")
		return
	}
	providers, err := s.deps.Comparer.Providers(r.Context(), town)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, nonNil(providers))
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var towns []string
	for _, v := range r.URL.Query()["towns"] {
		towns = append(towns, strings.Split(v, ",")...)
	}
	result, err := s.deps.Comparer.CompareTowns(r.Context(), towns)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Comparer.Location(r.Context(), r.URL.Query().Get("zip"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleLivabilityZIPs(w http.ResponseWriter, r *http.Request) {
	zips, err := s.deps.Comparer.LivabilityZIPs(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string][]string{"zip_codes": nonNil(zips)})
}

// handleRecommend validates the request synchronously so bad input fails fast,
// then queues the computation and answers 202 with the job handle. Body errors
// are reported before caller identity.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var body recommendRequest
	if err := s.decode(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	userID, callerErr := s.caller(r)
	req, err := s.deps.Validator.Validate(r.Context(), userID, body.Preferences, body.TargetZIP, body.Name)
	var fe *domain.FieldError
	switch {
	case errors.As(err, &fe):
		s.respondError(w, r, err)
		return
	case callerErr != nil:
		s.respondError(w, r, callerErr)
		return
	case err != nil:
		s.respondError(w, r, err)
		return
	}
	job, err := s.deps.Jobs.SubmitRecommendation(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/jobs/"+job.ID)
	sharedobs.WriteJSON(w, http.StatusAccepted, jobAccepted{JobID: job.ID, Status: job.Status})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Jobs.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, job)
}

// caller resolves the bearer token to a user ID. A missing or invalid token
// is reported as an unknown caller.
func (s *Server) caller(r *http.Request) (int64, error) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return 0, domain.ErrUnknownCaller
	}
	return s.deps.Accounts.ParseToken(strings.TrimSpace(token))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
