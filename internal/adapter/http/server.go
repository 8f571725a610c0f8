package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/futureroot-service/internal/auth"
	"github.com/couchcryptid/futureroot-service/internal/compare"
	"github.com/couchcryptid/futureroot-service/internal/domain"
)

// Accounts registers users and resolves bearer tokens.
type Accounts interface {
	Register(ctx context.Context, r auth.Registration) (auth.Session, error)
	Login(ctx context.Context, email, password string) (auth.Session, error)
	ParseToken(token string) (int64, error)
}

// Comparer serves the read-only childcare and location views.
type Comparer interface {
	CompareTowns(ctx context.Context, towns []string) (map[string]compare.TownComparison, error)
	Providers(ctx context.Context, town string) ([]domain.ChildcareProvider, error)
	Location(ctx context.Context, zip string) (compare.LocationView, error)
	LivabilityZIPs(ctx context.Context) ([]string, error)
}

// RequestValidator checks a recommendation request and the caller behind it.
type RequestValidator interface {
	Validate(ctx context.Context, userID int64, preferences []string, targetZIP, label string) (domain.RecommendationRequest, error)
}

// JobQueue submits deferred work and reports job status.
type JobQueue interface {
	SubmitRecommendation(ctx context.Context, req domain.RecommendationRequest) (domain.Job, error)
	Job(ctx context.Context, id string) (domain.Job, error)
}

// Deps are the application services behind the API routes.
type Deps struct {
	Accounts  Accounts
	Comparer  Comparer
	Validator RequestValidator
	Jobs      JobQueue
	Ready     sharedobs.ReadinessChecker
}

// Options configure the middleware stack.
type Options struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSOrigins       []string
}

// Server exposes the JSON API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer builds the chi router and wraps it in an http.Server.
func NewServer(addr string, deps Deps, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		deps:     deps,
		validate: newValidator(),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins(opts.CORSOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(deps.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimitRequests > 0 && opts.RateLimitWindow > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimitRequests, opts.RateLimitWindow))
		}
		r.Post("/accounts/register", s.handleRegister)
		r.Post("/accounts/login", s.handleLogin)

		r.Get("/childcare", s.handleProviders)
		r.Get("/childcare/compare", s.handleCompare)
		r.Get("/childcare/town", s.handleTown)

		r.Get("/locations", s.handleLocation)
		r.Get("/locations/zips", s.handleLivabilityZIPs)

		r.Post("/recommendations", s.handleRecommend)
		r.Get("/jobs/{id}", s.handleJob)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Serve runs the server until ctx is cancelled, then drains connections for
// up to shutdownTimeout.
func (s *Server) Serve(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		<-errCh
		s.logger.Info("http server stopped")
		return ctx.Err()
	}
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// recoverer turns a handler panic into a generic JSON 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("handler panic",
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", chimiddleware.GetReqID(r.Context()),
					"panic", rec,
				)
				writeError(w, http.StatusInternalServerError, errInternal, "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
