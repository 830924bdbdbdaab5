package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/laot-fitness/laot/pkg/auth"
	"github.com/laot-fitness/laot/pkg/fitness"
	"github.com/laot-fitness/laot/pkg/httputil"
	"github.com/laot-fitness/laot/pkg/middleware"
	"github.com/laot-fitness/laot/pkg/observability"
	"github.com/laot-fitness/laot/pkg/session"
	"github.com/laot-fitness/laot/pkg/storage"
	"github.com/laot-fitness/laot/pkg/validation"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Store is the persistence the handlers need
type Store interface {
	storage.UserReader
	storage.ProfileStore
	storage.WorkoutStore
	storage.GoalStore
}

// Limiter throttles a group of routes
type Limiter interface {
	Handler(next http.Handler) http.Handler
}

// Dependencies wires a Server. Metrics, Throttle and Logger are optional.
type Dependencies struct {
	Auth     *auth.Authenticator
	Store    Store
	Sessions *session.Manager
	Metrics  *observability.Metrics
	Throttle Limiter
	Logger   *observability.Logger
}

// Options controls the outer middleware chain
type Options struct {
	CORSOrigins  []string
	MaxBodyBytes int64
	// TrustProxyHeaders lets X-Forwarded-For and friends pick the client IP
	TrustProxyHeaders bool
	// Tracing wraps the handler in otelhttp
	Tracing bool
}

// DefaultOptions returns a 1 MiB body limit and no CORS origins
func DefaultOptions() Options {
	return Options{MaxBodyBytes: 1 << 20}
}

// Server represents our API server
type Server struct {
	router   *mux.Router
	auth     *auth.Authenticator
	store    Store
	sessions *session.Manager
	authMW   *middleware.AuthMiddleware
	metrics  *observability.Metrics
	throttle Limiter
	clean    *validation.Sanitizer
	options  Options
	logger   *observability.Logger
	now      func() time.Time
}

// NewServer creates a new API server
func NewServer(deps Dependencies, options Options) (*Server, error) {
	switch {
	case deps.Auth == nil:
		return nil, fmt.Errorf("authenticator is required")
	case deps.Store == nil:
		return nil, fmt.Errorf("store is required")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session manager is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	var verifications auth.Metrics
	if deps.Metrics != nil {
		verifications = deps.Metrics
	}

	s := &Server{
		router:   mux.NewRouter(),
		auth:     deps.Auth,
		store:    deps.Store,
		sessions: deps.Sessions,
		authMW:   middleware.NewAuthMiddleware(deps.Auth.Tokens(), deps.Store, verifications, logger),
		metrics:  deps.Metrics,
		throttle: deps.Throttle,
		clean:    validation.NewSanitizer(),
		options:  options,
		logger:   logger.WithField("component", "api"),
		now:      time.Now,
	}
	s.setupRoutes()
	return s, nil
}

// WithClock replaces the time used for goal date checks
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "Endpoint not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMethodNotAllowed(w)
	})
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	// Credential endpoints are throttled per IP on top of the lockout ledger
	public := s.router.PathPrefix("/api/auth").Subrouter()
	public.Handle("/register", s.throttled(http.HandlerFunc(s.register))).Methods(http.MethodPost)
	public.Handle("/login", s.throttled(http.HandlerFunc(s.login))).Methods(http.MethodPost)

	protected := s.router.PathPrefix("/api").Subrouter()
	protected.Use(s.authMW.Handler)
	protected.HandleFunc("/auth/me", s.me).Methods(http.MethodGet)

	protected.HandleFunc("/profile", s.getProfile).Methods(http.MethodGet)
	protected.HandleFunc("/profile", s.updateProfile).Methods(http.MethodPut)

	protected.HandleFunc("/workouts", s.listWorkouts).Methods(http.MethodGet)
	protected.HandleFunc("/workouts", s.createWorkout).Methods(http.MethodPost)
	protected.HandleFunc("/workouts/{id:[0-9]+}", s.updateWorkout).Methods(http.MethodPut)

	protected.HandleFunc("/goals", s.listGoals).Methods(http.MethodGet)
	protected.HandleFunc("/goals", s.createGoal).Methods(http.MethodPost)
	protected.HandleFunc("/goals/{id:[0-9]+}", s.updateGoal).Methods(http.MethodPut)
	protected.HandleFunc("/goals/{id:[0-9]+}", s.deleteGoal).Methods(http.MethodDelete)

	web := s.router.PathPrefix("/web").Subrouter()
	web.Handle("/login", s.throttled(http.HandlerFunc(s.webLogin))).Methods(http.MethodPost)

	withSession := web.NewRoute().Subrouter()
	withSession.Use(middleware.RequireSession(s.sessions), middleware.RequireCSRF(s.sessions))
	withSession.HandleFunc("/session", s.webSession).Methods(http.MethodGet)
	withSession.HandleFunc("/logout", s.webLogout).Methods(http.MethodPost)
}

func (s *Server) throttled(h http.Handler) http.Handler {
	if s.throttle == nil {
		return h
	}
	return s.throttle.Handler(h)
}

// ServeHTTP implements http.Handler without the outer middleware chain
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the router wrapped in the full middleware chain
func (s *Server) Handler() http.Handler {
	chain := []func(http.Handler) http.Handler{
		httputil.RecoveryMiddleware(s.logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.SecurityHeadersMiddleware,
		httputil.CORSMiddleware(s.options.CORSOrigins),
	}
	if s.options.MaxBodyBytes > 0 {
		chain = append(chain, httputil.MaxBytesMiddleware(s.options.MaxBodyBytes))
	}
	chain = append(chain, middleware.ClientIPMiddleware(s.options.TrustProxyHeaders))

	var h http.Handler = httputil.Chain(chain...)(s.router)
	if s.options.Tracing {
		h = otelhttp.NewHandler(h, "laot-api")
	}
	return h
}

// identity returns the caller set by the bearer middleware
func identity(r *http.Request) auth.Identity {
	id, _ := middleware.GetIdentity(r)
	return id
}

func isAthlete(id auth.Identity) bool {
	return id.HasRole(fitness.RoleAthlete)
}
