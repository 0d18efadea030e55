// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/scorekeep/internal/adapters/http/swagger"
	"github.com/okian/scorekeep/pkg/logger"
	"github.com/okian/scorekeep/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoreDependencies
	LeaderboardDependencies
	RegisterDependencies
	LoginDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	settings

	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	scoreHandler       *ScoreHandler
	leaderboardHandler *LeaderboardHandler
	registerHandler    *RegisterHandler
	loginHandler       *LoginHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := settings{
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	return &Server{
		settings:           s,
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		scoreHandler:       NewScoreHandler(deps, s.apiKey, s.logger),
		leaderboardHandler: NewLeaderboardHandler(deps, s.logger),
		registerHandler:    NewRegisterHandler(deps, s.logger),
		loginHandler:       NewLoginHandler(deps, s.apiKey, s.logger),
	}
}

// Router builds the chi router with every route attached.
func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		ExposedHeaders: []string{"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	// Ops routes sit outside the limiter.
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	swagger.Register(ctx, r)

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(RateLimitMiddleware(s.limiter, s.logger))
		}
		r.Post("/score", MetricsMiddleware(s.scoreHandler.HandlePostScore, "score"))
		r.Get("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
		r.Post("/register", MetricsMiddleware(s.registerHandler.HandlePostRegister, "register"))
		r.Post("/login", MetricsMiddleware(s.loginHandler.HandlePostLogin, "login"))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, msgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool   `json:"success"`
	UID     string `json:"uid,omitempty"`
	Pseudo  string `json:"pseudo,omitempty"`
	Token   string `json:"token,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
