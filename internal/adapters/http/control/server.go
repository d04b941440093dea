// Package control serves the out-of-band channel used to configure mocked
// responses, plus health, readiness, metrics and stats.
package control

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/atomic"

	"github.com/okian/mocksrv/internal/adapters/http/api"
	"github.com/okian/mocksrv/internal/adapters/repository"
	"github.com/okian/mocksrv/pkg/logger"
)

// StatsProvider reports service statistics for GET /stats.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]any
}

// Server wires the control routes.
type Server struct {
	store   repository.Store
	stats   StatsProvider
	log     logger.Logger
	isReady atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStats sets the provider behind GET /stats.
func WithStats(p StatsProvider) Option {
	return func(s *Server) {
		s.stats = p
	}
}

// NewServer creates a control server over store. It starts not ready.
func NewServer(store repository.Store, opts ...Option) *Server {
	s := &Server{
		store: store,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetReady flips the readiness reported by /readyz.
func (s *Server) SetReady(ready bool) {
	s.isReady.Store(ready)
}

// Handler returns the control router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(api.RequestLogger(s.log))

	r.Get("/healthz", api.MetricsMiddleware(s.handleHealth, "control_healthz"))
	r.Get("/readyz", api.MetricsMiddleware(s.handleReady, "control_readyz"))
	r.Get("/metrics", s.handleMetrics)
	r.Get("/stats", api.MetricsMiddleware(s.handleStats, "control_stats"))

	r.Route("/responses", func(r chi.Router) {
		r.Get("/", api.MetricsMiddleware(s.handleList, "control_responses"))
		r.Post("/", api.MetricsMiddleware(s.handleBulkSet, "control_responses"))
		r.Delete("/", api.MetricsMiddleware(s.handleClear, "control_responses"))

		r.Get("/*", api.MetricsMiddleware(s.handleGet, "control_response"))
		r.Put("/*", api.MetricsMiddleware(s.handleSet, "control_response"))
		r.Post("/*", api.MetricsMiddleware(s.handleSet, "control_response"))
		r.Delete("/*", api.MetricsMiddleware(s.handleDelete, "control_response"))
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
