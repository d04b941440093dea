// Package api serves the mocked REST v2 routes. Every route resolves its
// response from the store by key specificity.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/mocksrv/internal/domain/endpoints"
	"github.com/okian/mocksrv/internal/domain/resolver"
	"github.com/okian/mocksrv/pkg/logger"
)

// Server wires HTTP routes for the mocked API.
type Server struct {
	resolver  *resolver.Resolver
	log       logger.Logger
	endpoints []endpoints.Endpoint
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and resolution logs.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithEndpoints replaces the served route table. Used by tests.
func WithEndpoints(eps []endpoints.Endpoint) Option {
	return func(s *Server) {
		s.endpoints = eps
	}
}

// NewServer creates an API server that reads responses from store.
func NewServer(store resolver.Reader, opts ...Option) *Server {
	s := &Server{
		resolver:  resolver.New(store),
		log:       logger.Nop(),
		endpoints: endpoints.All(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register binds one handler per endpoint under its derived method. Requests
// with another method on a known path get the router's 405.
func (s *Server) Register(r chi.Router) {
	for _, ep := range s.endpoints {
		r.Method(ep.Method, ep.Path, MetricsMiddleware(s.resolveHandler(ep), ep.Name()))
	}
}

// Handler returns a router serving every endpoint with request logging.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(s.log))
	s.Register(r)
	return r
}

// Endpoints reports the routes served.
func (s *Server) Endpoints() []endpoints.Endpoint {
	return s.endpoints
}

type errorResponse struct {
	Error string   `json:"error"`
	Keys  []string `json:"keys,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
