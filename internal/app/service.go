// Package service owns the mock's lifecycle: the response store, the API and
// control listeners, and the fixtures watcher.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/mocksrv/internal/adapters/fixtures"
	"github.com/okian/mocksrv/internal/adapters/http/api"
	"github.com/okian/mocksrv/internal/adapters/http/control"
	"github.com/okian/mocksrv/internal/adapters/repository"
	"github.com/okian/mocksrv/pkg/logger"
	"github.com/okian/mocksrv/pkg/metrics"
)

const backendInjected = "injected"

// Service runs the mocked API and its control channel over one store.
type Service struct {
	lifecycle sync.Mutex
	mu        sync.RWMutex

	// Core components
	store     repository.Store
	ownsStore bool
	settings  repository.Settings
	api       *api.Server
	control   *control.Server
	loader    *fixtures.Loader

	// Configuration
	apiAddr         string
	controlAddr     string
	fixtures        string
	watchFixtures   bool
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	// State
	instanceID    string
	started       bool
	apiServer     *http.Server
	controlServer *http.Server
	apiLn         net.Listener
	controlLn     net.Listener
	stopWatch     context.CancelFunc
	watchDone     chan struct{}

	// Logging
	logger logger.Logger
	log    logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a response store. The service does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithStoreSettings selects the backend built on Start when no store is
// injected.
func WithStoreSettings(settings repository.Settings) Option {
	return func(s *Service) {
		s.settings = settings
	}
}

// WithAPIAddr sets the listen address of the mocked API.
func WithAPIAddr(addr string) Option {
	return func(s *Service) {
		if addr != "" {
			s.apiAddr = addr
		}
	}
}

// WithControlAddr sets the listen address of the control channel.
func WithControlAddr(addr string) Option {
	return func(s *Service) {
		if addr != "" {
			s.controlAddr = addr
		}
	}
}

// WithFixtures names a fixtures file applied on Start.
func WithFixtures(path string) Option {
	return func(s *Service) {
		s.fixtures = path
	}
}

// WithWatchFixtures re-applies the fixtures file when it changes.
func WithWatchFixtures(watch bool) Option {
	return func(s *Service) {
		s.watchFixtures = watch
	}
}

// WithTimeouts sets the read and write timeouts of both listeners.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Service) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown in Stop.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		apiAddr:         ":9999",
		controlAddr:     ":9998",
		settings:        repository.Settings{Backend: repository.BackendMemory},
		readTimeout:     10 * time.Second,
		writeTimeout:    10 * time.Second,
		shutdownTimeout: 5 * time.Second,
		instanceID:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the store when none was injected, applies fixtures, binds both
// listeners and serves them in the background. The service is ready once
// Start returns nil.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.log = s.logger.With(logger.String("instance", s.instanceID))
	s.log.Info(ctx, "starting mock service...")

	if s.store == nil {
		store, err := repository.New(ctx, s.settings)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStart, err)
		}
		s.store = store
		s.ownsStore = true
	}

	s.loader = fixtures.NewLoader(s.store, fixtures.WithLogger(s.log.Named("fixtures")))
	if s.fixtures != "" {
		if err := s.loader.ApplyFile(ctx, s.fixtures); err != nil {
			s.releaseStore()
			return fmt.Errorf("%w: %w", ErrStart, err)
		}
	}

	if err := s.listen(); err != nil {
		s.releaseStore()
		return err
	}

	s.api = api.NewServer(s.store, api.WithLogger(s.log.Named("api")))
	s.control = control.NewServer(s.store,
		control.WithLogger(s.log.Named("control")),
		control.WithStats(s),
	)
	s.apiServer = s.httpServer(s.api.Handler())
	s.controlServer = s.httpServer(s.control.Handler())
	s.serve(ctx, "api", s.apiServer, s.apiLn)
	s.serve(ctx, "control", s.controlServer, s.controlLn)

	if s.fixtures != "" && s.watchFixtures {
		watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.stopWatch = cancel
		done := make(chan struct{})
		s.watchDone = done
		go func() {
			defer close(done)
			if err := s.loader.Watch(watchCtx, s.fixtures); err != nil {
				s.log.Error(watchCtx, "fixtures watcher stopped", logger.Error(err))
			}
		}()
	}

	if n, err := s.store.Count(ctx); err == nil {
		metrics.SetStoredResponses(n)
	}

	s.started = true
	s.control.SetReady(true)
	s.log.Info(ctx, "mock service started",
		logger.String("apiAddr", s.apiLn.Addr().String()),
		logger.String("controlAddr", s.controlLn.Addr().String()),
		logger.String("store", s.backend()),
		logger.Int("endpoints", len(s.api.Endpoints())),
	)
	return nil
}

func (s *Service) listen() error {
	apiLn, err := net.Listen("tcp", s.apiAddr)
	if err != nil {
		return fmt.Errorf("%w: api %s: %w", ErrListen, s.apiAddr, err)
	}
	controlLn, err := net.Listen("tcp", s.controlAddr)
	if err != nil {
		_ = apiLn.Close()
		return fmt.Errorf("%w: control %s: %w", ErrListen, s.controlAddr, err)
	}
	s.apiLn, s.controlLn = apiLn, controlLn
	return nil
}

func (s *Service) httpServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
		WriteTimeout:      s.writeTimeout,
	}
}

func (s *Service) serve(ctx context.Context, name string, srv *http.Server, ln net.Listener) {
	log := s.log
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metrics.RecordError("service", "serve")
			log.Error(ctx, "HTTP server failed", logger.String("server", name), logger.Error(err))
		}
	}()
}

// Stop marks the service not ready, drains both listeners within the
// shutdown timeout and closes the store it built. Calling Stop more than
// once is safe.
func (s *Service) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	// mu must not be held while draining: /stats handlers take it.
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	ctx := context.Background()
	s.log.Info(ctx, "stopping mock service...")
	s.control.SetReady(false)

	if s.stopWatch != nil {
		s.stopWatch()
		<-s.watchDone
		s.stopWatch = nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	for name, srv := range map[string]*http.Server{"api": s.apiServer, "control": s.controlServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error(ctx, "graceful HTTP server shutdown failed", logger.String("server", name), logger.Error(err))
		}
	}

	s.mu.Lock()
	s.releaseStore()
	s.mu.Unlock()
	s.log.Info(ctx, "mock service stopped")
}

func (s *Service) releaseStore() {
	if !s.ownsStore || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.log.Warn(context.Background(), "closing response store failed", logger.Error(err))
	}
	s.store = nil
	s.ownsStore = false
}

// APIAddr returns the bound API address once started, the configured one
// before.
func (s *Service) APIAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.started {
		return s.apiLn.Addr().String()
	}
	return s.apiAddr
}

// ControlAddr returns the bound control address once started, the configured
// one before.
func (s *Service) ControlAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.started {
		return s.controlLn.Addr().String()
	}
	return s.controlAddr
}

func (s *Service) backend() string {
	if !s.ownsStore {
		return backendInjected
	}
	if s.settings.Backend == "" {
		return repository.BackendMemory
	}
	return s.settings.Backend
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":  s.started,
		"instance": s.instanceID,
	}

	if s.started {
		stats["store"] = s.backend()
		stats["endpoints"] = len(s.api.Endpoints())
		stats["apiAddr"] = s.apiLn.Addr().String()
		stats["controlAddr"] = s.controlLn.Addr().String()
		if n, err := s.store.Count(ctx); err == nil {
			stats["storedResponses"] = n
			metrics.SetStoredResponses(n)
		} else {
			s.log.Warn(ctx, "counting stored responses failed", logger.Error(err))
		}
	}
	return stats
}
