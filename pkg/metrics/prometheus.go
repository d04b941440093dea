// Package metrics provides Prometheus metrics for the mocksrv REST mock.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes.
const (
	OutcomeHit         = "hit"
	OutcomeMiss        = "miss"
	OutcomeBadResponse = "bad_response"
	OutcomeStoreError  = "store_error"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Resolution engine
	resolutions   *prometheus.CounterVec
	fallbackDepth prometheus.Histogram

	// Response store and its control channel
	storedResponses   prometheus.Gauge
	controlOperations *prometheus.CounterVec
	fixtureReloads    *prometheus.CounterVec

	errors *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mocksrv",
		subsystem:        "rest",
		histogramBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "HTTP requests served, by endpoint, method and status code",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.resolutions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "resolutions_total",
		Help:        "Response resolutions by endpoint and outcome (hit, miss, bad_response, store_error)",
		ConstLabels: labels,
	}, []string{"endpoint", "outcome"})

	m.fallbackDepth = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "resolution_fallback_depth",
		Help:        "Number of candidate keys skipped before a hit (0 = most specific key matched)",
		Buckets:     prometheus.LinearBuckets(0, 1, 6),
		ConstLabels: labels,
	})

	m.storedResponses = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stored_responses",
		Help:        "Number of keys currently held by the response store",
		ConstLabels: labels,
	})

	m.controlOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "control_operations_total",
		Help:        "Response store mutations issued through the control channel",
		ConstLabels: labels,
	}, []string{"operation"})

	m.fixtureReloads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fixture_reloads_total",
		Help:        "Fixture file applications by result",
		ConstLabels: labels,
	}, []string{"result"})

	m.errors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_total",
		Help:        "Errors by component and type",
		ConstLabels: labels,
	}, []string{"component", "type"})
}

// ObserveHTTPRequest records one served request and its latency.
func (m *Manager) ObserveHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordResolution records the outcome of one resolution. depth is only
// observed for hits.
func (m *Manager) RecordResolution(endpoint, outcome string, depth int) {
	m.resolutions.WithLabelValues(endpoint, outcome).Inc()
	if outcome == OutcomeHit {
		m.fallbackDepth.Observe(float64(depth))
	}
}

// SetStoredResponses sets the stored responses gauge.
func (m *Manager) SetStoredResponses(n int) {
	m.storedResponses.Set(float64(n))
}

// RecordControlOperation counts a control channel mutation.
func (m *Manager) RecordControlOperation(op string) {
	m.controlOperations.WithLabelValues(op).Inc()
}

// RecordFixtureReload counts a fixture application; result is "ok" or "error".
func (m *Manager) RecordFixtureReload(result string) {
	m.fixtureReloads.WithLabelValues(result).Inc()
}

// RecordError counts an error by component and type.
func (m *Manager) RecordError(component, errorType string) {
	m.errors.WithLabelValues(component, errorType).Inc()
}

// ObserveHTTPRequest records a request on the global manager.
func ObserveHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.ObserveHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordResolution records a resolution outcome on the global manager.
func RecordResolution(endpoint, outcome string, depth int) {
	globalManager.RecordResolution(endpoint, outcome, depth)
}

// SetStoredResponses sets the stored responses gauge on the global manager.
func SetStoredResponses(n int) {
	globalManager.SetStoredResponses(n)
}

// RecordControlOperation counts a control operation on the global manager.
func RecordControlOperation(op string) {
	globalManager.RecordControlOperation(op)
}

// RecordFixtureReload counts a fixture application on the global manager.
func RecordFixtureReload(result string) {
	globalManager.RecordFixtureReload(result)
}

// RecordError counts an error on the global manager.
func RecordError(component, errorType string) {
	globalManager.RecordError(component, errorType)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
