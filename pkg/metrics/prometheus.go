package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch results used as the result label of calllist_fetch_total
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds all Prometheus metrics for one process. Each instance owns its
// registry, so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Call-list Fetch Metrics
	fetchTotal         *prometheus.CounterVec
	fetchDuration      prometheus.Histogram
	stageFailuresTotal *prometheus.CounterVec
	callsFetched       prometheus.Gauge

	// Auth Metrics
	authFailuresTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		registry: registry,

		// HTTP Request Metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),

		// Call-list Fetch Metrics
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calllist_fetch_total",
				Help:        "Total number of call-list fetches by result",
				ConstLabels: labels,
			},
			[]string{"result"},
		),
		fetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "calllist_fetch_duration_seconds",
				Help:        "Call-list fetch latency in seconds, request to mapped history",
				ConstLabels: labels,
				Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		stageFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calllist_stage_failures_total",
				Help:        "Total number of call-list fetches that failed, by the stage that failed",
				ConstLabels: labels,
			},
			[]string{"stage"},
		),
		callsFetched: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "calllist_calls_fetched",
				Help:        "Number of calls in the most recently fetched call list",
				ConstLabels: labels,
			},
		),

		// Auth Metrics
		authFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_failures_total",
				Help:        "Total number of rejected authentication attempts",
				ConstLabels: labels,
			},
			[]string{"reason"},
		),
	}
}

// GetRegistry returns the registry the metrics are registered with
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// WriteToTextfile writes every metric in the node exporter textfile format
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// HTTP Metrics Methods

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// Call-list Metrics Methods

// RecordFetch records a completed fetch. calls is only used on success.
func (m *Metrics) RecordFetch(result string, calls int, duration time.Duration) {
	m.fetchTotal.WithLabelValues(result).Inc()
	m.fetchDuration.Observe(duration.Seconds())
	if result == ResultSuccess {
		m.callsFetched.Set(float64(calls))
	}
}

// RecordStageFailure records the stage a fetch failed in
func (m *Metrics) RecordStageFailure(stage string) {
	m.stageFailuresTotal.WithLabelValues(stage).Inc()
}

// Auth Metrics Methods

// RecordAuthFailure records a rejected authentication attempt
func (m *Metrics) RecordAuthFailure(reason string) {
	m.authFailuresTotal.WithLabelValues(reason).Inc()
}
