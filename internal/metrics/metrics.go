// Package metrics provides Prometheus metrics for chart rendering and posting.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the rendering metrics on one registry.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	chartsRendered *prometheus.CounterVec
	renderErrors   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	postsPublished *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	historyUsers   prometheus.Gauge
	lastRenderUnix prometheus.Gauge
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		m.namespace = namespace
	}
}

// WithHistogramBuckets sets the render duration buckets, in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		m.histogramBuckets = buckets
	}
}

// WithRegistry registers metrics on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		m.registry = registry
	}
}

// NewManager creates a Manager on its own registry, so the Go runtime
// collectors of the default registry are not exported.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ratingchart",
		histogramBuckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)

	m.chartsRendered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "charts_rendered_total",
		Help:      "Total number of charts rendered by view",
	}, []string{"view"})

	m.renderErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "render_errors_total",
		Help:      "Total number of failed renders by stage",
	}, []string{"stage"})

	m.renderDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "render_duration_seconds",
		Help:      "Time spent rendering one chart view",
		Buckets:   m.histogramBuckets,
	}, []string{"view"})

	m.postsPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "posts_total",
		Help:      "Total number of chart posts by outcome",
	}, []string{"status"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and status code",
	}, []string{"endpoint", "status_code"})

	m.historyUsers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "history_users",
		Help:      "Number of users drawn in the last render",
	})

	m.lastRenderUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "last_render_timestamp_seconds",
		Help:      "Unix time of the last successful render",
	})

	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRender records one successful render of view.
func (m *Manager) ObserveRender(view string, users int, duration time.Duration) {
	m.chartsRendered.WithLabelValues(view).Inc()
	m.renderDuration.WithLabelValues(view).Observe(duration.Seconds())
	m.historyUsers.Set(float64(users))
	m.lastRenderUnix.SetToCurrentTime()
}

// RecordError counts a failure at stage ("load", "render", "encode", "post").
func (m *Manager) RecordError(stage string) {
	m.renderErrors.WithLabelValues(stage).Inc()
}

// RecordPost counts a post attempt; status is "posted", "dry_run", "skipped" or "failed".
func (m *Manager) RecordPost(status string) {
	m.postsPublished.WithLabelValues(status).Inc()
}

// RecordHTTPRequest counts one served request.
func (m *Manager) RecordHTTPRequest(endpoint, statusCode string) {
	m.httpRequests.WithLabelValues(endpoint, statusCode).Inc()
}
