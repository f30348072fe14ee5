// Package metrics exposes the index checker's Prometheus collectors.
// A nil *Metrics is valid and records nothing, so metrics can be disabled by config.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/index-checker/internal/models"
)

const namespace = "indexcheck"

// Metrics holds all collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	HTTPInFlight     prometheus.Gauge
	URLsChecked      *prometheus.CounterVec
	SerperDuration   *prometheus.HistogramVec
	EditorSessions   prometheus.Counter
	SessionsCleaned  prometheus.Counter
	SitemapDiscovery prometheus.Histogram
}

// New registers the collectors plus Go and process collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served",
		}),
		URLsChecked: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urls_checked_total",
			Help:      "URLs checked against the search index by result",
		}, []string{"status"}),
		SerperDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "serper_request_duration_seconds",
			Help:      "Serper API request latency by HTTP status",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"outcome"}),
		EditorSessions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "editor_sessions_created_total",
			Help:      "Editor sessions and snapshots created",
		}),
		SessionsCleaned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "editor_sessions_cleaned_total",
			Help:      "Stale editor sessions removed by cleanup",
		}),
		SitemapDiscovery: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sitemap_urls_discovered",
			Help:      "URLs found per sitemap discovery",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count, latency and in-flight requests per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.HTTPInFlight.Inc()
		defer m.HTTPInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordChecks counts results by status.
func (m *Metrics) RecordChecks(results []models.CheckedURL) {
	if m == nil {
		return
	}
	for i := range results {
		m.URLsChecked.WithLabelValues(statusLabel(results[i].Status)).Inc()
	}
}

// ObserveSerperRequest implements serper.Recorder.
func (m *Metrics) ObserveSerperRequest(d time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.SerperDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// SessionCreated counts a new editor session or snapshot.
func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.EditorSessions.Inc()
}

// SessionsCleanedUp adds n removed sessions.
func (m *Metrics) SessionsCleanedUp(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsCleaned.Add(float64(n))
}

// SitemapDiscovered records how many URLs one discovery found.
func (m *Metrics) SitemapDiscovered(n int) {
	if m == nil {
		return
	}
	m.SitemapDiscovery.Observe(float64(n))
}

func statusLabel(s models.IndexStatus) string {
	switch s {
	case models.StatusIndexed:
		return "indexed"
	case models.StatusNotIndexed:
		return "not_indexed"
	default:
		return "error"
	}
}
