package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics exposes API request counters in Prometheus format.
// Each instance owns its registry so servers and tests do not collide.
type HTTPMetrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	grades   *prometheus.CounterVec
}

// NewHTTPMetrics registers the request and grade collectors on a fresh registry.
func NewHTTPMetrics() *HTTPMetrics {
	m := &HTTPMetrics{registry: prometheus.NewRegistry()}
	m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventcheck",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of API requests by route and status code",
	}, []string{"route", "code"})
	m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eventcheck",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "API request latency by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	m.grades = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventcheck",
		Name:      "comparisons_total",
		Help:      "Comparisons served by the API, by consistency grade",
	}, []string{"consistency"})

	m.registry.MustRegister(
		m.requests, m.duration, m.grades,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the /metrics scrape endpoint.
func (m *HTTPMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished request.
func (m *HTTPMetrics) ObserveRequest(route string, code int, d time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveGrade counts a comparison served by the API.
func (m *HTTPMetrics) ObserveGrade(grade string) {
	m.grades.WithLabelValues(grade).Inc()
}
