// Package metrics defines the Prometheus collectors FrameForge exports on
// /metrics. Every recording method is safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "frameforge"

// Recommendation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeInput   = "input_error"
	OutcomeSearch  = "search_error"
	OutcomeStale   = "superseded"
)

// Metrics holds every collector.
type Metrics struct {
	registry *prometheus.Registry

	recommendations *prometheus.CounterVec
	candidates      *prometheus.HistogramVec
	rejections      *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	buildMutations  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	rateLimited     prometheus.Counter
}

// New registers the collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := newMetrics(reg)
	m.registry = reg
	return m
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		recommendations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Category recommendation requests by outcome.",
		}, []string{"category", "outcome"}),
		candidates: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_candidates",
			Help:      "Records per recommendation request at each pipeline stage.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}, []string{"category", "stage"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compat_rejections_total",
			Help:      "Candidates dropped by each compatibility rule.",
		}, []string{"category", "rule"}),
		searchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search collaborator latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		buildMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_mutations_total",
			Help:      "Build state mutations by action.",
		}, []string{"action"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Recommendation records the outcome of one category request.
func (m *Metrics) Recommendation(category, outcome string) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(category, outcome).Inc()
}

// Candidates records how many records survived a pipeline stage
// ("retrieved", "compatible", "returned").
func (m *Metrics) Candidates(category, stage string, n int) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues(category, stage).Observe(float64(n))
}

// Rejection counts candidates dropped by rule.
func (m *Metrics) Rejection(category, rule string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rejections.WithLabelValues(category, rule).Add(float64(n))
}

// Search records collaborator latency.
func (m *Metrics) Search(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.searchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// BuildMutation counts one applied build action.
func (m *Metrics) BuildMutation(action string) {
	if m == nil {
		return
	}
	m.buildMutations.WithLabelValues(action).Inc()
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RateLimited counts one rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
