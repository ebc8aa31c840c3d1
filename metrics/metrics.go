// Package metrics provides Prometheus metrics for promptsmith
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for promptsmith. Each instance owns its
// registry, so several engines can live in one process. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// LLM request metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec

	// Dispatch metrics
	DispatchAttemptsTotal prometheus.Counter
	DispatchFailuresTotal prometheus.Counter

	// Refinement metrics
	RefinementIterationsTotal prometheus.Counter
	RefinementScore           prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.CacheHitsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "promptsmith_cache_hits_total",
			Help: "Total number of requests answered from the response cache",
		},
	)

	m.CacheMissesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "promptsmith_cache_misses_total",
			Help: "Total number of requests that needed an LLM call",
		},
	)

	m.LLMRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptsmith_llm_requests_total",
			Help: "Total number of LLM chat requests",
		},
		[]string{"provider", "status"},
	)

	m.LLMRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptsmith_llm_request_duration_seconds",
			Help:    "Duration of LLM chat requests in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	m.DispatchAttemptsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "promptsmith_dispatch_attempts_total",
			Help: "Total number of dispatch attempts, retries included",
		},
	)

	m.DispatchFailuresTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "promptsmith_dispatch_failures_total",
			Help: "Total number of failed dispatch attempts",
		},
	)

	m.RefinementIterationsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "promptsmith_refinement_iterations_total",
			Help: "Total number of refinement iterations",
		},
	)

	m.RefinementScore = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "promptsmith_refinement_score",
			Help: "Score of the most recent refinement iteration",
		},
	)

	return m
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

// RecordLLMRequest records a chat request with its status
func (m *Metrics) RecordLLMRequest(provider string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordDispatchAttempt records one attempt and whether it failed
func (m *Metrics) RecordDispatchAttempt(failed bool) {
	if m == nil {
		return
	}
	m.DispatchAttemptsTotal.Inc()
	if failed {
		m.DispatchFailuresTotal.Inc()
	}
}

// RecordRefinement records a finished refinement iteration and its score
func (m *Metrics) RecordRefinement(score float64) {
	if m == nil {
		return
	}
	m.RefinementIterationsTotal.Inc()
	m.RefinementScore.Set(score)
}
