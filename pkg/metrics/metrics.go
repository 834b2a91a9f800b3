// Package metrics exposes the Prometheus counters/histograms/gauges
// the pipeline emits for runs, fetches, circuit breakers, and the LLM
// rate limiter (SPEC_FULL.md §B), matching the corpus's pkg/metrics
// package-level promauto-variable-plus-Record* style.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_runs_total",
		Help: "Total pipeline runs by tier and terminal status.",
	}, []string{"tier", "status"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_run_duration_seconds",
		Help:    "Wall-clock duration of a pipeline run.",
		Buckets: prometheus.ExponentialBuckets(5, 2, 12),
	}, []string{"tier"})

	EntriesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_entries_processed_total",
		Help: "Feed entries that finished a run in the given job status.",
	}, []string{"status"})

	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_fetches_total",
		Help: "HTTP fetch attempts by host and outcome.",
	}, []string{"host", "outcome"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_fetch_duration_seconds",
		Help:    "Fetch round-trip duration, successful attempts only.",
		Buckets: prometheus.DefBuckets,
	}, []string{"host"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pipeline_circuit_breaker_open",
		Help: "1 if the per-host circuit breaker is open, else 0.",
	}, []string{"host"})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_llm_requests_total",
		Help: "LLM summarization calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	LLMLimiterWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_llm_limiter_wait_seconds",
		Help:    "Time a caller blocked on the LLM RPM rate limiter.",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordRun records a terminal run outcome and its duration.
func RecordRun(tier, status string, d time.Duration) {
	RunsTotal.WithLabelValues(tier, status).Inc()
	RunDuration.WithLabelValues(tier).Observe(d.Seconds())
}

// RecordEntriesProcessed adds n entries to the given terminal job status.
func RecordEntriesProcessed(status string, n int) {
	if n <= 0 {
		return
	}
	EntriesProcessedTotal.WithLabelValues(status).Add(float64(n))
}

// RecordFetch records one fetch attempt and, on success, its duration.
func RecordFetch(host, outcome string, d time.Duration) {
	FetchesTotal.WithLabelValues(host, outcome).Inc()
	if outcome == "success" {
		FetchDuration.WithLabelValues(host).Observe(d.Seconds())
	}
}

// RecordCircuitBreakerState sets the open/closed gauge for host.
func RecordCircuitBreakerState(host string, open bool) {
	v := 0.0
	if open {
		v = 1.0
	}
	CircuitBreakerState.WithLabelValues(host).Set(v)
}

// RecordLLMRequest records one LLM completion call outcome.
func RecordLLMRequest(provider, outcome string) {
	LLMRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordLLMLimiterWait records time spent blocked on the RPM limiter.
func RecordLLMLimiterWait(d time.Duration) {
	LLMLimiterWaitDuration.Observe(d.Seconds())
}
