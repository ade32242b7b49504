// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AttemptsStarted counts successful StartAttempt calls.
	AttemptsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exams_attempts_started_total",
		Help: "Number of exam attempts started.",
	})

	// AttemptsCompleted counts completed attempts, labeled by outcome.
	AttemptsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exams_attempts_completed_total",
		Help: "Number of exam attempts completed.",
	}, []string{"outcome"})

	// UpstreamFailures counts bus round-trips that timed out or errored,
	// labeled by the upstream service.
	UpstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exams_upstream_failures_total",
		Help: "Number of failed request/reply calls to upstream services.",
	}, []string{"upstream"})

	// CacheMisses counts cache-aside misses by key family.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exams_cache_misses_total",
		Help: "Number of cache misses by key family.",
	}, []string{"family"})
)

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
