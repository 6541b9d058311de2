// Package metrics holds the Prometheus collectors shared across the
// judging pipeline: per-verdict counters, phase durations, the admission
// gauge/throttle counter C5 requires, and the request-rate guard's own
// rejection counter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal counts completed judgments by language and terminal
	// verdict status.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgecore_executions_total",
			Help: "Total number of judged submissions",
		},
		[]string{"language", "status"},
	)

	// PhaseDuration records how long the build and run phases take, in
	// milliseconds, by language.
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judgecore_phase_duration_ms",
			Help:    "Duration of a pipeline phase in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000},
		},
		[]string{"language", "phase"}, // phase: "build", "run"
	)

	// InFlight is the Admission Controller's required gauge: the current
	// number of Executions holding the sandbox driver.
	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "judgecore_in_flight",
			Help: "Current number of admitted, in-progress executions",
		},
	)

	// ThrottledTotal is the Admission Controller's required counter:
	// incremented on every rejection past the admission ceiling.
	ThrottledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judgecore_throttled_total",
			Help: "Total number of requests rejected for exceeding the admission ceiling",
		},
	)

	// RateLimitHits counts rejections from the per-client request-rate
	// guard, a distinct concern from the in-flight admission ceiling.
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judgecore_rate_limit_hits_total",
			Help: "Total number of requests rejected by the per-client rate limiter",
		},
	)

	// ContainerCreationDuration records how long sandbox container
	// creation takes, independent of compile/run time.
	ContainerCreationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "judgecore_container_creation_ms",
			Help:    "Time to create and start a sandbox container",
			Buckets: []float64{50, 100, 200, 500, 1000, 2000},
		},
	)
)
