// Package telemetry exposes prometheus metrics for the SDK's three hot
// paths: decisions, datafile polling, and event dispatch. Carried as
// ambient stack (spec.md's Non-goals do not exclude observability) — a
// production SDK still needs basic counters, the same way the teacher
// instruments its own HTTP surface.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DecisionsTotal counts every Decide call, labeled by flag key and
	// whether a variation was resolved ("hit") or the off sentinel was
	// returned ("off").
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagship_decisions_total",
			Help: "Total number of decide() calls, by flag key and outcome",
		},
		[]string{"flag_key", "outcome"},
	)

	// BucketingCallsTotal counts every bucketing.Bucket invocation, labeled
	// by whether the user landed in an allocated range.
	BucketingCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagship_bucketing_calls_total",
			Help: "Total number of bucketing calls, by allocation outcome",
		},
		[]string{"allocated"},
	)

	// EventBatchesTotal counts every flush the event dispatcher performs.
	EventBatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flagship_event_batches_total",
		Help: "Total number of event batches flushed to the Event API",
	})

	// EventBatchSize observes how many visitors were in each flushed batch.
	EventBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flagship_event_batch_size",
		Help:    "Number of visitors per flushed event batch",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})

	// ConfigPollTotal counts every datafile poll attempt, labeled by
	// outcome: "success", "fetch_error", or "parse_error".
	ConfigPollTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagship_config_poll_total",
			Help: "Total number of datafile poll attempts, by outcome",
		},
		[]string{"outcome"},
	)
)

// Init registers every collector with the default prometheus registry.
// Call once at process startup before serving /metrics.
func Init() {
	prometheus.MustRegister(
		DecisionsTotal,
		BucketingCallsTotal,
		EventBatchesTotal,
		EventBatchSize,
		ConfigPollTotal,
	)
}

// Handler returns the HTTP handler that serves the registered collectors
// in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
