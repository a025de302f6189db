// Package metrics holds the Prometheus collectors of the service.
// Collectors are registered with the default registry through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "url_shortener"

var (
	// ShortenTotal counts successful shortens, labelled by whether a mapping was created.
	ShortenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shorten_total",
			Help:      "Total number of successful shorten operations",
		},
		[]string{"result"}, // created, existing
	)

	// ResolveTotal counts resolves by terminal outcome.
	ResolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Total number of resolve operations by outcome",
		},
		[]string{"outcome"}, // resolved, not_found, invalid
	)

	// HashCollisionsTotal counts shortens that found a stored mapping for a different URL.
	HashCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hash_collisions_total",
			Help:      "Total number of shortens whose hash was already taken by another URL",
		},
	)

	// StoreOperationDuration tracks store call latency.
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of store operations in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"}, // get, put_if_absent, increment_click_count
	)

	// StoreErrorsTotal counts store failures other than a missing mapping.
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Total number of failed store operations",
		},
		[]string{"operation"},
	)
)

// Recorder reports service-level events to the collectors above.
type Recorder struct{}

// NewRecorder returns a Recorder backed by the default registry.
func NewRecorder() Recorder {
	return Recorder{}
}

// RecordShorten increments the shorten counter.
func (Recorder) RecordShorten(created bool) {
	if created {
		ShortenTotal.WithLabelValues("created").Inc()
		return
	}
	ShortenTotal.WithLabelValues("existing").Inc()
}

// RecordResolve increments the resolve counter for outcome.
func (Recorder) RecordResolve(outcome string) {
	ResolveTotal.WithLabelValues(outcome).Inc()
}

// RecordHashCollision increments the collision counter.
func (Recorder) RecordHashCollision() {
	HashCollisionsTotal.Inc()
}
