// Package metrics registers the Prometheus metrics used by plugkit.
// Import this package (via blank import) from the host's entry point to
// register all metrics before its /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Discovery-level counters and histograms.
var (
	// ScansTotal counts finished discovery passes labelled by registry and
	// outcome ("completed", "failed").
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugkit_scans_total",
			Help: "Total number of discovery passes run.",
		},
		[]string{"registry", "outcome"},
	)

	// ScanDuration observes end-to-end discovery pass duration in seconds.
	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plugkit_scan_duration_seconds",
			Help:    "Discovery pass duration in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"registry"},
	)

	// CacheEvents counts disk cache outcomes per registry
	// ("hit", "miss", "stale", "corrupt", "write_error").
	CacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugkit_cache_events_total",
			Help: "Total discovery cache events by type.",
		},
		[]string{"registry", "event"},
	)

	// UnitsLoaded counts plugin units loaded, eagerly or lazily.
	UnitsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugkit_units_loaded_total",
			Help: "Total plugin units loaded.",
		},
		[]string{"registry"},
	)

	// UnitLoadFailures counts plugin units whose load failed and was recorded.
	UnitLoadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugkit_unit_load_failures_total",
			Help: "Total plugin unit load failures.",
		},
		[]string{"registry"},
	)

	// TypesRegistered counts type definitions accepted into a registry.
	TypesRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugkit_types_registered_total",
			Help: "Total plugin type definitions registered.",
		},
		[]string{"registry"},
	)

	// KeyConflicts counts duplicate-key registrations by applied policy
	// ("overwrite", "reject").
	KeyConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugkit_key_conflicts_total",
			Help: "Total duplicate-key registrations by policy.",
		},
		[]string{"registry", "policy"},
	)
)
