// Package metrics provides Prometheus metrics for conversions and the watch
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aocx"

// Conversion outcomes used as label values.
const (
	OutcomeConverted = "converted"
	OutcomeFailed    = "failed"
)

// Conversion metrics track every call to the convert pipeline.
var (
	// ConversionsTotal is the total number of conversions by source format,
	// target format and outcome.
	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversions_total",
		Help:      "Total number of file conversions",
	}, []string{"from", "to", "outcome"})

	// ConversionDuration is a histogram of successful conversion durations
	// by target format.
	ConversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "conversion_duration_seconds",
		Help:      "Duration of file conversions in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"to"})

	// ShapesTransferredTotal is the total number of root shapes written.
	ShapesTransferredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shapes_transferred_total",
		Help:      "Total number of root shapes written by conversions",
	}, []string{"to"})
)

// Watch metrics track the directory watch service.
var (
	// WatchEventsTotal is the total number of debounced changes by kind.
	WatchEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watch_events_total",
		Help:      "Total number of debounced file changes",
	}, []string{"kind"})

	// WatchSkippedTotal is the total number of files skipped as unchanged.
	WatchSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watch_skipped_total",
		Help:      "Total number of files skipped because the ledger shows them unchanged",
	})

	// WatchDirectories is the number of directories being watched.
	WatchDirectories = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "watch_directories",
		Help:      "Number of directories being watched",
	})
)

// BuildInfo carries the version of the running binary as labels.
var BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "build_info",
	Help:      "Version and Go runtime of the running binary",
}, []string{"version", "go_version"})
