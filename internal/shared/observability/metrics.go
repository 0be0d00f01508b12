package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "apisurface_resolve_seconds",
		Help:    "Time spent on one discovery plus classification pass.",
		Buckets: prometheus.DefBuckets,
	})

	ClassifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apisurface_classified_total",
		Help: "Total number of identifiers classified, by classification.",
	}, []string{"classification"})

	SurfaceSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "apisurface_surface_identifiers",
		Help: "Identifiers in the most recent pass, by classification.",
	}, []string{"classification"})

	DiscoveredFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apisurface_discovered_files_total",
		Help: "Total number of source files inspected by discovery, by language.",
	}, []string{"language"})

	ParseFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apisurface_parse_failures_total",
		Help: "Total number of source files discovery could not parse, by language.",
	}, []string{"language"})

	InvalidPatternsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apisurface_invalid_patterns_total",
		Help: "Total number of pattern sets rejected at construction.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apisurface_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RescansThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apisurface_rescans_throttled_total",
		Help: "Total number of watch-triggered passes delayed by the rescan limiter.",
	})

	SurfaceChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apisurface_surface_changes_total",
		Help: "Public identifiers added or removed relative to the previous snapshot.",
	}, []string{"change"})
)
