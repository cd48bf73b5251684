// Package metrics provides Prometheus metrics for mediaurl.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookupsTotal counts breakpoint cache lookups by backend and result.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediaurl",
			Name:      "breakpoint_cache_lookups_total",
			Help:      "Total number of breakpoint cache lookups",
		},
		[]string{"backend", "result"},
	)

	// CacheErrorsTotal counts failed cache operations.
	CacheErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediaurl",
			Name:      "breakpoint_cache_errors_total",
			Help:      "Total number of failed breakpoint cache operations",
		},
		[]string{"backend", "operation"},
	)

	// DiscoveryTotal counts breakpoint discovery calls by status.
	DiscoveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediaurl",
			Name:      "breakpoint_discovery_total",
			Help:      "Total number of breakpoint discovery calls",
		},
		[]string{"status"},
	)

	// BreakpointCount observes how many widths one computation produced.
	BreakpointCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mediaurl",
			Name:      "breakpoints_per_asset",
			Help:      "Distribution of breakpoint counts per computation",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 20, 50},
		},
	)

	// SignaturesTotal counts issued signatures and tokens by kind.
	SignaturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediaurl",
			Name:      "signatures_total",
			Help:      "Total number of signatures and tokens issued",
		},
		[]string{"kind"},
	)

	// CommandsTotal counts CLI invocations by command and exit code.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediaurl",
			Name:      "commands_total",
			Help:      "Total number of CLI command invocations",
		},
		[]string{"command", "exit_code"},
	)

	// CommandDuration observes CLI command latency in seconds.
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mediaurl",
			Name:      "command_duration_seconds",
			Help:      "CLI command duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)
)

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(backend, result).Inc()
}

// RecordCacheError records a failed cache get or set.
func RecordCacheError(backend, operation string) {
	CacheErrorsTotal.WithLabelValues(backend, operation).Inc()
}

// RecordDiscovery records a discovery call outcome.
func RecordDiscovery(status string) {
	DiscoveryTotal.WithLabelValues(status).Inc()
}

// RecordBreakpoints observes the size of a computed breakpoint set.
func RecordBreakpoints(count int) {
	BreakpointCount.Observe(float64(count))
}

// RecordSignature records an issued signature of the given kind
// (url, api, token, search, download).
func RecordSignature(kind string) {
	SignaturesTotal.WithLabelValues(kind).Inc()
}

// RecordCommand records one finished CLI command.
func RecordCommand(command string, exitCode int, elapsed time.Duration) {
	CommandsTotal.WithLabelValues(command, strconv.Itoa(exitCode)).Inc()
	CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// WriteTextfile writes the default registry in the text exposition format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
