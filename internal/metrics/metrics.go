// Package metrics provides Prometheus metrics for scans, OCR and metadata
// lookups.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// No session ids or queries in labels.

var (
	// ScansTotal counts finished scans by outcome (success, error, reset).
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popscan_scans_total",
		Help: "Total number of finished scans, by outcome.",
	}, []string{"outcome"})

	// ScanPhaseDuration observes how long each scan phase took.
	ScanPhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "popscan_scan_phase_duration_seconds",
		Help:    "Duration of scan phases in seconds, by phase.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"phase"})

	// ProviderLookupsTotal counts sub-provider lookups by provider and outcome.
	ProviderLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popscan_provider_lookups_total",
		Help: "Total number of metadata sub-provider lookups, by provider and outcome.",
	}, []string{"provider", "outcome"})

	// ProviderLookupDuration observes sub-provider latency.
	ProviderLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "popscan_provider_lookup_duration_seconds",
		Help:    "Duration of metadata sub-provider lookups in seconds, by provider.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	// LookupCacheTotal counts lookup cache hits and misses.
	LookupCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popscan_lookup_cache_total",
		Help: "Total number of lookup cache reads, by result (hit, miss).",
	}, []string{"result"})

	// OCRScansTotal counts OCR invocations by provider and outcome.
	OCRScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popscan_ocr_scans_total",
		Help: "Total number of OCR scans, by provider and outcome.",
	}, []string{"provider", "outcome"})

	// HTTPRequestDuration observes API latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "popscan_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds, by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// ActiveSessions tracks scan sessions held by the server.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "popscan_active_sessions",
		Help: "Current number of scan sessions held in memory.",
	})
)

const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeReset    = "reset"
	OutcomeEmpty    = "empty"
	OutcomeFallback = "fallback"
)

// RecordScan increments the finished scan counter.
func RecordScan(outcome string) {
	ScansTotal.WithLabelValues(outcome).Inc()
}

// ObservePhase records the duration of a completed phase.
func ObservePhase(phase string, d time.Duration) {
	ScanPhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordLookup records one sub-provider call.
func RecordLookup(provider, outcome string, d time.Duration) {
	ProviderLookupsTotal.WithLabelValues(provider, outcome).Inc()
	ProviderLookupDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func RecordCache(hit bool) {
	if hit {
		LookupCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	LookupCacheTotal.WithLabelValues("miss").Inc()
}

func RecordOCR(provider, outcome string) {
	OCRScansTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveHTTP records one served request. route must be a route pattern, not
// a raw path.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
