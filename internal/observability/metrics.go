// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "token_radar"

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Pipeline metrics
	CyclesTotal     *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
	TicksSkipped    prometheus.Counter
	LastCycleUnixMs prometheus.Gauge

	// Discovery metrics
	AdapterFetches  *prometheus.CounterVec
	AdapterDuration *prometheus.HistogramVec
	AdapterSkipped  *prometheus.CounterVec
	Candidates      *prometheus.CounterVec
	SeenSetSize     prometheus.Gauge

	// Enrichment metrics
	EnrichmentResults *prometheus.CounterVec
	ActivityErrors    prometheus.Counter
	RPCCallLatency    *prometheus.HistogramVec

	// Result metrics
	TokensAnalyzed *prometheus.CounterVec
	CacheSize      prometheus.Gauge
	CacheEvictions prometheus.Counter
}

// NewMetrics creates metrics registered on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		CyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "cycles_total",
			Help:      "Total number of discovery cycles by status",
		}, []string{"status"}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "cycle_duration_seconds",
			Help:      "Discovery cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		TicksSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "ticks_skipped_total",
			Help:      "Scheduler ticks skipped because a cycle was still running",
		}),
		LastCycleUnixMs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "last_cycle_timestamp_ms",
			Help:      "Unix timestamp (ms) of the last completed cycle",
		}),

		AdapterFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "adapter_fetches_total",
			Help:      "Source adapter fetches by adapter and status",
		}, []string{"adapter", "status"}),
		AdapterDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "adapter_fetch_duration_seconds",
			Help:      "Source adapter fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"adapter"}),
		AdapterSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "adapter_items_skipped_total",
			Help:      "Malformed provider items dropped by adapters",
		}, []string{"adapter", "reason"}),
		Candidates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_total",
			Help:      "Fetched candidates by outcome (accepted or reject reason)",
		}, []string{"outcome"}),
		SeenSetSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "seen_addresses",
			Help:      "Number of addresses in the seen-set",
		}),

		EnrichmentResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "lookups_total",
			Help:      "On-chain lookups by result (ok or fallback)",
		}, []string{"result"}),
		ActivityErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "activity_errors_total",
			Help:      "Activity lookups that failed and defaulted to zero",
		}),
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),

		TokensAnalyzed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "radar",
			Name:      "tokens_analyzed_total",
			Help:      "Tokens analyzed by safety status",
		}, []string{"safety_status"}),
		CacheSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "radar",
			Name:      "cache_entries",
			Help:      "Current number of cached analyzed tokens",
		}),
		CacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "radar",
			Name:      "cache_evictions_total",
			Help:      "Entries evicted from the result cache",
		}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordCycle records a finished cycle.
func (m *Metrics) RecordCycle(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(status(err)).Inc()
	m.CycleDuration.Observe(d.Seconds())
	m.LastCycleUnixMs.Set(float64(time.Now().UnixMilli()))
}

// RecordTickSkipped counts a scheduler tick dropped because a cycle was running.
func (m *Metrics) RecordTickSkipped() {
	if m == nil {
		return
	}
	m.TicksSkipped.Inc()
}

// RecordAdapterFetch records one adapter call.
func (m *Metrics) RecordAdapterFetch(adapter string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.AdapterFetches.WithLabelValues(adapter, status(err)).Inc()
	m.AdapterDuration.WithLabelValues(adapter).Observe(d.Seconds())
}

// RecordAdapterSkip counts an item an adapter dropped.
func (m *Metrics) RecordAdapterSkip(adapter, reason string) {
	if m == nil {
		return
	}
	m.AdapterSkipped.WithLabelValues(adapter, reason).Inc()
}

// RecordCandidates adds n candidates with the given outcome.
func (m *Metrics) RecordCandidates(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Candidates.WithLabelValues(outcome).Add(float64(n))
}

// RecordEnrichment records a lookup result.
func (m *Metrics) RecordEnrichment(fallback bool) {
	if m == nil {
		return
	}
	if fallback {
		m.EnrichmentResults.WithLabelValues("fallback").Inc()
		return
	}
	m.EnrichmentResults.WithLabelValues("ok").Inc()
}

// RecordActivityError counts an activity lookup failure.
func (m *Metrics) RecordActivityError() {
	if m == nil {
		return
	}
	m.ActivityErrors.Inc()
}

// RecordRPCLatency records RPC call latency. Its signature matches solana.ObserveFunc.
func (m *Metrics) RecordRPCLatency(method string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method, status(err)).Observe(d.Seconds())
}

// RecordAnalyzed counts an analyzed token.
func (m *Metrics) RecordAnalyzed(safetyStatus string) {
	if m == nil {
		return
	}
	m.TokensAnalyzed.WithLabelValues(safetyStatus).Inc()
}

// RecordEviction counts a cache eviction.
func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.CacheEvictions.Inc()
}

// UpdateSizes sets the cache and seen-set gauges.
func (m *Metrics) UpdateSizes(cacheLen, seenLen int) {
	if m == nil {
		return
	}
	m.CacheSize.Set(float64(cacheLen))
	m.SeenSetSize.Set(float64(seenLen))
}

// Handler returns an HTTP handler for the metrics endpoint.
// A nil gatherer uses prometheus.DefaultGatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
