// Package metrics provides Prometheus-compatible metrics for scan
// activity. Front ends that run long-lived (the LSP shim, CI wrappers)
// expose the handler; short-lived CLI runs can pass a nil collector
// everywhere, all record methods are nil-safe.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blocksecops/editor-sdk/pkg/shared/severity"
)

// Collector records scan metrics against a Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	scansTotal      *prometheus.CounterVec
	scanDuration    *prometheus.HistogramVec
	findingsTotal   *prometheus.CounterVec
	droppedTotal    *prometheus.CounterVec
	parseFailures   prometheus.Counter
	staleDiscarded  prometheus.Counter
}

// Config configures the Collector.
type Config struct {
	// Namespace prefixes all metric names (default "blocksecops").
	Namespace string

	// Registry is the Prometheus registry to use (nil = new registry
	// with standard Go collectors).
	Registry *prometheus.Registry
}

// New creates a Collector and registers its metrics.
func New(cfg *Config) *Collector {
	if cfg == nil {
		cfg = &Config{}
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "blocksecops"
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	c := &Collector{
		registry: registry,
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "scanner",
			Name:      "scans_total",
			Help:      "Total scans run, by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		scanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Scan duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"trigger"}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "normalizer",
			Name:      "findings_total",
			Help:      "Canonical findings emitted, by severity.",
		}, []string{"severity"}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "normalizer",
			Name:      "findings_dropped_total",
			Help:      "Findings dropped during normalization, by reason.",
		}, []string{"reason"}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "normalizer",
			Name:      "parse_failures_total",
			Help:      "SARIF reports that failed to parse.",
		}),
		staleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "session",
			Name:      "stale_results_discarded_total",
			Help:      "Completed scans discarded because a newer scan superseded them.",
		}),
	}

	registry.MustRegister(
		c.scansTotal,
		c.scanDuration,
		c.findingsTotal,
		c.droppedTotal,
		c.parseFailures,
		c.staleDiscarded,
	)
	return c
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordScan records one scan invocation.
func (c *Collector) RecordScan(trigger, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.scansTotal.WithLabelValues(trigger, outcome).Inc()
	c.scanDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// RecordFindings records emitted findings by severity.
func (c *Collector) RecordFindings(counts severity.Counts) {
	if c == nil {
		return
	}
	c.findingsTotal.WithLabelValues(severity.Error.String()).Add(float64(counts.Error))
	c.findingsTotal.WithLabelValues(severity.Warning.String()).Add(float64(counts.Warning))
	c.findingsTotal.WithLabelValues(severity.Information.String()).Add(float64(counts.Information))
	c.findingsTotal.WithLabelValues(severity.Hint.String()).Add(float64(counts.Hint))
}

// RecordDropped records findings dropped during normalization.
func (c *Collector) RecordDropped(reason string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.droppedTotal.WithLabelValues(reason).Add(float64(n))
}

// RecordParseFailure records a malformed SARIF report.
func (c *Collector) RecordParseFailure() {
	if c == nil {
		return
	}
	c.parseFailures.Inc()
}

// RecordStaleDiscard records a completed scan discarded as stale.
func (c *Collector) RecordStaleDiscard() {
	if c == nil {
		return
	}
	c.staleDiscarded.Inc()
}

// Drop reasons used with RecordDropped.
const (
	DropReasonNoLocation = "no_location"
	DropReasonNoArtifact = "no_artifact"
	DropReasonFiltered   = "file_filter"
)
