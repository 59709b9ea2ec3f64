// Package metrics records run and item counters on a private prometheus registry.
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stickerkit"

// Run kinds.
const (
	KindIngest  = "ingest"
	KindExport  = "export"
	KindProcess = "process"
)

// Run outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
	OutcomeEmpty    = "empty"
	OutcomeCanceled = "canceled"
)

type Metrics struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	items        *prometheus.CounterVec
	itemDuration *prometheus.HistogramVec
	active       prometheus.Gauge
	archiveBytes prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Batch runs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Items processed by phase and resulting status.",
		}, []string{"phase", "status"}),
		itemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "item_duration_seconds",
			Help:      "Time spent on a single item.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"phase"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Runs currently in progress.",
		}),
		archiveBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_bytes",
			Help:      "Size of produced archives.",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 4, 8),
		}),
	}
	m.registry.MustRegister(m.runs, m.items, m.itemDuration, m.active, m.archiveBytes)
	return m
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RunStarted marks one more run in progress. Every call is paired with a
// RunFinished.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

func (m *Metrics) RunFinished(kind, outcome string) {
	if m == nil {
		return
	}
	m.active.Dec()
	m.runs.WithLabelValues(kind, outcome).Inc()
}

// RunSkipped counts a run that ended before it started any work.
func (m *Metrics) RunSkipped(kind, outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(kind, outcome).Inc()
}

// RunRejected counts a begin request refused because another run was active.
func (m *Metrics) RunRejected(kind string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(kind, OutcomeRejected).Inc()
}

func (m *Metrics) ItemDone(phase, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(phase, status).Inc()
	m.itemDuration.WithLabelValues(phase).Observe(elapsed.Seconds())
}

func (m *Metrics) ArchiveWritten(size int) {
	if m == nil {
		return
	}
	m.archiveBytes.Observe(float64(size))
}

// WriteTextfile dumps all metrics in the text exposition format, for the node
// exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
