// Package metrics exposes Prometheus instrumentation for the campaign client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Snapshot source gauge values.
const (
	SourceValueNone = 0
	SourceValuePull = 1
	SourceValuePush = 2
)

// Metrics holds all Prometheus metrics for the campaign client.
type Metrics struct {
	// Pull channel
	PollsTotal        prometheus.Counter
	PollFailuresTotal prometheus.Counter

	// Push channel
	PushFramesTotal        *prometheus.CounterVec
	StreamDisconnectsTotal prometheus.Counter
	StreamConnectsTotal    prometheus.Counter

	// Dispatch
	DispatchesTotal *prometheus.CounterVec

	// Reconciled view
	SnapshotSource       prometheus.Gauge
	ActivityEntriesTotal prometheus.Counter

	// Ingestion
	IngestsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		PollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailflow_analytics_polls_total",
			Help: "Total number of completed hourly-report polls",
		}),
		PollFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailflow_analytics_poll_failures_total",
			Help: "Total number of failed hourly-report polls (skipped, state retained)",
		}),
		PushFramesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailflow_push_frames_total",
				Help: "Total number of push channel frames processed",
			},
			[]string{"type"},
		),
		StreamDisconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailflow_stream_disconnects_total",
			Help: "Total number of push channel disconnects",
		}),
		StreamConnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailflow_stream_connects_total",
			Help: "Total number of push channel connections established",
		}),
		DispatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailflow_dispatches_total",
				Help: "Total number of campaign dispatch attempts by outcome",
			},
			[]string{"outcome"},
		),
		SnapshotSource: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mailflow_snapshot_source",
			Help: "Channel that produced the displayed snapshot (0=none, 1=pull, 2=push)",
		}),
		ActivityEntriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailflow_activity_entries_total",
			Help: "Total number of activity entries received on the push channel",
		}),
		IngestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailflow_ingests_total",
				Help: "Total number of data source ingestions by kind",
			},
			[]string{"kind", "outcome"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.PollsTotal,
		m.PollFailuresTotal,
		m.PushFramesTotal,
		m.StreamDisconnectsTotal,
		m.StreamConnectsTotal,
		m.DispatchesTotal,
		m.SnapshotSource,
		m.ActivityEntriesTotal,
		m.IngestsTotal,
	)
	reg.MustRegister(collectors.NewGoCollector())

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the metrics in exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
