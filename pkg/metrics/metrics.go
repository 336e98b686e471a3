// Package metrics exposes Prometheus counters for lineage ingestion and
// maintenance. A nil *LineageMetrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "devportal"
	subsystem = "lineage"
)

// LineageMetrics holds the tracker and ingestion counters.
type LineageMetrics struct {
	// EdgesUpserted counts upserts by outcome (created, updated).
	EdgesUpserted *prometheus.CounterVec
	// BytesObserved counts bytes folded into edges by direction.
	BytesObserved *prometheus.CounterVec
	// BatchFailures counts batch items that failed and were skipped.
	BatchFailures prometheus.Counter
	// EdgesDeactivated counts edges flipped inactive by the stale sweep.
	EdgesDeactivated prometheus.Counter
	// RollingResets counts edges whose 24h counters were zeroed.
	RollingResets prometheus.Counter
	// ObservationsDropped counts observations ingestion could not use, by reason.
	ObservationsDropped *prometheus.CounterVec
}

// NewLineageMetrics creates the counters and registers them with reg.
func NewLineageMetrics(reg prometheus.Registerer) *LineageMetrics {
	m := &LineageMetrics{
		EdgesUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "edges_upserted_total",
			Help: "Lineage edge upserts by outcome.",
		}, []string{"outcome"}),
		BytesObserved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "bytes_observed_total",
			Help: "Bytes accumulated into lineage edges by direction.",
		}, []string{"direction"}),
		BatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "batch_failures_total",
			Help: "Batch upsert items that failed and were skipped.",
		}),
		EdgesDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "edges_deactivated_total",
			Help: "Edges marked inactive by the stale-edge sweep.",
		}),
		RollingResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "rolling_resets_total",
			Help: "Edges whose rolling 24h counters were zeroed.",
		}),
		ObservationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "observations_dropped_total",
			Help: "Observations that could not be turned into edges, by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.EdgesUpserted, m.BytesObserved, m.BatchFailures, m.EdgesDeactivated, m.RollingResets, m.ObservationsDropped)
	}
	return m
}

func (m *LineageMetrics) Upserted(isNew bool, direction string, bytes int64) {
	if m == nil {
		return
	}
	outcome := "updated"
	if isNew {
		outcome = "created"
	}
	m.EdgesUpserted.WithLabelValues(outcome).Inc()
	m.BytesObserved.WithLabelValues(direction).Add(float64(bytes))
}

func (m *LineageMetrics) BatchFailed() {
	if m == nil {
		return
	}
	m.BatchFailures.Inc()
}

func (m *LineageMetrics) Deactivated(n int64) {
	if m == nil {
		return
	}
	m.EdgesDeactivated.Add(float64(n))
}

func (m *LineageMetrics) Reset(n int64) {
	if m == nil {
		return
	}
	m.RollingResets.Add(float64(n))
}

func (m *LineageMetrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.ObservationsDropped.WithLabelValues(reason).Inc()
}
