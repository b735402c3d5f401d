// Package observability exposes Prometheus collectors and the tracer used
// around turn handling. Collectors are constructed explicitly against a
// caller-supplied registry; there is no package-level mutable state.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics reports session-engine activity.
type Metrics struct {
	turnsTotal        *prometheus.CounterVec
	turnDuration      prometheus.Histogram
	guardrailBlocks   prometheus.Counter
	combinerDecisions *prometheus.CounterVec
	deliveryFailures  prometheus.Counter
	versionConflicts  prometheus.Counter
}

// MustNewMetrics constructs and registers all collectors with reg. A nil
// reg falls back to the default registerer. Registration errors panic,
// mirroring promauto semantics, so duplicate registration surfaces early.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "engine",
			Name:      "turns_total",
			Help:      "Turns handled, by routed intent and resulting mode.",
		}, []string{"intent", "mode"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "herald",
			Subsystem: "engine",
			Name:      "turn_duration_seconds",
			Help:      "Wall time spent handling one turn.",
			Buckets:   prometheus.DefBuckets,
		}),
		guardrailBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "engine",
			Name:      "guardrail_blocks_total",
			Help:      "State-changing intents suppressed while a draft was active.",
		}),
		combinerDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "engine",
			Name:      "combiner_decisions_total",
			Help:      "Combiner decisions, by kind.",
		}, []string{"kind"}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "transport",
			Name:      "delivery_failures_total",
			Help:      "Outbound sends that failed.",
		}),
		versionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "herald",
			Subsystem: "session",
			Name:      "version_conflicts_total",
			Help:      "Compare-and-swap conflicts on session upsert.",
		}),
	}
	reg.MustRegister(
		m.turnsTotal,
		m.turnDuration,
		m.guardrailBlocks,
		m.combinerDecisions,
		m.deliveryFailures,
		m.versionConflicts,
	)
	return m
}

// ObserveTurn records one completed turn.
func (m *Metrics) ObserveTurn(intent, mode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, mode).Inc()
	m.turnDuration.Observe(elapsed.Seconds())
}

// GuardrailBlock counts a suppressed transition.
func (m *Metrics) GuardrailBlock() {
	if m == nil {
		return
	}
	m.guardrailBlocks.Inc()
}

// CombinerDecision counts one decision by kind.
func (m *Metrics) CombinerDecision(kind string) {
	if m == nil {
		return
	}
	m.combinerDecisions.WithLabelValues(kind).Inc()
}

// DeliveryFailure counts one failed outbound send.
func (m *Metrics) DeliveryFailure() {
	if m == nil {
		return
	}
	m.deliveryFailures.Inc()
}

// VersionConflict counts one CAS conflict.
func (m *Metrics) VersionConflict() {
	if m == nil {
		return
	}
	m.versionConflicts.Inc()
}
