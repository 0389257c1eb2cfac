// Package metrics exposes Prometheus instrumentation for the plan lifecycle
// and allocation guard. Counters cover the rate of transitions and of
// rejected inputs; the diff histogram tracks comparison latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector bundles the plancore metric instruments.
type Collector struct {
	plansApplied     prometheus.Counter
	plansDiscarded   prometheus.Counter
	plansReverted    prometheus.Counter
	transitionErrors *prometheus.CounterVec
	guardRejections  prometheus.Counter
	eventSplits      prometheus.Counter
	diffDuration     prometheus.Histogram
}

// NewCollector registers the plancore instruments with the default registerer.
func NewCollector() *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer)
}

// NewCollectorWith registers the instruments with the given registerer.
func NewCollectorWith(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		plansApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "plancore_plans_applied_total",
			Help: "Number of proposed plans promoted to active",
		}),
		plansDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "plancore_plans_discarded_total",
			Help: "Number of proposed plans discarded",
		}),
		plansReverted: factory.NewCounter(prometheus.CounterOpts{
			Name: "plancore_plans_reverted_total",
			Help: "Number of archived plans promoted back to active",
		}),
		transitionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plancore_transition_errors_total",
			Help: "Failed lifecycle transitions by kind (conflict, not_found, transport, validation)",
		}, []string{"kind"}),
		guardRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "plancore_guard_rejections_total",
			Help: "Allocation requests rejected for exceeding the remaining quantity",
		}),
		eventSplits: factory.NewCounter(prometheus.CounterOpts{
			Name: "plancore_event_splits_total",
			Help: "Schedule events split into parts",
		}),
		diffDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "plancore_plan_diff_duration_seconds",
			Help:    "Latency of plan event diff computation",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordApply counts a successful apply transition.
func (c *Collector) RecordApply() {
	c.plansApplied.Inc()
}

// RecordDiscard counts a successful discard transition.
func (c *Collector) RecordDiscard() {
	c.plansDiscarded.Inc()
}

// RecordRevert counts a successful revert transition.
func (c *Collector) RecordRevert() {
	c.plansReverted.Inc()
}

// RecordTransitionError counts a failed transition by error kind.
func (c *Collector) RecordTransitionError(kind string) {
	c.transitionErrors.WithLabelValues(kind).Inc()
}

// RecordGuardRejection counts an allocation rejected by the guard.
func (c *Collector) RecordGuardRejection() {
	c.guardRejections.Inc()
}

// RecordEventSplit counts a persisted event split.
func (c *Collector) RecordEventSplit() {
	c.eventSplits.Inc()
}

// ObserveDiffDuration records one diff computation's latency in seconds.
func (c *Collector) ObserveDiffDuration(seconds float64) {
	c.diffDuration.Observe(seconds)
}
