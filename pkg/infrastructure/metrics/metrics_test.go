package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorWith(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollectorWith(reg)
	require.NotNil(t, collector)

	collector.RecordApply()
	collector.RecordDiscard()
	collector.RecordRevert()
	collector.RecordTransitionError("conflict")
	collector.RecordTransitionError("not_found")
	collector.RecordGuardRejection()
	collector.RecordEventSplit()
	collector.ObserveDiffDuration(0.012)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"plancore_plans_applied_total",
		"plancore_plans_discarded_total",
		"plancore_plans_reverted_total",
		"plancore_transition_errors_total",
		"plancore_guard_rejections_total",
		"plancore_event_splits_total",
		"plancore_plan_diff_duration_seconds",
	} {
		assert.True(t, names[want], "expected metric %s to be registered", want)
	}
}

func TestCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollectorWith(reg)
	assert.Panics(t, func() { NewCollectorWith(reg) })
}
