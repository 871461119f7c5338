package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEvaluateGate verifies the pass/fail reduction over classified
// deltas: only degraded quality or safety metrics fail the gate.
func TestEvaluateGate(t *testing.T) {
	registry := DefaultRegistry()
	comparator, err := NewComparator(DefaultThresholdPct)
	require.NoError(t, err)

	tests := []struct {
		name            string
		current         map[string]float64
		baseline        map[string]float64
		expectedPassed  bool
		expectedFailed  []string
		expectedFirstRn bool
	}{
		{
			name: "identical snapshots pass",
			current: map[string]float64{
				"relevance": 4.5,
				"coherence": 4.2,
			},
			baseline: map[string]float64{
				"relevance": 4.5,
				"coherence": 4.2,
			},
			expectedPassed: true,
		},
		{
			name:           "degraded quality metric fails the gate",
			current:        map[string]float64{"fluency": 4.650},
			baseline:       map[string]float64{"fluency": 4.900},
			expectedPassed: false,
			expectedFailed: []string{"fluency"},
		},
		{
			name:           "degraded safety metric fails the gate",
			current:        map[string]float64{"self_harm_defect_rate": 0.3},
			baseline:       map[string]float64{"self_harm_defect_rate": 0.1},
			expectedPassed: false,
			expectedFailed: []string{"self_harm_defect_rate"},
		},
		{
			name: "performance regression alone never fails the gate",
			current: map[string]float64{
				"relevance":           4.5,
				"avg_response_time_s": 10.0, // 400% regression
			},
			baseline: map[string]float64{
				"relevance":           4.5,
				"avg_response_time_s": 2.0,
			},
			expectedPassed: true,
		},
		{
			name:           "improvement passes",
			current:        map[string]float64{"hate_unfairness_defect_rate": 0},
			baseline:       map[string]float64{"hate_unfairness_defect_rate": 1},
			expectedPassed: true,
		},
		{
			name: "multiple degradations are all reported sorted",
			current: map[string]float64{
				"fluency":   4.0,
				"coherence": 3.5,
			},
			baseline: map[string]float64{
				"fluency":   4.9,
				"coherence": 4.9,
			},
			expectedPassed: false,
			expectedFailed: []string{"coherence", "fluency"},
		},
		{
			name:            "empty baseline is a passing first run",
			current:         map[string]float64{"relevance": 4.5},
			baseline:        map[string]float64{},
			expectedPassed:  true,
			expectedFirstRn: true,
		},
		{
			name:            "fully disjoint metric sets pass as first run",
			current:         map[string]float64{"relevance": 4.5},
			baseline:        map[string]float64{"coherence": 4.0},
			expectedPassed:  true,
			expectedFirstRn: true,
		},
		{
			name:            "empty snapshots degrade to a passing empty verdict",
			current:         map[string]float64{},
			baseline:        map[string]float64{},
			expectedPassed:  true,
			expectedFirstRn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := mustSnapshot(t, tt.current)
			baseline := mustSnapshot(t, tt.baseline)

			deltas := comparator.Compare(current, baseline, registry)
			now := time.Now()
			verdict := EvaluateGate(deltas, now)

			assert.Equal(t, tt.expectedPassed, verdict.Passed)
			assert.Equal(t, tt.expectedFailed, verdict.FailedMetrics)
			assert.Equal(t, tt.expectedFirstRn, verdict.FirstRun)
			assert.Equal(t, now, verdict.EvaluatedAt)
		})
	}
}

// TestEvaluateGate_InformationalEntriesNeverGate verifies that one-sided
// metrics cannot fail the gate even when their kind would normally gate.
func TestEvaluateGate_InformationalEntriesNeverGate(t *testing.T) {
	registry := DefaultRegistry()
	comparator, err := NewComparator(DefaultThresholdPct)
	require.NoError(t, err)

	// A brand-new safety metric appears in the current run only.
	current := mustSnapshot(t, map[string]float64{
		"relevance":            4.5,
		"violence_defect_rate": 0.9,
	})
	baseline := mustSnapshot(t, map[string]float64{"relevance": 4.5})

	deltas := comparator.Compare(current, baseline, registry)
	verdict := EvaluateGate(deltas, time.Now())

	assert.True(t, verdict.Passed)
	assert.Empty(t, verdict.FailedMetrics)
	assert.False(t, verdict.FirstRun, "a shared metric means this is not a first run")
}
