package domain

import (
	"sort"
	"time"
)

// Verdict is the final outcome of a quality-gate evaluation.
// It is exposed as data rather than a process exit decision so callers
// can choose their own policy (blocking gate, advisory comment, or both).
type Verdict struct {
	// Passed is false iff at least one gating metric degraded.
	Passed bool `json:"passed"`

	// FailedMetrics lists the names of degraded gating metrics in
	// lexicographic order. Empty when the gate passed.
	FailedMetrics []string `json:"failed_metrics,omitempty"`

	// FirstRun is true when no metric was present on both sides, which
	// happens when the baseline has not been established yet. First runs
	// pass trivially and the whole result set is informational.
	FirstRun bool `json:"first_run"`

	// EvaluatedAt records when the gate decision was made.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// EvaluateGate reduces a comparison result list to a single pass/fail
// verdict. The gate fails if and only if at least one quality or safety
// metric is classified Degraded; performance metrics and informational
// entries never affect the outcome.
//
// EvaluateGate is a pure, total function over its inputs: it performs no
// I/O, holds no state, and is safe for concurrent use.
func EvaluateGate(deltas []MetricDelta, now time.Time) Verdict {
	verdict := Verdict{Passed: true, FirstRun: true, EvaluatedAt: now}

	for _, delta := range deltas {
		if delta.Informational {
			continue
		}
		verdict.FirstRun = false

		if !delta.Kind.Gates() {
			continue
		}
		if delta.Classification == Degraded {
			verdict.FailedMetrics = append(verdict.FailedMetrics, delta.Name)
		}
	}

	if len(verdict.FailedMetrics) > 0 {
		verdict.Passed = false
		sort.Strings(verdict.FailedMetrics)
	}
	return verdict
}
