package domain

import (
	"fmt"
	"math"
	"sort"
)

// Classification describes how a metric moved between the baseline run
// and the current run, relative to the comparator's threshold.
type Classification string

// Possible classifications for a compared metric.
const (
	// Improved indicates movement in the metric's better direction
	// beyond the threshold.
	Improved Classification = "improved"

	// Neutral indicates movement within the threshold band, or an
	// informational entry that cannot be classified.
	Neutral Classification = "neutral"

	// Degraded indicates movement in the metric's worse direction
	// beyond the threshold.
	Degraded Classification = "degraded"
)

// Indicator returns the report marker for this classification.
func (c Classification) Indicator() string {
	switch c {
	case Improved:
		return "🟢"
	case Degraded:
		return "🔴"
	default:
		return "🟡"
	}
}

// MetricDelta is the comparison outcome for a single metric name drawn
// from the union of the current and baseline snapshots. Pointer fields
// are nil when the corresponding side did not report the metric; such
// entries are informational and never gate.
type MetricDelta struct {
	// Name is the metric identifier.
	Name string `json:"name"`

	// Kind is the declared kind, or empty for undeclared metrics.
	Kind MetricKind `json:"kind,omitempty"`

	// Current is the value from the current run, nil when absent.
	Current *float64 `json:"current,omitempty"`

	// Baseline is the value from the baseline run, nil when absent.
	Baseline *float64 `json:"baseline,omitempty"`

	// Diff is current minus baseline, nil unless both sides are present.
	Diff *float64 `json:"diff,omitempty"`

	// DiffPct is the percentage change relative to the baseline, nil
	// unless both sides are present. A zero baseline with a nonzero diff
	// yields a signed infinity sentinel rather than an error.
	DiffPct *float64 `json:"diff_pct,omitempty"`

	// Classification is the threshold verdict for this metric.
	Classification Classification `json:"classification"`

	// Informational marks entries that are reported but excluded from
	// gate evaluation: one-sided metrics and undeclared metrics.
	Informational bool `json:"informational"`
}

// Unbounded reports whether the percentage change is the signed-infinity
// sentinel produced by a zero baseline.
func (d MetricDelta) Unbounded() bool {
	return d.DiffPct != nil && math.IsInf(*d.DiffPct, 0)
}

// Comparator computes per-metric deltas between two snapshots and
// classifies each movement against a percentage threshold.
//
// Comparators are stateless values; a single Comparator may be used
// concurrently from multiple goroutines, and comparing the same inputs
// always yields an identical, deterministically ordered result list.
type Comparator struct {
	thresholdPct float64
}

// DefaultThresholdPct is the documented default gate threshold.
const DefaultThresholdPct = 5.0

// NewComparator creates a Comparator with the given percentage threshold.
// The threshold must be a finite value in (0, 100].
func NewComparator(thresholdPct float64) (Comparator, error) {
	if math.IsNaN(thresholdPct) || math.IsInf(thresholdPct, 0) || thresholdPct <= 0 || thresholdPct > 100 {
		return Comparator{}, fmt.Errorf("%w: %v (must be in (0, 100])", ErrInvalidThreshold, thresholdPct)
	}
	return Comparator{thresholdPct: thresholdPct}, nil
}

// ThresholdPct returns the configured percentage threshold.
func (c Comparator) ThresholdPct() float64 { return c.thresholdPct }

// Compare produces one MetricDelta for every metric name in the union of
// the two snapshots, ordered lexicographically by name.
//
// Metrics present on both sides receive diff, percentage change, and a
// classification; metrics present on only one side are emitted as
// informational entries so they are reported rather than silently
// dropped. Metrics not declared in the registry are likewise
// informational. A zero baseline never raises a division error: a zero
// diff classifies neutral, and a nonzero diff is reported as a
// signed-infinity sentinel.
func (c Comparator) Compare(current, baseline MetricSnapshot, registry *MetricRegistry) []MetricDelta {
	union := make(map[string]struct{}, current.Len()+baseline.Len())
	for _, name := range current.Names() {
		union[name] = struct{}{}
	}
	for _, name := range baseline.Names() {
		union[name] = struct{}{}
	}

	names := make([]string, 0, len(union))
	for name := range union {
		names = append(names, name)
	}
	sort.Strings(names)

	deltas := make([]MetricDelta, 0, len(names))
	for _, name := range names {
		deltas = append(deltas, c.compareOne(name, current, baseline, registry))
	}
	return deltas
}

func (c Comparator) compareOne(name string, current, baseline MetricSnapshot, registry *MetricRegistry) MetricDelta {
	delta := MetricDelta{Name: name, Classification: Neutral}

	kind, declared := registry.KindOf(name)
	if declared {
		delta.Kind = kind
	}

	cur, hasCur := current.Value(name)
	base, hasBase := baseline.Value(name)
	if hasCur {
		delta.Current = &cur
	}
	if hasBase {
		delta.Baseline = &base
	}

	// One-sided or undeclared metrics are reported but never classified
	// or gated.
	if !hasCur || !hasBase || !declared {
		delta.Informational = true
		return delta
	}

	diff := cur - base
	delta.Diff = &diff

	var pct float64
	switch {
	case base != 0:
		pct = diff / base * 100
	case diff == 0:
		pct = 0
	default:
		// Zero baseline, nonzero diff: unbounded change, reported as a
		// signed sentinel instead of raising a division error.
		pct = math.Inf(sign(diff))
	}
	delta.DiffPct = &pct

	delta.Classification = classify(kind, pct, c.thresholdPct)
	return delta
}

// classify applies the threshold rule with the kind's sign convention:
// higher is better for quality, lower is better for safety. Performance
// metrics receive the same lower-is-better treatment purely for display;
// the gate ignores them regardless.
func classify(kind MetricKind, diffPct, thresholdPct float64) Classification {
	better, worse := diffPct > thresholdPct, diffPct < -thresholdPct
	if kind.LowerIsBetter() {
		better, worse = worse, better
	}

	switch {
	case better:
		return Improved
	case worse:
		return Degraded
	default:
		return Neutral
	}
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}
