package domain

import (
	"fmt"
	"maps"
	"math"
	"sort"
	"time"
)

// MetricSnapshot is an immutable set of named metric values produced by a
// single evaluation run. A snapshot is created once per run (baseline run
// or PR run) and never mutated afterwards; the baseline snapshot persists
// across runs until explicitly replaced by an external promotion step.
//
// The value map is unexported and accessors return copies, so snapshots
// can be shared freely across goroutines.
type MetricSnapshot struct {
	values    map[string]float64
	takenAt   time.Time
	commitSHA string
}

// NewMetricSnapshot creates a snapshot from raw metric values.
// Every value must be a finite float64; a NaN or infinite value returns
// a SnapshotError and no snapshot, since such input would corrupt every
// downstream comparison.
func NewMetricSnapshot(values map[string]float64, takenAt time.Time, commitSHA string) (MetricSnapshot, error) {
	copied := make(map[string]float64, len(values))
	for name, value := range values {
		if name == "" {
			return MetricSnapshot{}, fmt.Errorf("%w: metric name cannot be empty", ErrInvalidSnapshot)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return MetricSnapshot{}, NewSnapshotError(name, value)
		}
		copied[name] = value
	}

	return MetricSnapshot{
		values:    copied,
		takenAt:   takenAt,
		commitSHA: commitSHA,
	}, nil
}

// EmptySnapshot returns a snapshot with no metrics. It represents the
// "no baseline yet" state used for first-run evaluations.
func EmptySnapshot() MetricSnapshot {
	return MetricSnapshot{values: map[string]float64{}}
}

// Value returns the value recorded for a metric name.
// The boolean is false when the metric is not present in this snapshot.
func (s MetricSnapshot) Value(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Names returns the metric names present in this snapshot in
// lexicographic order. The returned slice is safe to modify.
func (s MetricSnapshot) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of the underlying name-to-value mapping.
func (s MetricSnapshot) Values() map[string]float64 {
	return maps.Clone(s.values)
}

// Len returns the number of metrics in the snapshot.
func (s MetricSnapshot) Len() int { return len(s.values) }

// IsEmpty reports whether the snapshot carries no metrics at all.
func (s MetricSnapshot) IsEmpty() bool { return len(s.values) == 0 }

// TakenAt returns when the evaluation run producing this snapshot finished.
func (s MetricSnapshot) TakenAt() time.Time { return s.takenAt }

// CommitSHA returns the VCS revision the evaluated agent was built from,
// or an empty string when the run was not tied to a revision.
func (s MetricSnapshot) CommitSHA() string { return s.commitSHA }

// String returns a compact representation for debugging.
func (s MetricSnapshot) String() string {
	return fmt.Sprintf("MetricSnapshot{metrics=%d, commit=%s}", len(s.values), s.commitSHA)
}
