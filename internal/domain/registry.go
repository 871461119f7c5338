// Package domain contains pure, dependency-free domain models and types
// for comparing agent evaluation snapshots and deciding quality gates.
package domain

import (
	"fmt"
	"sort"
)

// MetricKind classifies a metric by how its value should be interpreted
// when comparing two evaluation runs.
type MetricKind string

// Supported metric kinds.
const (
	// KindQuality covers bounded judge scores (e.g. 0-5 relevance,
	// 0-1 tool call accuracy) where higher values are better.
	KindQuality MetricKind = "quality"

	// KindPerformance covers unbounded operational measurements
	// (latency, token counts) where lower values are better. Performance
	// metrics are tracked and displayed but never gate a decision.
	KindPerformance MetricKind = "performance"

	// KindSafety covers defect counts and rates from content-safety and
	// red-team testing where lower values are better.
	KindSafety MetricKind = "safety"
)

// Valid reports whether the kind is one of the supported values.
func (k MetricKind) Valid() bool {
	switch k {
	case KindQuality, KindPerformance, KindSafety:
		return true
	}
	return false
}

// Gates reports whether metrics of this kind participate in the quality
// gate decision. Performance metrics are informational only.
func (k MetricKind) Gates() bool { return k == KindQuality || k == KindSafety }

// LowerIsBetter reports the improvement direction for this kind.
// Quality scores improve upward; safety defects and performance
// measurements improve downward.
func (k MetricKind) LowerIsBetter() bool { return k != KindQuality }

// MetricRegistry is an immutable mapping from declared metric names to
// their kind. Declaring metrics up front keeps the gate's
// direction-of-improvement logic statically checkable instead of relying
// on free-form string matching at comparison time.
type MetricRegistry struct {
	kinds map[string]MetricKind
}

// NewMetricRegistry creates a registry from the given name-to-kind
// mapping. It returns ErrEmptyRegistry when no metrics are declared and
// an error naming the offending entry when a kind is not supported.
func NewMetricRegistry(kinds map[string]MetricKind) (*MetricRegistry, error) {
	if len(kinds) == 0 {
		return nil, ErrEmptyRegistry
	}

	copied := make(map[string]MetricKind, len(kinds))
	for name, kind := range kinds {
		if name == "" {
			return nil, fmt.Errorf("%w: metric name cannot be empty", ErrInvalidRegistry)
		}
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: metric %q has unknown kind %q", ErrInvalidRegistry, name, kind)
		}
		copied[name] = kind
	}

	return &MetricRegistry{kinds: copied}, nil
}

// KindOf returns the declared kind for a metric name.
// The boolean is false for metrics that were never declared.
func (r *MetricRegistry) KindOf(name string) (MetricKind, bool) {
	kind, ok := r.kinds[name]
	return kind, ok
}

// Names returns all declared metric names in lexicographic order.
// The returned slice is safe to modify.
func (r *MetricRegistry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of declared metrics.
func (r *MetricRegistry) Len() int { return len(r.kinds) }

// DefaultRegistry returns the registry for the standard agent evaluation
// suite: AI-assisted quality dimensions, operational measurements,
// content-safety defect rates, and the red-team attack success rate.
func DefaultRegistry() *MetricRegistry {
	reg, err := NewMetricRegistry(map[string]MetricKind{
		"relevance":          KindQuality,
		"coherence":          KindQuality,
		"fluency":            KindQuality,
		"groundedness":       KindQuality,
		"similarity":         KindQuality,
		"intent_resolution":  KindQuality,
		"task_adherence":     KindQuality,
		"tool_call_accuracy": KindQuality,

		"avg_response_time_s": KindPerformance,
		"completion_tokens":   KindPerformance,
		"prompt_tokens":       KindPerformance,

		"violence_defect_rate":        KindSafety,
		"sexual_defect_rate":          KindSafety,
		"self_harm_defect_rate":       KindSafety,
		"hate_unfairness_defect_rate": KindSafety,
		"attack_success_rate":         KindSafety,
	})
	if err != nil {
		// The default table is static; a failure here is a programming error.
		panic(err)
	}
	return reg
}
