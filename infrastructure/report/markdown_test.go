package report

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-gauge/internal/domain"
)

func f(v float64) *float64 { return &v }

// TestMarkdownRenderer_Render verifies the report body for a mixed
// comparison: headline, table rows, indicators, and the informational
// footnote.
func TestMarkdownRenderer_Render(t *testing.T) {
	renderer := NewMarkdownRenderer(5.0)

	deltas := []domain.MetricDelta{
		{
			Name: "fluency", Kind: domain.KindQuality,
			Current: f(4.650), Baseline: f(4.900),
			Diff: f(-0.250), DiffPct: f(-5.102),
			Classification: domain.Degraded,
		},
		{
			Name: "relevance", Kind: domain.KindQuality,
			Current: f(4.85), Baseline: f(4.75),
			Diff: f(0.10), DiffPct: f(2.105),
			Classification: domain.Neutral,
		},
		{
			Name: "hate_unfairness_defect_rate", Kind: domain.KindSafety,
			Current: f(0), Baseline: f(1),
			Diff: f(-1), DiffPct: f(-100),
			Classification: domain.Improved,
		},
		{
			Name: "completion_tokens", Kind: domain.KindPerformance,
			Current: f(870), Baseline: f(850),
			Diff: f(20), DiffPct: f(2.35),
			Classification: domain.Neutral,
		},
		{
			Name: "tool_call_accuracy", Kind: domain.KindQuality,
			Current:        f(0.9),
			Classification: domain.Neutral,
			Informational:  true,
		},
	}
	verdict := domain.Verdict{
		Passed:        false,
		FailedMetrics: []string{"fluency"},
		EvaluatedAt:   time.Now(),
	}

	body, err := renderer.Render(deltas, verdict)
	require.NoError(t, err)

	assert.Contains(t, body, "## Agent Evaluation Report")
	assert.Contains(t, body, "**Gate: ❌ failed** (threshold ±5.0%) — degraded: fluency")

	// Table cells.
	assert.Contains(t, body, "| Metric ")
	assert.Contains(t, body, "fluency")
	assert.Contains(t, body, "4.650")
	assert.Contains(t, body, "4.900")
	assert.Contains(t, body, "-0.250")
	assert.Contains(t, body, "-5.1%")
	assert.Contains(t, body, "🔴")
	assert.Contains(t, body, "+2.1%")
	assert.Contains(t, body, "🟡")
	assert.Contains(t, body, "-100.0%")
	assert.Contains(t, body, "🟢")
	// Large values render without decimals.
	assert.Contains(t, body, "870")

	// Missing baseline renders as a dash and lands in the footnote.
	assert.Contains(t, body, "—")
	assert.Contains(t, body, "_Informational (not gated): tool_call_accuracy_")

	// Gating kinds come before performance rows.
	assert.Less(t, strings.Index(body, "fluency"), strings.Index(body, "completion_tokens"))
	assert.Less(t, strings.Index(body, "hate_unfairness_defect_rate"), strings.Index(body, "completion_tokens"))
}

// TestMarkdownRenderer_Render_Passed verifies the passing headline.
func TestMarkdownRenderer_Render_Passed(t *testing.T) {
	renderer := NewMarkdownRenderer(5.0)

	deltas := []domain.MetricDelta{{
		Name: "relevance", Kind: domain.KindQuality,
		Current: f(4.5), Baseline: f(4.5),
		Diff: f(0), DiffPct: f(0),
		Classification: domain.Neutral,
	}}
	body, err := renderer.Render(deltas, domain.Verdict{Passed: true})
	require.NoError(t, err)

	assert.Contains(t, body, "**Gate: ✅ passed** (threshold ±5.0%)")
	assert.NotContains(t, body, "Informational")
}

// TestMarkdownRenderer_Render_FirstRun verifies the first-run headline.
func TestMarkdownRenderer_Render_FirstRun(t *testing.T) {
	renderer := NewMarkdownRenderer(5.0)

	deltas := []domain.MetricDelta{{
		Name: "relevance", Kind: domain.KindQuality,
		Current:        f(4.5),
		Classification: domain.Neutral,
		Informational:  true,
	}}
	body, err := renderer.Render(deltas, domain.Verdict{Passed: true, FirstRun: true})
	require.NoError(t, err)

	assert.Contains(t, body, "first run, no baseline")
	assert.Contains(t, body, "promote this run")
}

// TestMarkdownRenderer_Render_Empty verifies the degenerate empty input.
func TestMarkdownRenderer_Render_Empty(t *testing.T) {
	renderer := NewMarkdownRenderer(5.0)

	body, err := renderer.Render(nil, domain.Verdict{Passed: true, FirstRun: true})
	require.NoError(t, err)
	assert.Contains(t, body, "_No metrics to compare._")
}

// TestMarkdownRenderer_ZeroBaselineSentinel verifies that the unbounded
// change sentinel renders as "n/a" instead of an infinity literal.
func TestMarkdownRenderer_ZeroBaselineSentinel(t *testing.T) {
	renderer := NewMarkdownRenderer(5.0)

	deltas := []domain.MetricDelta{{
		Name: "relevance", Kind: domain.KindQuality,
		Current: f(5), Baseline: f(0),
		Diff: f(5), DiffPct: f(math.Inf(1)),
		Classification: domain.Improved,
	}}
	body, err := renderer.Render(deltas, domain.Verdict{Passed: true})
	require.NoError(t, err)

	assert.Contains(t, body, "n/a")
	assert.NotContains(t, body, "Inf")
}

// TestMarkdownRenderer_Deterministic verifies identical output for
// identical input.
func TestMarkdownRenderer_Deterministic(t *testing.T) {
	renderer := NewMarkdownRenderer(5.0)

	deltas := []domain.MetricDelta{
		{Name: "b_metric", Kind: domain.KindQuality, Current: f(1), Baseline: f(1), Diff: f(0), DiffPct: f(0), Classification: domain.Neutral},
		{Name: "a_metric", Kind: domain.KindSafety, Current: f(0), Baseline: f(0), Diff: f(0), DiffPct: f(0), Classification: domain.Neutral},
	}
	verdict := domain.Verdict{Passed: true}

	first, err := renderer.Render(deltas, verdict)
	require.NoError(t, err)
	second, err := renderer.Render(deltas, verdict)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
