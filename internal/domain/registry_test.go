package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewMetricRegistry verifies registry construction and validation.
func TestNewMetricRegistry(t *testing.T) {
	t.Run("valid registry resolves kinds", func(t *testing.T) {
		reg, err := NewMetricRegistry(map[string]MetricKind{
			"relevance":       KindQuality,
			"latency_s":       KindPerformance,
			"violence_defect": KindSafety,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, reg.Len())

		kind, ok := reg.KindOf("relevance")
		require.True(t, ok)
		assert.Equal(t, KindQuality, kind)

		_, ok = reg.KindOf("unknown")
		assert.False(t, ok)

		assert.Equal(t, []string{"latency_s", "relevance", "violence_defect"}, reg.Names())
	})

	t.Run("rejects empty registry", func(t *testing.T) {
		_, err := NewMetricRegistry(nil)
		assert.ErrorIs(t, err, ErrEmptyRegistry)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := NewMetricRegistry(map[string]MetricKind{"foo": "speed"})
		assert.ErrorIs(t, err, ErrInvalidRegistry)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewMetricRegistry(map[string]MetricKind{"": KindQuality})
		assert.ErrorIs(t, err, ErrInvalidRegistry)
	})
}

// TestMetricKind verifies direction and gating semantics per kind.
func TestMetricKind(t *testing.T) {
	assert.True(t, KindQuality.Gates())
	assert.True(t, KindSafety.Gates())
	assert.False(t, KindPerformance.Gates())

	assert.False(t, KindQuality.LowerIsBetter())
	assert.True(t, KindSafety.LowerIsBetter())
	assert.True(t, KindPerformance.LowerIsBetter())

	assert.False(t, MetricKind("speed").Valid())
}

// TestDefaultRegistry spot-checks the standard evaluation suite table.
func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	quality := []string{
		"relevance", "coherence", "fluency", "groundedness", "similarity",
		"intent_resolution", "task_adherence", "tool_call_accuracy",
	}
	for _, name := range quality {
		kind, ok := reg.KindOf(name)
		require.True(t, ok, name)
		assert.Equal(t, KindQuality, kind, name)
	}

	for _, name := range []string{"avg_response_time_s", "completion_tokens", "prompt_tokens"} {
		kind, ok := reg.KindOf(name)
		require.True(t, ok, name)
		assert.Equal(t, KindPerformance, kind, name)
	}

	for _, name := range []string{
		"violence_defect_rate", "sexual_defect_rate",
		"self_harm_defect_rate", "hate_unfairness_defect_rate",
		"attack_success_rate",
	} {
		kind, ok := reg.KindOf(name)
		require.True(t, ok, name)
		assert.Equal(t, KindSafety, kind, name)
	}
}
