package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewMetricSnapshot verifies construction, validation of non-finite
// values, and accessor behavior.
func TestNewMetricSnapshot(t *testing.T) {
	takenAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid snapshot round-trips values", func(t *testing.T) {
		snap, err := NewMetricSnapshot(map[string]float64{
			"relevance": 4.75,
			"coherence": 4.2,
		}, takenAt, "abc123")
		require.NoError(t, err)

		assert.Equal(t, 2, snap.Len())
		assert.False(t, snap.IsEmpty())
		assert.Equal(t, takenAt, snap.TakenAt())
		assert.Equal(t, "abc123", snap.CommitSHA())
		assert.Equal(t, []string{"coherence", "relevance"}, snap.Names())

		v, ok := snap.Value("relevance")
		require.True(t, ok)
		assert.InDelta(t, 4.75, v, 1e-9)

		_, ok = snap.Value("missing")
		assert.False(t, ok)
	})

	t.Run("rejects NaN values", func(t *testing.T) {
		_, err := NewMetricSnapshot(map[string]float64{"relevance": math.NaN()}, takenAt, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)

		var snapErr *SnapshotError
		require.ErrorAs(t, err, &snapErr)
		assert.Equal(t, "relevance", snapErr.Metric)
	})

	t.Run("rejects infinite values", func(t *testing.T) {
		_, err := NewMetricSnapshot(map[string]float64{"relevance": math.Inf(-1)}, takenAt, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
	})

	t.Run("rejects empty metric names", func(t *testing.T) {
		_, err := NewMetricSnapshot(map[string]float64{"": 1}, takenAt, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
	})
}

// TestMetricSnapshot_Immutability verifies that neither the input map nor
// the maps returned by accessors can mutate the snapshot.
func TestMetricSnapshot_Immutability(t *testing.T) {
	input := map[string]float64{"relevance": 4.5}
	snap, err := NewMetricSnapshot(input, time.Now(), "")
	require.NoError(t, err)

	// Mutating the caller's map after construction has no effect.
	input["relevance"] = 0
	input["injected"] = 1

	v, ok := snap.Value("relevance")
	require.True(t, ok)
	assert.InDelta(t, 4.5, v, 1e-9)
	_, ok = snap.Value("injected")
	assert.False(t, ok)

	// Mutating the copy returned by Values has no effect either.
	copied := snap.Values()
	copied["relevance"] = 0
	v, _ = snap.Value("relevance")
	assert.InDelta(t, 4.5, v, 1e-9)
}

// TestEmptySnapshot verifies the first-run sentinel snapshot.
func TestEmptySnapshot(t *testing.T) {
	snap := EmptySnapshot()
	assert.True(t, snap.IsEmpty())
	assert.Equal(t, 0, snap.Len())
	assert.Empty(t, snap.Names())
}
