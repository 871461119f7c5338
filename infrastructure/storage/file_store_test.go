package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-gauge/internal/domain"
)

func newSnapshot(t *testing.T, values map[string]float64, sha string) domain.MetricSnapshot {
	t.Helper()
	snap, err := domain.NewMetricSnapshot(values, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), sha)
	require.NoError(t, err)
	return snap
}

// TestFileSnapshotStore_RoundTrip verifies that a replaced snapshot loads
// back with identical metrics and metadata.
func TestFileSnapshotStore_RoundTrip(t *testing.T) {
	store, err := NewFileSnapshotStore(t.TempDir(), "baseline")
	require.NoError(t, err)

	snap := newSnapshot(t, map[string]float64{
		"relevance":           4.75,
		"avg_response_time_s": 2.5,
	}, "abc123")

	require.NoError(t, store.Replace(context.Background(), snap, []byte(`{"rows":[]}`)))

	loaded, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, snap.Values(), loaded.Values())
	assert.Equal(t, "abc123", loaded.CommitSHA())
	assert.Equal(t, snap.TakenAt(), loaded.TakenAt())
}

// TestFileSnapshotStore_FirstRun verifies that a missing file is reported
// as first-run mode, not an error.
func TestFileSnapshotStore_FirstRun(t *testing.T) {
	store, err := NewFileSnapshotStore(t.TempDir(), "baseline")
	require.NoError(t, err)

	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestFileSnapshotStore_WholesaleOverwrite verifies that replaces never
// merge with the previous record.
func TestFileSnapshotStore_WholesaleOverwrite(t *testing.T) {
	store, err := NewFileSnapshotStore(t.TempDir(), "baseline")
	require.NoError(t, err)

	first := newSnapshot(t, map[string]float64{"relevance": 4.0, "coherence": 4.2}, "sha1")
	require.NoError(t, store.Replace(context.Background(), first, nil))

	second := newSnapshot(t, map[string]float64{"relevance": 4.5}, "sha2")
	require.NoError(t, store.Replace(context.Background(), second, nil))

	loaded, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, map[string]float64{"relevance": 4.5}, loaded.Values())
	_, present := loaded.Value("coherence")
	assert.False(t, present, "old metrics must not survive a replace")
}

// TestFileSnapshotStore_FullResults verifies that the raw evaluation
// output is stored alongside the flat record only when provided.
func TestFileSnapshotStore_FullResults(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSnapshotStore(dir, "baseline")
	require.NoError(t, err)

	snap := newSnapshot(t, map[string]float64{"relevance": 4.5}, "")
	require.NoError(t, store.Replace(context.Background(), snap, nil))
	_, err = os.Stat(filepath.Join(dir, "baseline_full_results.json"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Replace(context.Background(), snap, []byte(`{"rows":[1]}`)))
	raw, err := os.ReadFile(filepath.Join(dir, "baseline_full_results.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"rows":[1]}`, string(raw))
}

// TestFileSnapshotStore_CorruptFile verifies the decode error path.
func TestFileSnapshotStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSnapshotStore(dir, "baseline")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.MetricsPath(), []byte("{not json"), 0o600))

	_, _, err = store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

// TestNewFileSnapshotStore_Validation verifies constructor guards.
func TestNewFileSnapshotStore_Validation(t *testing.T) {
	_, err := NewFileSnapshotStore("", "baseline")
	require.Error(t, err)

	_, err = NewFileSnapshotStore(t.TempDir(), "")
	require.Error(t, err)
}
