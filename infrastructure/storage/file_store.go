// Package storage persists metric snapshots as flat JSON records on
// disk, the layout consumed by CI workflows: one small file with the
// key-to-value metric record and one optional file with the full raw
// evaluation output. Both are overwritten wholesale on every replace,
// never merged.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ahrav/go-gauge/internal/domain"
	"github.com/ahrav/go-gauge/internal/ports"
)

var _ ports.SnapshotStore = (*FileSnapshotStore)(nil)

// snapshotRecord is the on-disk representation of a snapshot.
type snapshotRecord struct {
	Metrics   map[string]float64 `json:"metrics"`
	UpdatedAt time.Time          `json:"updated_at"`
	CommitSHA string             `json:"commit_sha"`
}

// FileSnapshotStore implements ports.SnapshotStore on the local
// filesystem. Writes go through a temp file and rename, so a crash
// mid-replace leaves either the old or the new snapshot intact.
//
// Concurrent replaces are last-writer-wins; any stricter coordination
// (two merges promoting at once) belongs to the caller via the
// optimistic-concurrency token in the application layer.
type FileSnapshotStore struct {
	metricsPath string
	fullPath    string
}

// NewFileSnapshotStore creates a store rooted at dir, writing
// "<name>_metrics.json" and "<name>_full_results.json".
func NewFileSnapshotStore(dir, name string) (*FileSnapshotStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if name == "" {
		return nil, fmt.Errorf("snapshot name is required")
	}

	return &FileSnapshotStore{
		metricsPath: filepath.Join(dir, name+"_metrics.json"),
		fullPath:    filepath.Join(dir, name+"_full_results.json"),
	}, nil
}

// MetricsPath returns the path of the flat metric record file.
func (s *FileSnapshotStore) MetricsPath() string { return s.metricsPath }

// FullResultsPath returns the path of the raw evaluation output file.
func (s *FileSnapshotStore) FullResultsPath() string { return s.fullPath }

// Load reads the stored snapshot. A missing file is first-run mode and
// returns ok=false without an error.
func (s *FileSnapshotStore) Load(_ context.Context) (domain.MetricSnapshot, bool, error) {
	data, err := os.ReadFile(s.metricsPath)
	if os.IsNotExist(err) {
		return domain.MetricSnapshot{}, false, nil
	}
	if err != nil {
		return domain.MetricSnapshot{}, false, ports.NewStoreError(s.metricsPath, "load", err)
	}

	var record snapshotRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.MetricSnapshot{}, false, ports.NewStoreError(s.metricsPath, "decode", err)
	}

	snapshot, err := domain.NewMetricSnapshot(record.Metrics, record.UpdatedAt, record.CommitSHA)
	if err != nil {
		return domain.MetricSnapshot{}, false, ports.NewStoreError(s.metricsPath, "validate", err)
	}
	return snapshot, true, nil
}

// Replace overwrites the stored snapshot and, when provided, the raw
// evaluation output alongside it.
func (s *FileSnapshotStore) Replace(_ context.Context, snapshot domain.MetricSnapshot, fullResults []byte) error {
	record := snapshotRecord{
		Metrics:   snapshot.Values(),
		UpdatedAt: snapshot.TakenAt(),
		CommitSHA: snapshot.CommitSHA(),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return ports.NewStoreError(s.metricsPath, "encode", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.metricsPath), 0o750); err != nil {
		return ports.NewStoreError(s.metricsPath, "mkdir", err)
	}
	if err := atomicWrite(s.metricsPath, data); err != nil {
		return ports.NewStoreError(s.metricsPath, "replace", err)
	}

	if fullResults != nil {
		if err := atomicWrite(s.fullPath, fullResults); err != nil {
			return ports.NewStoreError(s.fullPath, "replace", err)
		}
	}
	return nil
}

// atomicWrite writes data to a temp file in the target directory and
// renames it over path.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
