package domain

import (
	"errors"
	"fmt"
)

// Common domain errors returned by snapshot and gate operations.
var (
	// ErrInvalidSnapshot indicates that a snapshot contains a value that
	// cannot be compared (NaN or infinite).
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrEmptyRegistry indicates that a metric registry was created
	// without any declared metrics.
	ErrEmptyRegistry = errors.New("metric registry is empty")

	// ErrInvalidRegistry indicates that a registry entry is malformed.
	ErrInvalidRegistry = errors.New("invalid metric registry")

	// ErrInvalidThreshold indicates that a gate threshold is outside the
	// accepted percentage range.
	ErrInvalidThreshold = errors.New("invalid gate threshold")
)

// SnapshotError reports a malformed value inside a metric snapshot.
// It is the only condition that aborts a comparison outright, since the
// gate's integrity depends on well-typed numeric input.
type SnapshotError struct {
	// Metric is the name of the offending metric.
	Metric string

	// Value is the rejected numeric value.
	Value float64

	// Err is the underlying sentinel error.
	Err error
}

// Error implements the error interface for SnapshotError.
func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot error: metric=%s, value=%v, err=%v", e.Metric, e.Value, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is matching.
func (e *SnapshotError) Unwrap() error { return e.Err }

// NewSnapshotError creates a SnapshotError for the given metric and value.
func NewSnapshotError(metric string, value float64) *SnapshotError {
	return &SnapshotError{
		Metric: metric,
		Value:  value,
		Err:    ErrInvalidSnapshot,
	}
}
