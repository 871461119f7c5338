// Package ports defines the interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-gauge/internal/domain"
)

// SnapshotStore persists metric snapshots between evaluation runs.
// The baseline snapshot is the canonical instance: it is loaded before
// every comparison and replaced wholesale when a merge promotes a new
// baseline. Implementations never merge snapshots incrementally.
type SnapshotStore interface {
	// Load retrieves the stored snapshot. The boolean is false when no
	// snapshot has been stored yet (first-run mode); that case is not an
	// error.
	Load(ctx context.Context) (domain.MetricSnapshot, bool, error)

	// Replace overwrites the stored snapshot with the given one.
	// fullResults optionally carries the raw evaluation output to be
	// stored alongside the flat metric record; pass nil to keep only the
	// metrics. The write must be atomic: a crash mid-replace must leave
	// either the old or the new snapshot, never a torn file.
	Replace(ctx context.Context, snapshot domain.MetricSnapshot, fullResults []byte) error
}

// ReportRenderer formats a comparison result and gate verdict into a
// human-readable report (PR comment body, console summary).
// Implementations must be pure formatting: same input, same output.
type ReportRenderer interface {
	Render(deltas []domain.MetricDelta, verdict domain.Verdict) (string, error)
}

// AgentReply is a single agent response with its operational
// measurements, collected while executing an evaluation suite.
type AgentReply struct {
	// Text is the agent's answer.
	Text string

	// PromptTokens and CompletionTokens are the token counts reported by
	// the agent's model for this exchange.
	PromptTokens     int
	CompletionTokens int

	// Duration is the client-observed wall time for the exchange.
	Duration time.Duration
}

// AgentClient is the boundary to the agent under evaluation.
// The production system talks to a hosted agent service; tests use an
// in-process fake.
type AgentClient interface {
	// Ask sends one user query to the agent and returns its reply.
	Ask(ctx context.Context, query string) (AgentReply, error)
}

// LLMClient is the boundary to the judge model used for AI-assisted
// scoring. Implementations handle provider-specific authentication,
// request formatting, rate limiting, and retries.
type LLMClient interface {
	// Complete sends a prompt to the judge model and returns the
	// generated text. The options map allows provider-specific settings
	// without changing the interface; common options are "temperature"
	// (float64) and "max_tokens" (int).
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// EstimateTokens returns an approximate token count for the given
	// text, used for budget accounting when exact counts are unavailable.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier used by this client.
	GetModel() string
}

// MetricsCollector records operational metrics about gate evaluations and
// judge calls. Implementations integrate with observability platforms
// such as Prometheus.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)
}
