// Package evaluators produces metric snapshots from live agent runs.
// A suite runner sends the configured queries to the agent under
// evaluation, collects transcripts with their operational measurements,
// and hands them to a set of evaluators: an AI-assisted judge for
// quality dimensions, a deterministic similarity scorer against ground
// truth, and a safety classifier producing per-category defect rates.
package evaluators

import (
	"context"
	"time"
)

// Transcript is one recorded exchange with the agent under evaluation.
type Transcript struct {
	// Query is the user input sent to the agent.
	Query string

	// GroundTruth is the expected answer, when the suite declares one.
	// Empty means no reference answer exists for this query.
	GroundTruth string

	// Response is the agent's answer.
	Response string

	// PromptTokens and CompletionTokens are the token counts reported
	// by the agent's model for this exchange.
	PromptTokens     int
	CompletionTokens int

	// Duration is the client-observed wall time for the exchange.
	Duration time.Duration
}

// Evaluator scores a batch of transcripts and returns metric values
// keyed by metric name. Implementations must be safe for concurrent use.
type Evaluator interface {
	Evaluate(ctx context.Context, transcripts []Transcript) (map[string]float64, error)
}
