package evaluators

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-gauge/internal/domain"
	"github.com/ahrav/go-gauge/internal/ports"
)

// Performance metric names emitted by every suite run. They carry the
// performance kind in the default registry: tracked and reported but
// never gated.
const (
	MetricAvgResponseTime  = "avg_response_time_s"
	MetricCompletionTokens = "completion_tokens"
	MetricPromptTokens     = "prompt_tokens"
)

// Query is one entry of the evaluation suite.
type Query struct {
	// Text is the user input sent to the agent.
	Text string

	// GroundTruth is the expected answer; empty when none is declared.
	GroundTruth string
}

// SuiteResult is the output of one suite run: the snapshot to compare
// or promote, plus the raw per-query rows for archival next to the
// baseline record.
type SuiteResult struct {
	Snapshot    domain.MetricSnapshot
	FullResults []byte
}

// resultRow is the archived per-query record in the full-results file.
type resultRow struct {
	Query            string  `json:"query"`
	GroundTruth      string  `json:"ground_truth,omitempty"`
	Response         string  `json:"response"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	ResponseTimeSecs float64 `json:"response_time_s"`
}

// SuiteRunner executes the evaluation suite: every query goes to the
// agent under evaluation with bounded concurrency, the transcripts are
// handed to each evaluator, and the merged metric values become one
// snapshot together with the suite's operational measurements.
type SuiteRunner struct {
	agent          ports.AgentClient
	evaluators     []Evaluator
	maxConcurrency int
	tracer         trace.Tracer
}

// NewSuiteRunner creates a runner over the given agent and evaluators.
func NewSuiteRunner(agent ports.AgentClient, evals []Evaluator, maxConcurrency int) (*SuiteRunner, error) {
	if agent == nil {
		return nil, fmt.Errorf("agent client cannot be nil")
	}
	if maxConcurrency < 1 {
		return nil, fmt.Errorf("max concurrency must be at least 1, got %d", maxConcurrency)
	}

	return &SuiteRunner{
		agent:          agent,
		evaluators:     evals,
		maxConcurrency: maxConcurrency,
		tracer:         otel.Tracer("suite-runner"),
	}, nil
}

// Run executes the suite and returns the resulting snapshot stamped
// with commitSHA. Any agent or evaluator failure aborts the run; a
// partial suite would produce misleading averages.
func (r *SuiteRunner) Run(ctx context.Context, queries []Query, commitSHA string) (*SuiteResult, error) {
	ctx, span := r.tracer.Start(ctx, "SuiteRunner.Run",
		trace.WithAttributes(
			attribute.Int("suite.queries", len(queries)),
			attribute.Int("suite.max_concurrency", r.maxConcurrency),
			attribute.String("suite.commit", commitSHA),
		),
	)
	defer span.End()

	if len(queries) == 0 {
		return nil, fmt.Errorf("evaluation suite has no queries")
	}

	transcripts, err := r.collectTranscripts(ctx, queries)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	values := performanceMetrics(transcripts)
	for _, evaluator := range r.evaluators {
		scores, err := evaluator.Evaluate(ctx, transcripts)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("evaluate suite: %w", err)
		}
		for name, value := range scores {
			values[name] = value
		}
	}

	snapshot, err := domain.NewMetricSnapshot(values, time.Now(), commitSHA)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("build snapshot: %w", err)
	}

	fullResults, err := marshalRows(transcripts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("suite.metrics", snapshot.Len()))
	return &SuiteResult{Snapshot: snapshot, FullResults: fullResults}, nil
}

// collectTranscripts asks the agent every query with bounded
// concurrency, preserving query order in the result.
func (r *SuiteRunner) collectTranscripts(ctx context.Context, queries []Query) ([]Transcript, error) {
	transcripts := make([]Transcript, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrency)

	for i, query := range queries {
		g.Go(func() error {
			reply, err := r.agent.Ask(gctx, query.Text)
			if err != nil {
				return fmt.Errorf("query %d (%q): %w", i+1, query.Text, err)
			}
			transcripts[i] = Transcript{
				Query:            query.Text,
				GroundTruth:      query.GroundTruth,
				Response:         reply.Text,
				PromptTokens:     reply.PromptTokens,
				CompletionTokens: reply.CompletionTokens,
				Duration:         reply.Duration,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return transcripts, nil
}

// performanceMetrics derives the operational metrics of a suite run:
// mean response time and total token counts.
func performanceMetrics(transcripts []Transcript) map[string]float64 {
	var totalSeconds float64
	var promptTokens, completionTokens int
	for _, t := range transcripts {
		totalSeconds += t.Duration.Seconds()
		promptTokens += t.PromptTokens
		completionTokens += t.CompletionTokens
	}

	return map[string]float64{
		MetricAvgResponseTime:  totalSeconds / float64(len(transcripts)),
		MetricPromptTokens:     float64(promptTokens),
		MetricCompletionTokens: float64(completionTokens),
	}
}

func marshalRows(transcripts []Transcript) ([]byte, error) {
	rows := make([]resultRow, len(transcripts))
	for i, t := range transcripts {
		rows[i] = resultRow{
			Query:            t.Query,
			GroundTruth:      t.GroundTruth,
			Response:         t.Response,
			PromptTokens:     t.PromptTokens,
			CompletionTokens: t.CompletionTokens,
			ResponseTimeSecs: t.Duration.Seconds(),
		}
	}

	data, err := json.MarshalIndent(struct {
		Rows []resultRow `json:"rows"`
	}{Rows: rows}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal full results: %w", err)
	}
	return data, nil
}
