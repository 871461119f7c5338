package evaluators

import (
	"context"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
)

// foldCaser is a package-level Unicode case folder; creating one per
// comparison is wasteful.
var foldCaser = cases.Fold()

// SimilarityMetric is the metric name produced by SimilarityEvaluator.
const SimilarityMetric = "similarity"

// SimilarityEvaluator scores responses against their ground truth with
// normalized Levenshtein edit distance, scaled onto the shared quality
// score range so it reports alongside the judged dimensions. It needs
// no model call and is fully deterministic.
//
// Transcripts without a ground truth are skipped; an entire suite
// without ground truth produces no similarity metric at all, which the
// comparator then treats as an undeclared-side case rather than a zero.
type SimilarityEvaluator struct {
	caseSensitive bool
	tracer        trace.Tracer
}

var _ Evaluator = (*SimilarityEvaluator)(nil)

// NewSimilarityEvaluator creates a similarity evaluator. When
// caseSensitive is false, both strings are case-folded before comparison.
func NewSimilarityEvaluator(caseSensitive bool) *SimilarityEvaluator {
	return &SimilarityEvaluator{
		caseSensitive: caseSensitive,
		tracer:        otel.Tracer("similarity-evaluator"),
	}
}

// Evaluate returns the mean similarity of responses to their ground
// truth, in the range [0, JudgeScoreMax].
func (e *SimilarityEvaluator) Evaluate(ctx context.Context, transcripts []Transcript) (map[string]float64, error) {
	_, span := e.tracer.Start(ctx, "SimilarityEvaluator.Evaluate",
		trace.WithAttributes(
			attribute.Int("transcripts", len(transcripts)),
			attribute.Bool("case_sensitive", e.caseSensitive),
		),
	)
	defer span.End()

	var sum float64
	var scored int
	for _, transcript := range transcripts {
		if transcript.GroundTruth == "" {
			continue
		}
		sum += e.similarity(transcript.Response, transcript.GroundTruth)
		scored++
	}

	if scored == 0 {
		return map[string]float64{}, nil
	}
	mean := sum / float64(scored)
	span.SetAttributes(attribute.Float64("similarity.mean", mean))

	return map[string]float64{SimilarityMetric: mean * JudgeScoreMax}, nil
}

// similarity returns 1 - distance/maxLen over runes, in [0, 1].
func (e *SimilarityEvaluator) similarity(response, reference string) float64 {
	a, b := response, reference
	if !e.caseSensitive {
		a = foldCaser.String(a)
		b = foldCaser.String(b)
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		// Both strings empty counts as a perfect match.
		return 1.0
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}
