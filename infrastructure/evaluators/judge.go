package evaluators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-gauge/internal/ports"
)

// validate is the package-level validator shared by evaluator configs.
var validate = validator.New()

// Judge scoring bounds. Scores outside the scale are rejected, not
// clamped, so a confused judge response surfaces as an error.
const (
	JudgeScoreMin = 0.0
	JudgeScoreMax = 5.0

	// DefaultJudgeConcurrency bounds simultaneous judge calls per
	// evaluation to avoid overwhelming the provider.
	DefaultJudgeConcurrency = 5

	defaultJudgeMaxTokens = 256
)

// qualityCriteria maps each judged quality dimension to the rubric line
// embedded in the prompt.
var qualityCriteria = map[string]string{
	"relevance":         "How directly and completely the response addresses the query.",
	"coherence":         "Logical flow and internal consistency of the response.",
	"fluency":           "Grammatical correctness and natural readability.",
	"groundedness":      "Whether every claim is supported by the provided context or ground truth, with no fabrication.",
	"intent_resolution": "Whether the response resolves the user's underlying intent, not just the literal question.",
	"task_adherence":    "Whether the response stays within the requested task and follows its instructions.",
}

// judgePromptTemplate builds the scoring prompt for one dimension of one
// transcript.
const judgePromptTemplate = `You are an impartial evaluator of AI agent responses.

Rate the response below on the dimension "{{.Dimension}}" using a scale
from {{.ScoreMin}} to {{.ScoreMax}}, where {{.ScoreMin}} is the worst
possible and {{.ScoreMax}} is the best possible.

Dimension rubric: {{.Criteria}}

Query:
{{.Query}}
{{if .GroundTruth}}
Reference answer:
{{.GroundTruth}}
{{end}}
Response to evaluate:
{{.Response}}

IMPORTANT: You must respond with valid JSON in exactly this format:
{"score": <number>, "reasoning": "<brief explanation>"}`

// judgeResponse is the JSON document expected back from the judge model.
type judgeResponse struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// JudgeConfig holds the tunable parameters of the AI-assisted judge.
type JudgeConfig struct {
	// Dimensions lists the quality dimensions to score. Every entry must
	// have a rubric in qualityCriteria.
	Dimensions []string `validate:"required,min=1"`

	// Temperature for judge calls; low values keep scoring consistent.
	Temperature float64 `validate:"min=0,max=1"`

	// MaxTokens bounds the judge's reasoning length.
	MaxTokens int `validate:"min=16,max=4000"`

	// MaxConcurrency limits simultaneous judge calls.
	MaxConcurrency int `validate:"min=1,max=20"`
}

// DefaultJudgeConfig scores all known quality dimensions with
// deterministic settings.
func DefaultJudgeConfig() JudgeConfig {
	dimensions := make([]string, 0, len(qualityCriteria))
	for name := range qualityCriteria {
		dimensions = append(dimensions, name)
	}
	return JudgeConfig{
		Dimensions:     dimensions,
		Temperature:    0.0,
		MaxTokens:      defaultJudgeMaxTokens,
		MaxConcurrency: DefaultJudgeConcurrency,
	}
}

// JudgeEvaluator scores transcripts on quality dimensions by prompting
// a judge model once per transcript per dimension and averaging the
// scores. It is stateless and safe for concurrent use.
type JudgeEvaluator struct {
	client ports.LLMClient
	config JudgeConfig
	tmpl   *template.Template
	tracer trace.Tracer
}

var _ Evaluator = (*JudgeEvaluator)(nil)

// NewJudgeEvaluator creates a judge evaluator. Every configured
// dimension must have a known rubric.
func NewJudgeEvaluator(client ports.LLMClient, config JudgeConfig) (*JudgeEvaluator, error) {
	if client == nil {
		return nil, fmt.Errorf("LLM client cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("judge configuration invalid: %w", err)
	}
	for _, dimension := range config.Dimensions {
		if _, ok := qualityCriteria[dimension]; !ok {
			return nil, fmt.Errorf("unknown quality dimension: %s", dimension)
		}
	}

	tmpl, err := template.New("judgePrompt").Parse(judgePromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse judge prompt template: %w", err)
	}

	return &JudgeEvaluator{
		client: client,
		config: config,
		tmpl:   tmpl,
		tracer: otel.Tracer("judge-evaluator"),
	}, nil
}

// Evaluate scores every transcript on every configured dimension with
// bounded concurrency and returns the per-dimension mean.
func (e *JudgeEvaluator) Evaluate(ctx context.Context, transcripts []Transcript) (map[string]float64, error) {
	ctx, span := e.tracer.Start(ctx, "JudgeEvaluator.Evaluate",
		trace.WithAttributes(
			attribute.Int("transcripts", len(transcripts)),
			attribute.Int("dimensions", len(e.config.Dimensions)),
			attribute.String("judge.model", e.client.GetModel()),
		),
	)
	defer span.End()

	if len(transcripts) == 0 {
		return nil, fmt.Errorf("no transcripts to evaluate")
	}

	sums := make(map[string]float64, len(e.config.Dimensions))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.MaxConcurrency)

	for _, transcript := range transcripts {
		for _, dimension := range e.config.Dimensions {
			g.Go(func() error {
				score, err := e.scoreOne(gctx, transcript, dimension)
				if err != nil {
					return err
				}
				mu.Lock()
				sums[dimension] += score
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	results := make(map[string]float64, len(sums))
	for dimension, sum := range sums {
		results[dimension] = sum / float64(len(transcripts))
	}
	return results, nil
}

func (e *JudgeEvaluator) scoreOne(ctx context.Context, transcript Transcript, dimension string) (float64, error) {
	var promptBuf bytes.Buffer
	err := e.tmpl.Execute(&promptBuf, struct {
		Dimension, Criteria, Query, GroundTruth, Response string
		ScoreMin, ScoreMax                                float64
	}{
		Dimension:   dimension,
		Criteria:    qualityCriteria[dimension],
		Query:       transcript.Query,
		GroundTruth: transcript.GroundTruth,
		Response:    transcript.Response,
		ScoreMin:    JudgeScoreMin,
		ScoreMax:    JudgeScoreMax,
	})
	if err != nil {
		return 0, fmt.Errorf("execute judge prompt for %s: %w", dimension, err)
	}

	raw, err := e.client.Complete(ctx, promptBuf.String(), map[string]any{
		"temperature": e.config.Temperature,
		"max_tokens":  e.config.MaxTokens,
	})
	if err != nil {
		return 0, fmt.Errorf("judge call for %s: %w", dimension, err)
	}

	parsed, err := parseJudgeResponse(raw)
	if err != nil {
		return 0, fmt.Errorf("judge response for %s: %w", dimension, err)
	}
	if parsed.Score < JudgeScoreMin || parsed.Score > JudgeScoreMax {
		return 0, fmt.Errorf("judge score %.2f for %s outside scale %.0f-%.0f",
			parsed.Score, dimension, JudgeScoreMin, JudgeScoreMax)
	}
	return parsed.Score, nil
}

// extractJSONObject isolates the outermost JSON object in a model
// reply, tolerating surrounding prose and Markdown code fences.
func extractJSONObject(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			return cleaned[start : end+1]
		}
	}
	return cleaned
}

// parseJudgeResponse decodes the JSON verdict from the judge's reply.
func parseJudgeResponse(raw string) (judgeResponse, error) {
	var parsed judgeResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return judgeResponse{}, fmt.Errorf("%w: %v", ports.ErrInvalidResponse, err)
	}
	return parsed, nil
}
