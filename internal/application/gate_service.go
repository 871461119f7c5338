package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-gauge/internal/domain"
	"github.com/ahrav/go-gauge/internal/ports"
)

// GateReport bundles everything a caller needs after a gate evaluation:
// the raw comparison results, the verdict, and the rendered report body.
// Exit-code policy is deliberately left to the caller; the verdict is
// data, not a process decision.
type GateReport struct {
	// Deltas is the full comparison result list, including informational
	// entries.
	Deltas []domain.MetricDelta

	// Verdict is the gate decision.
	Verdict domain.Verdict

	// Report is the rendered report body (Markdown for PR comments).
	Report string
}

// GateService orchestrates one gate evaluation: load the persisted
// baseline, compare the current snapshot against it, reduce to a verdict,
// and render the report. The service never mutates or caches baseline
// state; every evaluation reads the store fresh, so concurrent
// evaluations against the same baseline are independent.
type GateService struct {
	comparator domain.Comparator
	registry   *domain.MetricRegistry
	store      ports.SnapshotStore
	renderer   ports.ReportRenderer
	collector  ports.MetricsCollector
	tracer     trace.Tracer
}

// NewGateService creates a GateService. The store and renderer are
// required; the metrics collector may be nil to disable instrumentation.
func NewGateService(
	comparator domain.Comparator,
	registry *domain.MetricRegistry,
	store ports.SnapshotStore,
	renderer ports.ReportRenderer,
	collector ports.MetricsCollector,
) (*GateService, error) {
	if registry == nil {
		return nil, errors.New("metric registry is required")
	}
	if store == nil {
		return nil, errors.New("snapshot store is required")
	}
	if renderer == nil {
		return nil, errors.New("report renderer is required")
	}

	return &GateService{
		comparator: comparator,
		registry:   registry,
		store:      store,
		renderer:   renderer,
		collector:  collector,
		tracer:     otel.Tracer("gate-service"),
	}, nil
}

// Evaluate compares the current snapshot against the stored baseline and
// returns the comparison, verdict, and rendered report. A missing
// baseline enters first-run mode: the gate passes trivially and every
// entry is informational.
func (s *GateService) Evaluate(ctx context.Context, current domain.MetricSnapshot) (*GateReport, error) {
	ctx, span := s.tracer.Start(ctx, "GateService.Evaluate",
		trace.WithAttributes(
			attribute.Int("snapshot.metrics", current.Len()),
			attribute.String("snapshot.commit", current.CommitSHA()),
			attribute.Float64("gate.threshold_pct", s.comparator.ThresholdPct()),
		),
	)
	defer span.End()

	start := time.Now()

	baseline, ok, err := s.store.Load(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load baseline: %w", err)
	}
	if !ok {
		baseline = domain.EmptySnapshot()
	}

	deltas := s.comparator.Compare(current, baseline, s.registry)
	verdict := domain.EvaluateGate(deltas, time.Now())

	report, err := s.renderer.Render(deltas, verdict)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("render report: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("gate.passed", verdict.Passed),
		attribute.Bool("gate.first_run", verdict.FirstRun),
		attribute.Int("gate.failed_metrics", len(verdict.FailedMetrics)),
	)
	s.recordMetrics(current, verdict, time.Since(start))

	return &GateReport{Deltas: deltas, Verdict: verdict, Report: report}, nil
}

// PromoteBaseline replaces the stored baseline with the given snapshot.
// Baseline updates are wholesale overwrites, never incremental merges.
//
// When expectedSHA is non-empty, promotion is rejected with
// ports.ErrBaselineConflict unless the stored baseline's commit matches;
// this is the optimistic-concurrency token guarding two merges racing to
// promote. An empty expectedSHA keeps last-writer-wins semantics.
func (s *GateService) PromoteBaseline(
	ctx context.Context,
	snapshot domain.MetricSnapshot,
	fullResults []byte,
	expectedSHA string,
) error {
	ctx, span := s.tracer.Start(ctx, "GateService.PromoteBaseline",
		trace.WithAttributes(attribute.String("snapshot.commit", snapshot.CommitSHA())),
	)
	defer span.End()

	if expectedSHA != "" {
		stored, ok, err := s.store.Load(ctx)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("load baseline for promotion check: %w", err)
		}
		if ok && stored.CommitSHA() != expectedSHA {
			err := fmt.Errorf("%w: stored baseline is at %s, expected %s",
				ports.ErrBaselineConflict, stored.CommitSHA(), expectedSHA)
			span.RecordError(err)
			return err
		}
	}

	if err := s.store.Replace(ctx, snapshot, fullResults); err != nil {
		span.RecordError(err)
		return fmt.Errorf("replace baseline: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordCounter("baseline_promotions_total", 1, map[string]string{
			"commit": snapshot.CommitSHA(),
		})
	}
	return nil
}

func (s *GateService) recordMetrics(current domain.MetricSnapshot, verdict domain.Verdict, elapsed time.Duration) {
	if s.collector == nil {
		return
	}

	status := "passed"
	if !verdict.Passed {
		status = "failed"
	}
	s.collector.RecordCounter("gate_evaluations_total", 1, map[string]string{"status": status})
	s.collector.RecordLatency("gate_evaluate", elapsed, nil)

	for name, value := range current.Values() {
		kind, ok := s.registry.KindOf(name)
		if !ok {
			continue
		}
		s.collector.RecordGauge("evaluation_metric_value", value, map[string]string{
			"metric": name,
			"kind":   string(kind),
		})
	}
}
