// Package middleware provides cross-cutting concerns for the evaluation
// gate, currently the Prometheus-backed metrics collector.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-gauge/internal/ports"
)

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements ports.MetricsCollector using Prometheus.
// It covers gate evaluations, baseline promotions, judge-model calls,
// and the per-metric values of the latest evaluated snapshot.
type PrometheusMetrics struct {
	gateEvaluations    *prometheus.CounterVec
	baselinePromotions prometheus.Counter
	judgeRequests      *prometheus.CounterVec
	judgeTokens        *prometheus.CounterVec
	operationLatency   *prometheus.HistogramVec
	operationCounter   *prometheus.CounterVec
	metricValues       *prometheus.GaugeVec
	systemGauges       *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a collector and registers its metrics
// with the given registerer. Pass nil to use the default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		gateEvaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gate_evaluations_total",
				Help: "Total number of gate evaluations by outcome.",
			},
			[]string{"status"},
		),
		baselinePromotions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "baseline_promotions_total",
				Help: "Total number of baseline snapshot promotions.",
			},
		),
		judgeRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "judge_requests_total",
				Help: "Total number of judge model requests by outcome.",
			},
			[]string{"model", "status"},
		),
		judgeTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "judge_tokens_total",
				Help: "Total number of tokens exchanged with the judge model.",
			},
			[]string{"model", "token_type"},
		),
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gauge_operation_duration_seconds",
				Help:    "Execution time of evaluation and gate operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gauge_operations_total",
				Help: "Total number of operations by name and status.",
			},
			[]string{"operation", "status"},
		),
		metricValues: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "evaluation_metric_value",
				Help: "Latest evaluated value of each declared metric.",
			},
			[]string{"metric", "kind"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gauge_system_state",
				Help: "Current system state values.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency records the execution time of an operation.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, _ map[string]string) {
	pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter increments the counter matching the metric name.
// Unrecognized names land in the generic operations counter so no
// signal is silently dropped.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "gate_evaluations_total":
		pm.gateEvaluations.WithLabelValues(valueOr(labels, "status", "unknown")).Add(value)
	case "baseline_promotions_total":
		// The commit label is dropped: one series per SHA would grow
		// without bound.
		pm.baselinePromotions.Add(value)
	case "judge_requests_total":
		pm.judgeRequests.WithLabelValues(
			valueOr(labels, "model", "unknown"),
			valueOr(labels, "status", "unknown"),
		).Add(value)
	case "judge_tokens_total":
		pm.judgeTokens.WithLabelValues(
			valueOr(labels, "model", "unknown"),
			valueOr(labels, "token_type", "unknown"),
		).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, valueOr(labels, "status", "success")).Add(value)
	}
}

// RecordGauge sets the gauge matching the metric name.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	if metric == "evaluation_metric_value" {
		pm.metricValues.WithLabelValues(
			valueOr(labels, "metric", "unknown"),
			valueOr(labels, "kind", "unknown"),
		).Set(value)
		return
	}
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

func valueOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}
