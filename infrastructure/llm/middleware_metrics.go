package llm

import (
	"context"
	"time"

	"github.com/ahrav/go-gauge/internal/ports"
)

// metricsLLM records request latency, outcome, and token usage through
// a ports.MetricsCollector.
type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that reports judge-call metrics
// to the given collector. A nil collector disables reporting.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, collector: collector}
	}
}

// DoRequest forwards the request and records its latency, status, and
// token counts.
func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)

	if m.collector != nil {
		labels := map[string]string{
			"model":  m.next.GetModel(),
			"status": "success",
		}
		if err != nil {
			labels["status"] = "error"
			if ctx.Err() == context.DeadlineExceeded {
				labels["status"] = "timeout"
			}
		}

		m.collector.RecordLatency("judge_request", time.Since(start), labels)
		m.collector.RecordCounter("judge_requests_total", 1, labels)

		if err == nil {
			m.collector.RecordCounter("judge_tokens_total", float64(tokensIn),
				map[string]string{"model": labels["model"], "token_type": "input"})
			m.collector.RecordCounter("judge_tokens_total", float64(tokensOut),
				map[string]string{"model": labels["model"], "token_type": "output"})
		}
	}

	return response, tokensIn, tokensOut, err
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsLLM) GetModel() string { return m.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (m *metricsLLM) SetModel(model string) { m.next.SetModel(model) }
