package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ahrav/go-gauge/internal/ports"
)

// retryLLM retries transient provider failures with exponential backoff
// and jitter. Logic errors (auth failures, bad requests) fail fast.
type retryLLM struct {
	next       CoreLLM
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware creates middleware that retries retryable failures up
// to maxRetries times with exponential backoff between baseDelay and
// maxDelay.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &retryLLM{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

// DoRequest executes the request, retrying while the provider reports a
// retryable condition and the context remains live.
func (r *retryLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		response, tokensIn, tokensOut, err := r.next.DoRequest(ctx, prompt, opts)
		if err == nil {
			return response, tokensIn, tokensOut, nil
		}

		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil || attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		case <-time.After(r.calculateDelay(err, attempt)):
		}
	}

	return "", 0, 0, fmt.Errorf("request failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

// isRetryable defers to the provider's error classification.
func isRetryable(err error) bool {
	var llmErr *ports.LLMError
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}
	return false
}

// calculateDelay derives the wait before the next attempt: the
// provider-reported retry-after when present, otherwise exponential
// backoff with jitter.
func (r *retryLLM) calculateDelay(err error, attempt int) time.Duration {
	var llmErr *ports.LLMError
	if errors.As(err, &llmErr) && llmErr.RetryAfter != nil {
		return *llmErr.RetryAfter
	}

	if attempt > 30 {
		attempt = 30
	}
	delay := r.baseDelay * time.Duration(1<<uint(attempt))

	// Jitter of up to +25% spreads out retries from concurrent workers.
	delay += time.Duration(rand.Float64() * float64(delay) * 0.25)

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}

// GetModel returns the model name from the wrapped implementation.
func (r *retryLLM) GetModel() string { return r.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (r *retryLLM) SetModel(m string) { r.next.SetModel(m) }
