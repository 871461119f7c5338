package ports

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestLLMError_IsRetryable verifies the retryable classification for
// judge provider failures.
func TestLLMError_IsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "rate limited is retryable", err: ErrRateLimited, retryable: true},
		{name: "service unavailable is retryable", err: ErrServiceUnavailable, retryable: true},
		{name: "timeout is retryable", err: ErrTimeout, retryable: true},
		{name: "invalid response is not retryable", err: ErrInvalidResponse, retryable: false},
		{name: "auth failure is not retryable", err: ErrAuthenticationFailed, retryable: false},
		{name: "arbitrary error is not retryable", err: errors.New("boom"), retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llmErr := NewLLMError("gpt-4o", "complete", tt.err)
			assert.Equal(t, tt.retryable, llmErr.IsRetryable())
			assert.ErrorIs(t, llmErr, tt.err)
		})
	}
}

// TestLLMError_Error verifies message formatting including retry hints.
func TestLLMError_Error(t *testing.T) {
	wait := 2 * time.Second
	err := &LLMError{Model: "gpt-4o", Operation: "complete", Err: ErrRateLimited, RetryAfter: &wait}
	assert.Contains(t, err.Error(), "model=gpt-4o")
	assert.Contains(t, err.Error(), "retry_after=2s")
}

// TestStoreError_Unwrap verifies error chain traversal for store errors.
func TestStoreError_Unwrap(t *testing.T) {
	underlying := errors.New("disk full")
	err := NewStoreError("/tmp/baseline.json", "replace", underlying)
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "operation=replace")
}

// TestConfigError_Unwrap verifies error chain traversal for config errors.
func TestConfigError_Unwrap(t *testing.T) {
	underlying := errors.New("missing")
	err := NewConfigError("gate.threshold_pct", underlying)
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "gate.threshold_pct")
}
