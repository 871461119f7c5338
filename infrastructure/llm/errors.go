package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahrav/go-gauge/internal/ports"
)

// Common errors returned by the judge client and providers.
var (
	// ErrEmptyAPIKey indicates that an API key was required but not provided.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")

	// ErrEmptyResponse indicates that the provider returned an empty body.
	ErrEmptyResponse = errors.New("empty response from API")

	// ErrNoResponseChoice indicates that the provider's response contained
	// no choices.
	ErrNoResponseChoice = errors.New("no response choices returned")
)

// classifyStatus maps a provider HTTP status to a ports.LLMError wrapping
// the matching sentinel, so callers and the retry middleware can decide
// retryability with errors.Is.
func classifyStatus(model, provider string, status int, err error) error {
	var sentinel error
	switch {
	case status == 401 || status == 403:
		sentinel = ports.ErrAuthenticationFailed
	case status == 429:
		sentinel = ports.ErrRateLimited
	case status >= 500:
		sentinel = ports.ErrServiceUnavailable
	default:
		return ports.NewLLMError(model, provider+" request",
			fmt.Errorf("HTTP %d: %w", status, err))
	}
	return ports.NewLLMError(model, provider+" request",
		fmt.Errorf("%w: HTTP %d: %v", sentinel, status, err))
}

// classifyContextError maps context cancellation and deadline errors to
// the timeout sentinel where appropriate.
func classifyContextError(model, provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ports.NewLLMError(model, provider+" request",
			fmt.Errorf("%w: %v", ports.ErrTimeout, err))
	}
	return ports.NewLLMError(model, provider+" request", err)
}

// isContextError reports whether err stems from context cancellation or
// expiry.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
