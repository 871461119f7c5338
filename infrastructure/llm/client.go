// Package llm provides the judge-model client used for AI-assisted
// scoring. It abstracts the supported providers (OpenAI and
// Azure-hosted OpenAI deployments, Anthropic, Google) behind a single
// interface and layers cross-cutting concerns on top through a
// middleware chain: rate limiting, retry with backoff, and metrics.
//
// Basic usage:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o-mini",
//	    Middleware: []llm.Middleware{
//	        llm.RateLimitMiddleware(5, 10),
//	        llm.RetryMiddleware(3, 500*time.Millisecond, 30*time.Second),
//	    },
//	})
//	text, err := client.Complete(ctx, prompt, map[string]any{"temperature": 0.0})
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-gauge/internal/ports"
)

// CoreLLM is the minimal surface a provider must implement. The
// middleware chain wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends a prompt to the provider and returns the response
	// text along with input and output token counts. The opts map allows
	// provider-specific settings such as "temperature", "max_tokens",
	// "system", and "model".
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model used for subsequent requests.
	SetModel(model string)
}

// TokenEstimator approximates token counts when exact counts are not
// available before a request is made.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// Middleware wraps a CoreLLM to add cross-cutting behavior without
// touching provider logic.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds the settings needed to construct a judge client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model is the provider-specific model identifier.
	Model string

	// BaseURL overrides the provider's default endpoint. For OpenAI this
	// is how Azure-hosted deployments are addressed.
	BaseURL string

	// Timeout bounds individual requests. Zero means no client timeout.
	Timeout time.Duration

	// TokenEstimator overrides the default character-based estimator.
	TokenEstimator TokenEstimator

	// Middleware is applied in order, first entry outermost.
	Middleware []Middleware
}

// Client implements ports.LLMClient by delegating to a middleware-wrapped
// provider.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient assembles a judge client for the named provider
// ("openai", "anthropic", or "google") with its middleware chain applied.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", providerType, err)
	}

	// Apply middleware in reverse so the first entry is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = &SimpleTokenEstimator{}
	}

	return &Client{core: core, estimator: estimator}, nil
}

// Complete sends a prompt to the judge model and returns the generated
// text, discarding token usage.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.core.DoRequest(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends a prompt and returns the response together
// with input and output token counts.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// EstimateTokens returns an approximate token count for the given text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the model identifier of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// SimpleTokenEstimator approximates tokens as four characters each,
// which is close enough for English text budgeting.
type SimpleTokenEstimator struct{}

// EstimateTokens returns an approximate token count for text.
func (e *SimpleTokenEstimator) EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// ProviderFactory builds a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider under a name, making it
// available to NewClient. Built-in providers register themselves in
// their init functions.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}

// requestOptions is the normalized form of the options map accepted by
// DoRequest.
type requestOptions struct {
	maxTokens   int
	model       string
	system      string
	temperature *float64
}

const defaultMaxTokens = 256

// parseRequestOptions extracts the standard option keys, falling back to
// defaults for missing or ill-typed entries.
func parseRequestOptions(opts map[string]any, defaultModel string) requestOptions {
	options := requestOptions{
		maxTokens: defaultMaxTokens,
		model:     defaultModel,
	}

	if v, ok := opts["max_tokens"].(int); ok && v > 0 {
		options.maxTokens = v
	}
	if v, ok := opts["model"].(string); ok && v != "" {
		options.model = v
	}
	if v, ok := opts["system"].(string); ok {
		options.system = v
	}
	if v, ok := opts["temperature"].(float64); ok && v >= 0 && v <= 2 {
		options.temperature = &v
	}

	return options
}
