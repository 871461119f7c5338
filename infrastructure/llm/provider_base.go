package llm

import "sync"

// BaseProvider carries the thread-safe model name handling shared by
// all providers.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the configured model name. Safe for concurrent use.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model name. Safe for concurrent use.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// TokenCounter estimates token counts from text when the provider does
// not report exact usage.
type TokenCounter struct {
	// CharactersPerToken is the average characters-per-token ratio used
	// for estimation.
	CharactersPerToken float64
}

// NewTokenCounter returns a counter with a ratio suited to English text.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{CharactersPerToken: 4.0}
}

// EstimateTokens approximates the token count of text.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / tc.CharactersPerToken)
}

// CountOrEstimate returns the reported count when positive, otherwise an
// estimate derived from the text.
func (tc *TokenCounter) CountOrEstimate(reported int, text string) int {
	if reported > 0 {
		return reported
	}
	return tc.EstimateTokens(text)
}
