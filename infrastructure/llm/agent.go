package llm

import (
	"context"
	"time"

	"github.com/ahrav/go-gauge/internal/ports"
)

var _ ports.AgentClient = (*AgentAdapter)(nil)

// AgentAdapter exposes a judge-style client as the agent under
// evaluation, for suites that target a plain model deployment rather
// than a hosted agent service. It measures wall time per exchange and
// forwards the provider-reported token usage.
type AgentAdapter struct {
	client  *Client
	system  string
	options map[string]any
}

// NewAgentAdapter wraps client as an agent. The system prompt and
// options are applied to every exchange; both may be empty.
func NewAgentAdapter(client *Client, system string, options map[string]any) *AgentAdapter {
	return &AgentAdapter{client: client, system: system, options: options}
}

// Ask sends one user query and returns the reply with its operational
// measurements.
func (a *AgentAdapter) Ask(ctx context.Context, query string) (ports.AgentReply, error) {
	options := make(map[string]any, len(a.options)+1)
	for k, v := range a.options {
		options[k] = v
	}
	if a.system != "" {
		options["system"] = a.system
	}

	start := time.Now()
	text, tokensIn, tokensOut, err := a.client.CompleteWithUsage(ctx, query, options)
	if err != nil {
		return ports.AgentReply{}, err
	}

	return ports.AgentReply{
		Text:             text,
		PromptTokens:     tokensIn,
		CompletionTokens: tokensOut,
		Duration:         time.Since(start),
	}, nil
}
