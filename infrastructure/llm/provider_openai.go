package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIDefaultModel is the judge model used when none is configured.
const OpenAIDefaultModel = "gpt-4o-mini"

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
}

// openAIProvider implements CoreLLM against OpenAI's chat completion
// API. With a BaseURL override it also serves Azure-hosted OpenAI
// deployments, which is how the judge runs inside Foundry projects.
type openAIProvider struct {
	BaseProvider
	client       *openai.Client
	tokenCounter *TokenCounter
}

func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &openAIProvider{
		BaseProvider: BaseProvider{model: model},
		client:       openai.NewClientWithConfig(clientConfig),
		tokenCounter: NewTokenCounter(),
	}, nil
}

// DoRequest sends a chat completion request and returns the generated
// content with token usage.
func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := parseRequestOptions(opts, p.GetModel())

	req := openai.ChatCompletionRequest{
		Model:     options.model,
		MaxTokens: options.maxTokens,
		Messages:  buildOpenAIMessages(prompt, options),
	}
	if options.temperature != nil {
		req.Temperature = float32(*options.temperature)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", 0, 0, p.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, ErrNoResponseChoice
	}

	content := resp.Choices[0].Message.Content
	tokensIn := p.tokenCounter.CountOrEstimate(resp.Usage.PromptTokens, prompt)
	tokensOut := p.tokenCounter.CountOrEstimate(resp.Usage.CompletionTokens, content)

	return content, tokensIn, tokensOut, nil
}

func buildOpenAIMessages(prompt string, options requestOptions) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if options.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.system,
		})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

func (p *openAIProvider) wrapError(err error) error {
	if isContextError(err) {
		return classifyContextError(p.GetModel(), "openai", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(p.GetModel(), "openai", apiErr.HTTPStatusCode, err)
	}
	return classifyContextError(p.GetModel(), "openai", err)
}
