package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/lueurxax/feed-digest/internal/core/ports"
	"github.com/lueurxax/feed-digest/internal/platform/config"
	"github.com/lueurxax/feed-digest/internal/platform/retry"
)

const defaultOpenAIModel = "gpt-4o-mini"

// ErrEmptyCompletion indicates a provider answered without any choices.
var ErrEmptyCompletion = errors.New("completion has no choices")

// openaiProvider implements the Provider interface for OpenAI chat models.
type openaiProvider struct {
	apiKey string
	model  string
	client *openai.Client
	logger *zerolog.Logger
}

// NewOpenAIProvider creates a new OpenAI LLM provider.
func NewOpenAIProvider(cfg *config.LLMConfig, logger *zerolog.Logger) *openaiProvider {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &openaiProvider{
		apiKey: cfg.APIKey,
		model:  model,
		client: openai.NewClient(cfg.APIKey),
		logger: logger,
	}
}

// Name returns the provider identifier.
func (p *openaiProvider) Name() ProviderName {
	return ProviderOpenAI
}

// IsAvailable returns true if the provider is configured and available.
func (p *openaiProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Priority returns the provider priority.
func (p *openaiProvider) Priority() int {
	return PriorityPrimary
}

func (p *openaiProvider) Model() string {
	return p.model
}

// Complete implements Provider interface.
func (p *openaiProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == ports.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}

		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf(errOpenAIChatCompletion, withOpenAIStatus(err))
	}

	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf(errOpenAIChatCompletion, ErrEmptyCompletion)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		p.logger.Warn().
			Str(logKeyModel, p.model).
			Int("max_tokens", req.MaxTokens).
			Msg(logMsgTruncated)
	}

	return Completion{
		Text:             choice.Message.Content,
		Model:            p.model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// withOpenAIStatus exposes the HTTP status of an API error to the retry predicate.
func withOpenAIStatus(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &retry.StatusError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &retry.StatusError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	return err
}

// Ensure openaiProvider implements Provider interface.
var _ Provider = (*openaiProvider)(nil)
