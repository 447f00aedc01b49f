package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/lueurxax/feed-digest/internal/core/ports"
	"github.com/lueurxax/feed-digest/internal/platform/config"
	"github.com/lueurxax/feed-digest/internal/platform/retry"
)

// Anthropic model constants.
const (
	ModelClaudeHaiku = "claude-haiku-4-5"

	defaultAnthropicModel = ModelClaudeHaiku
	contentTypeText       = "text"
)

// anthropicProvider implements the Provider interface for Anthropic Claude.
type anthropicProvider struct {
	apiKey string
	model  string
	client anthropic.Client
	logger *zerolog.Logger
}

// NewAnthropicProvider creates a new Anthropic LLM provider.
func NewAnthropicProvider(cfg *config.LLMConfig, logger *zerolog.Logger) *anthropicProvider {
	model := cfg.AnthropicModel
	if model == "" {
		model = defaultAnthropicModel
	}

	return &anthropicProvider{
		apiKey: cfg.AnthropicAPIKey,
		model:  model,
		client: anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		logger: logger,
	}
}

// Name returns the provider identifier.
func (p *anthropicProvider) Name() ProviderName {
	return ProviderAnthropic
}

// IsAvailable returns true if the provider is configured and available.
func (p *anthropicProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Priority returns the provider priority.
func (p *anthropicProvider) Priority() int {
	return PriorityFallback
}

func (p *anthropicProvider) Model() string {
	return p.model
}

// Complete implements Provider interface.
func (p *anthropicProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))

	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == ports.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
			continue
		}

		messages = append(messages, anthropic.NewUserMessage(block))
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}

	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Completion{}, fmt.Errorf(errAnthropicMessages, withAnthropicStatus(err))
	}

	if resp.StopReason == anthropic.StopReasonMaxTokens {
		p.logger.Warn().
			Str(logKeyModel, p.model).
			Int("max_tokens", req.MaxTokens).
			Msg(logMsgTruncated)
	}

	return Completion{
		Text:             extractTextFromResponse(resp),
		Model:            p.model,
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func extractTextFromResponse(resp *anthropic.Message) string {
	var result strings.Builder

	for _, block := range resp.Content {
		if block.Type == contentTypeText {
			result.WriteString(block.Text)
		}
	}

	return result.String()
}

func withAnthropicStatus(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return &retry.StatusError{StatusCode: apiErr.StatusCode, Err: err}
	}

	return err
}

// Ensure anthropicProvider implements Provider interface.
var _ Provider = (*anthropicProvider)(nil)
