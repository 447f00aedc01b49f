package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/lueurxax/feed-digest/internal/platform/config"
)

// Google model constants.
const (
	// ModelGeminiFlashLite is the cheapest/fastest Google model.
	ModelGeminiFlashLite = "gemini-2.5-flash-lite"

	defaultGoogleModel = ModelGeminiFlashLite
)

// sanitizeUTF8 removes or replaces invalid UTF-8 sequences from a string.
// Google's protobuf API requires valid UTF-8, and fetched articles may contain invalid bytes.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var builder strings.Builder

	builder.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			builder.WriteRune(utf8.RuneError)

			i++
		} else {
			builder.WriteRune(r)

			i += size
		}
	}

	return builder.String()
}

// googleProvider implements the Provider interface for Google Gemini.
type googleProvider struct {
	apiKey string
	model  string
	client *genai.Client
	logger *zerolog.Logger
}

// NewGoogleProvider creates a new Google Gemini LLM provider.
func NewGoogleProvider(ctx context.Context, cfg *config.LLMConfig, logger *zerolog.Logger) (*googleProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GoogleAPIKey))
	if err != nil {
		return nil, fmt.Errorf("creating google genai client: %w", err)
	}

	model := cfg.GoogleModel
	if model == "" {
		model = defaultGoogleModel
	}

	return &googleProvider{
		apiKey: cfg.GoogleAPIKey,
		model:  model,
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Google client.
func (p *googleProvider) Close() error {
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			return fmt.Errorf("closing google genai client: %w", err)
		}
	}

	return nil
}

// Name returns the provider identifier.
func (p *googleProvider) Name() ProviderName {
	return ProviderGoogle
}

// IsAvailable returns true if the provider is configured and available.
func (p *googleProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Priority returns the provider priority.
func (p *googleProvider) Priority() int {
	return PrioritySecondFallback
}

func (p *googleProvider) Model() string {
	return p.model
}

// Complete implements Provider interface. Chat turns are flattened into a
// single prompt; the system prompt becomes the system instruction.
func (p *googleProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	genModel := p.client.GenerativeModel(p.model)
	genModel.SetTemperature(float32(req.Temperature))
	genModel.SetMaxOutputTokens(int32(req.MaxTokens)) //nolint:gosec // bounded by config
	genModel.ResponseMIMEType = "application/json"

	if req.SystemPrompt != "" {
		genModel.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(sanitizeUTF8(req.SystemPrompt))},
		}
	}

	parts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts = append(parts, m.Content)
	}

	resp, err := genModel.GenerateContent(ctx, genai.Text(sanitizeUTF8(strings.Join(parts, "\n\n"))))
	if err != nil {
		return Completion{}, fmt.Errorf(errGoogleGenAI, err)
	}

	completion := Completion{
		Text:  extractGoogleResponseText(resp),
		Model: p.model,
	}

	if resp.UsageMetadata != nil {
		completion.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		completion.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	for _, candidate := range resp.Candidates {
		if candidate.FinishReason == genai.FinishReasonMaxTokens {
			p.logger.Warn().
				Str(logKeyModel, p.model).
				Int("max_tokens", req.MaxTokens).
				Msg(logMsgTruncated)
		}
	}

	return completion, nil
}

func extractGoogleResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var result strings.Builder

	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					result.WriteString(string(text))
				}
			}
		}
	}

	return result.String()
}

// Ensure googleProvider implements Provider interface.
var _ Provider = (*googleProvider)(nil)
