package openai

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/artdocent/docent/internal/apperr"
	"github.com/artdocent/docent/internal/providers"
)

// OpenAI is a provider for OpenAI vision models
type OpenAI struct {
	apiKey  string
	baseURL string
}

// New returns a new OpenAI provider. An empty apiKey is reported lazily on
// the first request.
func New(apiKey, baseURL string) *OpenAI {
	return &OpenAI{apiKey: apiKey, baseURL: baseURL}
}

func (o *OpenAI) Name() string { return "openai" }

// ExtractText sends the system prompt, the user prompt and the image to the
// chat completions API and returns the first choice's text.
func (o *OpenAI) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if o.apiKey == "" {
		return "", apperr.Configuration(
			"OpenAI API key is not configured",
			"Server configuration error. Please ensure OPENAI_API_KEY is set.",
			nil,
		)
	}

	cfg := goopenai.DefaultConfig(o.apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	client := goopenai.NewClientWithConfig(cfg)

	req := goopenai.ChatCompletionRequest{
		Model:     config.Model,
		MaxTokens: config.MaxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: config.SystemPrompt,
			},
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{
						Type: goopenai.ChatMessagePartTypeText,
						Text: config.Prompt,
					},
					{
						Type: goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{
							URL:    config.ImageURL,
							Detail: goopenai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	}
	if config.Temperature > 0 {
		req.Temperature = float32(config.Temperature)
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 401 {
			return "", apperr.Configuration("OpenAI rejected the API key",
				"Server configuration error. Please ensure OPENAI_API_KEY is set.", err)
		}
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
