package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	goanthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/artdocent/docent/internal/apperr"
	"github.com/artdocent/docent/internal/providers"
)

// Anthropic is a provider for Claude vision models
type Anthropic struct {
	apiKey  string
	baseURL string
}

// New returns a new Anthropic provider
func New(apiKey, baseURL string) *Anthropic {
	return &Anthropic{apiKey: apiKey, baseURL: baseURL}
}

func (a *Anthropic) Name() string { return "anthropic" }

// ExtractText sends the image as a base64 content block followed by the
// user prompt.
func (a *Anthropic) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if a.apiKey == "" {
		return "", apperr.Configuration(
			"Anthropic API key is not configured",
			"Server configuration error. Please ensure ANTHROPIC_API_KEY is set.",
			nil,
		)
	}

	opts := make([]goanthropic.ClientOption, 0, 1)
	if a.baseURL != "" {
		opts = append(opts, goanthropic.WithBaseURL(a.baseURL))
	}
	client := goanthropic.NewClient(a.apiKey, opts...)

	temperature := float32(config.Temperature)
	req := goanthropic.MessagesRequest{
		Model:       goanthropic.Model(config.Model),
		System:      config.SystemPrompt,
		MaxTokens:   config.MaxTokens,
		Temperature: &temperature,
		Messages: []goanthropic.Message{
			{
				Role: goanthropic.RoleUser,
				Content: []goanthropic.MessageContent{
					goanthropic.NewImageMessageContent(goanthropic.MessageContentSource{
						Type:      "base64",
						MediaType: config.MIMEType,
						Data:      base64.StdEncoding.EncodeToString(config.Image),
					}),
					goanthropic.NewTextMessageContent(config.Prompt),
				},
			},
		},
	}

	resp, err := client.CreateMessages(ctx, req)
	if err != nil {
		var apiErr *goanthropic.APIError
		if errors.As(err, &apiErr) && apiErr.IsAuthenticationErr() {
			return "", apperr.Configuration("Anthropic rejected the API key",
				"Server configuration error. Please ensure ANTHROPIC_API_KEY is set.", err)
		}
		return "", fmt.Errorf("failed to call Anthropic API: %w", err)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == goanthropic.MessagesContentTypeText {
			sb.WriteString(c.GetText())
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content returned from Anthropic")
	}

	return sb.String(), nil
}
