// Package vision builds the configured vision provider and the
// identification client around it.
package vision

import (
	"fmt"
	"log/slog"

	"github.com/artdocent/docent/internal/anthropic"
	"github.com/artdocent/docent/internal/config"
	"github.com/artdocent/docent/internal/gemini"
	"github.com/artdocent/docent/internal/identify"
	"github.com/artdocent/docent/internal/ollama"
	"github.com/artdocent/docent/internal/openai"
	"github.com/artdocent/docent/internal/providers"
)

// NewProvider returns the provider named by cfg.Provider. Credentials are
// not checked here; a missing key fails on the first request.
func NewProvider(cfg config.VisionConfig) (providers.Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL), nil
	case "gemini":
		return gemini.New(cfg.Gemini.APIKey), nil
	case "anthropic":
		return anthropic.New(cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL), nil
	case "ollama":
		return ollama.New(cfg.Ollama.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported vision provider: %s", cfg.Provider)
	}
}

// NewClient returns an identification client for cfg.
func NewClient(cfg config.VisionConfig, logger *slog.Logger) (*identify.Client, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return identify.NewClient(provider, identify.Options{
		Model:         cfg.Model(),
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		Timeout:       cfg.Timeout,
		MaxImageBytes: cfg.MaxImageBytes(),
		Logger:        logger,
	}), nil
}
