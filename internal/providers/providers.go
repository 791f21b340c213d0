package providers

import (
	"context"
)

// Config represents the configuration for a single vision request
type Config struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	Prompt       string

	// Image is the decoded frame; ImageURL is the same frame as a data URI.
	Image    []byte
	MIMEType string
	ImageURL string
}

// Provider defines the interface for a vision-capable LLM provider
type Provider interface {
	Name() string
	ExtractText(ctx context.Context, config Config) (string, error)
}
