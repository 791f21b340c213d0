// Package identify turns a captured frame into a structured artwork
// identification using a vision model.
package identify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/xid"

	"github.com/artdocent/docent/internal/apperr"
	"github.com/artdocent/docent/internal/models"
	"github.com/artdocent/docent/internal/providers"
)

const (
	DefaultMaxImageBytes = 10 * 1024 * 1024
	DefaultTimeout       = 30 * time.Second
	DefaultMaxTokens     = 500

	UserPrompt = "Please identify this artwork with as much detail as possible."
)

// SystemPrompt fixes the output format the parser expects.
const SystemPrompt = `You are an expert art historian specializing in identifying artworks.
When shown an image of an artwork, identify it by providing:
1. The exact name of the artwork
2. The artist's full name
3. The year it was created (if known)
4. The medium (e.g., oil on canvas, fresco, sculpture)

Format your response as:
Name: [exact artwork name]
Artist: [artist full name]
Year: [year or "Unknown"]
Medium: [medium or "Unknown"]
Confidence: [high/medium/low]

If you cannot identify the specific artwork, provide your best assessment and mark confidence as low.`

// Result is a successful identification.
type Result struct {
	CaptureID      string
	Identification models.Identification
	RawText        string
	Provider       string
	Model          string
	Duration       time.Duration

	// Degraded lists fields the parser had to default.
	Degraded []string
}

// Options tune a Client. Zero values fall back to the defaults above.
type Options struct {
	Model         string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
	MaxImageBytes int
	Logger        *slog.Logger
}

// Client validates image payloads and runs them through a vision provider.
type Client struct {
	provider providers.Provider
	opts     Options
	logger   *slog.Logger
}

// NewClient returns a Client backed by provider.
func NewClient(provider providers.Provider, opts Options) *Client {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{provider: provider, opts: opts, logger: logger}
}

// Image is a validated, decoded payload.
type Image struct {
	Data     []byte
	MIMEType string
	DataURI  string
}

// Validate checks presence, size and format of p without touching the
// network. Every failure is a *apperr.ValidationError.
func (c *Client) Validate(p models.ImagePayload) (*Image, error) {
	encoded := strings.TrimSpace(p.Encoded)
	if encoded == "" {
		return nil, apperr.Validation("Invalid request: imageData is required and must be a base64 string")
	}

	if (models.ImagePayload{Encoded: encoded}).Exceeds(c.opts.MaxImageBytes) {
		return nil, apperr.Validation("Image too large. Please upload an image smaller than %dMB.", c.opts.MaxImageBytes/(1024*1024))
	}

	body := encoded
	if strings.HasPrefix(body, "data:") {
		header, rest, ok := strings.Cut(body, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, apperr.Validation("Invalid request: imageData must be a base64 data URI")
		}
		body = rest
	}

	data, err := decodeBase64(body)
	if err != nil {
		return nil, &apperr.ValidationError{Message: "Invalid request: imageData is not valid base64", Err: err}
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, apperr.Validation("Invalid request: imageData is not an image (detected %s)", mt.String())
	}

	return &Image{
		Data:     data,
		MIMEType: mt.String(),
		DataURI:  "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

// Identify validates p, calls the vision model once, and parses its answer.
func (c *Client) Identify(ctx context.Context, p models.ImagePayload) (*Result, error) {
	img, err := c.Validate(p)
	if err != nil {
		return nil, err
	}

	captureID := xid.New().String()
	logger := c.logger.With("capture_id", captureID, "provider", c.provider.Name(), "model", c.opts.Model)
	logger.Info("Starting artwork identification", "mime_type", img.MIMEType, "bytes", len(img.Data))

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	start := time.Now()
	text, err := c.provider.ExtractText(ctx, providers.Config{
		Model:        c.opts.Model,
		Temperature:  c.opts.Temperature,
		MaxTokens:    c.opts.MaxTokens,
		SystemPrompt: SystemPrompt,
		Prompt:       UserPrompt,
		Image:        img.Data,
		MIMEType:     img.MIMEType,
		ImageURL:     img.DataURI,
	})
	if err != nil {
		classified := c.classify(ctx, err)
		logger.Error("Artwork identification failed", "kind", apperr.Classify(classified), "err", err)
		return nil, classified
	}

	id, defaulted := Parse(text)
	if len(defaulted) > 0 {
		logger.Info("Identification degraded to defaults", "fields", defaulted)
	}
	logger.Info("Artwork identified",
		"name", id.Name,
		"artist", id.Artist,
		"year", id.Year,
		"medium", id.Medium,
		"confidence", id.Confidence,
		"duration", time.Since(start))

	return &Result{
		CaptureID:      captureID,
		Identification: id,
		RawText:        text,
		Provider:       c.provider.Name(),
		Model:          c.opts.Model,
		Duration:       time.Since(start),
		Degraded:       defaulted,
	}, nil
}

// classify maps a provider failure onto the error taxonomy. Credential
// problems are recognised by the "API key" substring in the upstream
// message.
func (c *Client) classify(ctx context.Context, err error) error {
	if k := apperr.Classify(err); k == apperr.KindConfiguration || k == apperr.KindValidation {
		return err
	}
	if strings.Contains(err.Error(), "API key") {
		return apperr.Configuration("Vision model credentials were rejected",
			"Server configuration error. Please ensure the vision provider API key is set.", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Upstream(fmt.Sprintf("Vision model did not answer within %s", c.opts.Timeout), err)
	}
	return apperr.Upstream("Failed to analyze artwork", err)
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
