// Package camera provides frame sources for a session. None of them stream;
// each hands out the current still on request.
package camera

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gabriel-vasile/mimetype"

	"github.com/artdocent/docent/internal/models"
)

// Encode turns raw image bytes into a data URI payload.
func Encode(data []byte) models.ImagePayload {
	mt := mimetype.Detect(data).String()
	return models.ImagePayload{
		Encoded:  "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data),
		MIMEType: mt,
	}
}

// File reads the frame from a path on every request, so a file replaced
// between captures yields the new image.
type File struct {
	Path string
}

func (f File) Frame(ctx context.Context) (models.ImagePayload, error) {
	if err := ctx.Err(); err != nil {
		return models.ImagePayload{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return models.ImagePayload{}, fmt.Errorf("failed to read frame %s: %w", f.Path, err)
	}
	return Encode(data), nil
}

// Download fetches an image over HTTP, reading at most maxBytes+1 bytes so
// an oversized body is reported rather than truncated.
func Download(ctx context.Context, client *http.Client, imageURL string, maxBytes int64) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("image at %s exceeds %d bytes", imageURL, maxBytes)
	}
	return data, nil
}
