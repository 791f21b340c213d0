package identify

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artdocent/docent/internal/apperr"
	"github.com/artdocent/docent/internal/models"
	"github.com/artdocent/docent/internal/providers"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeProvider struct {
	text  string
	err   error
	delay time.Duration
	calls atomic.Int32
	last  providers.Config
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) ExtractText(ctx context.Context, cfg providers.Config) (string, error) {
	f.calls.Add(1)
	f.last = cfg
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func pngPayload() models.ImagePayload {
	return models.ImagePayload{Encoded: base64.StdEncoding.EncodeToString(pngHeader)}
}

func TestValidate(t *testing.T) {
	c := NewClient(&fakeProvider{}, Options{})

	tests := []struct {
		name    string
		payload models.ImagePayload
		wantErr bool
	}{
		{"empty", models.ImagePayload{}, true},
		{"whitespace", models.ImagePayload{Encoded: "   "}, true},
		{"not base64", models.ImagePayload{Encoded: "%%%not-base64%%%"}, true},
		{"not an image", models.ImagePayload{Encoded: base64.StdEncoding.EncodeToString([]byte("hello world, plain text"))}, true},
		{"data uri without base64", models.ImagePayload{Encoded: "data:image/png,abc"}, true},
		{"raw base64 png", pngPayload(), false},
		{"data uri png", models.ImagePayload{Encoded: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := c.Validate(tt.payload)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.KindValidation, apperr.Classify(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "image/png", img.MIMEType)
			assert.True(t, strings.HasPrefix(img.DataURI, "data:image/png;base64,"))
			assert.Equal(t, pngHeader, img.Data)
		})
	}
}

func TestIdentifyRejectsOversizedBeforeNetwork(t *testing.T) {
	provider := &fakeProvider{text: "Name: X"}
	c := NewClient(provider, Options{})

	// 14M base64 characters estimate to 10.5MB decoded.
	huge := models.ImagePayload{Encoded: strings.Repeat("A", 14*1024*1024)}
	_, err := c.Identify(context.Background(), huge)

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.Classify(err))
	assert.Contains(t, err.Error(), "Image too large")
	assert.Zero(t, provider.calls.Load(), "provider must not be called")
}

func TestIdentifyRejectsFractionalOverage(t *testing.T) {
	provider := &fakeProvider{text: "Name: X"}
	c := NewClient(provider, Options{MaxImageBytes: 3})

	// 5 characters estimate to 3.75 bytes, over a 3 byte limit.
	_, err := c.Identify(context.Background(), models.ImagePayload{Encoded: "AAAAA"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.Classify(err))
	assert.Zero(t, provider.calls.Load())

	_, err = c.Validate(models.ImagePayload{Encoded: "AAAA"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "Image too large")
}

func TestIdentify(t *testing.T) {
	provider := &fakeProvider{text: "Name: Father Hidalgo\nArtist: José Clemente Orozco\nYear: 1949\nMedium: Fresco\nConfidence: high"}
	c := NewClient(provider, Options{Model: "gpt-4o"})

	res, err := c.Identify(context.Background(), pngPayload())
	require.NoError(t, err)

	assert.Equal(t, "Father Hidalgo", res.Identification.Name)
	assert.Equal(t, models.ConfidenceHigh, res.Identification.Confidence)
	assert.Equal(t, provider.text, res.RawText)
	assert.NotEmpty(t, res.CaptureID)
	assert.Equal(t, "fake", res.Provider)

	assert.Equal(t, SystemPrompt, provider.last.SystemPrompt)
	assert.Equal(t, UserPrompt, provider.last.Prompt)
	assert.Equal(t, DefaultMaxTokens, provider.last.MaxTokens)
	assert.Equal(t, "gpt-4o", provider.last.Model)
}

func TestIdentifyClassifiesFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"api key message", errors.New("Incorrect API key provided: sk-xxx"), apperr.KindConfiguration},
		{"already configuration", apperr.Configuration("missing", "set it", nil), apperr.KindConfiguration},
		{"generic", errors.New("connection reset by peer"), apperr.KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(&fakeProvider{err: tt.err}, Options{})
			_, err := c.Identify(context.Background(), pngPayload())
			require.Error(t, err)
			assert.Equal(t, tt.want, apperr.Classify(err))
			assert.Contains(t, err.Error(), tt.err.Error())
		})
	}
}

func TestIdentifyTimeout(t *testing.T) {
	c := NewClient(&fakeProvider{delay: time.Second}, Options{Timeout: 20 * time.Millisecond})

	_, err := c.Identify(context.Background(), pngPayload())
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.Classify(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIdentifyUnparseableAnswerStillSucceeds(t *testing.T) {
	c := NewClient(&fakeProvider{text: "I am not sure what this is."}, Options{})

	res, err := c.Identify(context.Background(), pngPayload())
	require.NoError(t, err)
	assert.Equal(t, models.Unknown, res.Identification.Name)
	assert.Equal(t, models.Unknown, res.Identification.Artist)
	assert.Equal(t, models.ConfidenceLow, res.Identification.Confidence)
}
