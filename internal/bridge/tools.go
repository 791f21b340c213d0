package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/artdocent/docent/internal/artwork"
	"github.com/artdocent/docent/internal/models"
)

// FetchResponse is the wire contract of fetchArtworkIdentification.
type FetchResponse struct {
	Success bool            `json:"success"`
	Artwork *ArtworkPayload `json:"artwork,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ArtworkPayload is the artwork as seen by the agent.
type ArtworkPayload struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Artist              string            `json:"artist"`
	Year                string            `json:"year"`
	Medium              string            `json:"medium"`
	Confidence          models.Confidence `json:"confidence"`
	ImageURL            string            `json:"imageUrl"`
	WikiArtURL          string            `json:"wikiartUrl"`
	Description         string            `json:"description"`
	ConversationContext string            `json:"conversationContext"`
}

// DiagnosticResponse acknowledges a logDiagnostic call.
type DiagnosticResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (b *Bridge) handleFetchArtwork(ctx context.Context, _ map[string]any) (string, error) {
	current := b.store.Read()
	if current == nil {
		b.logger.InfoContext(ctx, "Agent requested artwork before any capture")
		return encode(FetchResponse{Success: false, Error: NoArtworkMessage})
	}

	b.logger.InfoContext(ctx, "Returning artwork to agent", "artwork_id", current.ID, "name", current.Name)
	return encode(FetchResponse{
		Success: true,
		Artwork: &ArtworkPayload{
			ID:                  current.ID,
			Name:                current.Name,
			Artist:              current.Artist,
			Year:                current.Year,
			Medium:              current.Medium,
			Confidence:          current.Confidence,
			ImageURL:            current.ImageURL4K,
			WikiArtURL:          current.WikiArtURL,
			Description:         current.Description,
			ConversationContext: current.ConversationContext,
		},
		Message: artwork.Summary(*current),
	})
}

func (b *Bridge) handleLogDiagnostic(ctx context.Context, args map[string]any) (string, error) {
	message, ok := args["message"].(string)
	if !ok {
		return "", fmt.Errorf("%s: message must be a string", LogDiagnosticTool)
	}
	b.sink(ctx, message)
	return encode(DiagnosticResponse{Success: true})
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(data), nil
}
