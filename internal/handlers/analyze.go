package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/artdocent/docent/internal/artwork"
	"github.com/artdocent/docent/internal/models"
)

const invalidImageData = "Invalid request: imageData is required and must be a base64 string"

type analyzeRequest struct {
	ImageData string `json:"imageData"`
}

type analyzeResponse struct {
	Success        bool                  `json:"success"`
	Identified     bool                  `json:"identified"`
	InDatabase     bool                  `json:"inDatabase"`
	Identification models.Identification `json:"identification"`
	Artwork        models.Artwork        `json:"artwork"`
	Message        string                `json:"message"`
}

var providerNames = map[string]string{
	"openai":    "OpenAI Vision",
	"gemini":    "Google Gemini",
	"anthropic": "Anthropic Claude",
	"ollama":    "Ollama",
}

// HandleAnalyze identifies one image without touching any session.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeImageData(w, r)
	if !ok {
		return
	}

	res, err := h.analyzer.Identify(r.Context(), payload)
	if err != nil {
		h.writeAppError(w, r, err, "Failed to analyze artwork")
		return
	}

	name, ok := providerNames[res.Provider]
	if !ok {
		name = res.Provider
	}

	h.writeJSON(w, http.StatusOK, analyzeResponse{
		Success:        true,
		Identified:     true,
		InDatabase:     true,
		Identification: res.Identification,
		Artwork:        artwork.FromIdentification(res.Identification),
		Message:        fmt.Sprintf("Artwork successfully identified using %s.", name),
	})
}

// decodeImageData reads {imageData} from the body, writing a 400 when it
// is absent, malformed or larger than the body limit.
func (h *Handler) decodeImageData(w http.ResponseWriter, r *http.Request) (models.ImagePayload, bool) {
	// base64 inflates by 4/3; allow headroom for the JSON envelope.
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxImageBytes)*4/3+64*1024)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBodyError(w, r, err)
		return models.ImagePayload{}, false
	}
	if req.ImageData == "" {
		h.writeError(w, r, invalidImageData, http.StatusBadRequest)
		return models.ImagePayload{}, false
	}
	return models.ImagePayload{Encoded: req.ImageData}, true
}

// HandleHealth reports liveness of the analyze service.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   "analyze-artwork",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
