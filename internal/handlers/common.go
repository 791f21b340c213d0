// Package handlers serves the HTTP surface: POST /analyze, health checks
// and the session API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/artdocent/docent/internal/apperr"
	"github.com/artdocent/docent/internal/identify"
	"github.com/artdocent/docent/internal/logging"
	"github.com/artdocent/docent/internal/models"
	"github.com/artdocent/docent/internal/storage"
)

// Analyzer identifies a single image. *identify.Client satisfies it.
type Analyzer interface {
	Identify(ctx context.Context, p models.ImagePayload) (*identify.Result, error)
}

type Handler struct {
	analyzer      Analyzer
	sessionStore  *storage.SessionStore
	maxImageBytes int
}

func New(analyzer Analyzer, sessions *storage.SessionStore, maxImageBytes int) *Handler {
	if maxImageBytes <= 0 {
		maxImageBytes = identify.DefaultMaxImageBytes
	}
	return &Handler{
		analyzer:      analyzer,
		sessionStore:  sessions,
		maxImageBytes: maxImageBytes,
	}
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, message string, code int) {
	logging.FromContext(r.Context()).Warn(message, "status", code)
	h.writeJSON(w, code, errorResponse{Error: message})
}

// writeAppError renders err through the error taxonomy. Configuration
// details are logged for operators.
func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := logging.FromContext(r.Context())
	kind := apperr.Classify(err)
	body := errorResponse{Error: fallback, Details: err.Error()}

	var (
		ve *apperr.ValidationError
		ce *apperr.ConfigurationError
		ue *apperr.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		body = errorResponse{Error: ve.Message}
	case errors.As(err, &ce):
		body = errorResponse{Error: ce.Hint, Details: ce.Detail()}
		if body.Error == "" {
			body.Error = ce.Message
		}
		if body.Details == "" {
			body.Details = ce.Message
		}
		logger.Error("Configuration error", "err", err)
	case errors.As(err, &ue):
		body = errorResponse{Error: fallback, Details: ue.Detail()}
		if body.Details == "" {
			body.Details = ue.Message
		}
		logger.Error("Upstream failure", "err", err)
	default:
		logger.Error("Request failed", "err", err)
	}

	h.writeJSON(w, apperr.HTTPStatus(kind), body)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*storage.Entry, bool) {
	sessionID := r.PathValue("id")
	entry, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, r, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return entry, true
}
