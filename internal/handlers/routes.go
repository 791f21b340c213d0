package handlers

import (
	"log/slog"
	"net/http"
)

// Routes returns the full HTTP surface wrapped in middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /analyze", h.HandleAnalyze)
	mux.HandleFunc("GET /analyze", h.HandleHealth)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	mux.HandleFunc("GET /api/tools", h.HandleListTools)
	mux.HandleFunc("GET /api/sessions", h.HandleListSessions)
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/capture", h.HandleCapture)
	mux.HandleFunc("POST /api/sessions/{id}/conversation", h.HandleStartConversation)
	mux.HandleFunc("DELETE /api/sessions/{id}/conversation", h.HandleEndConversation)
	mux.HandleFunc("POST /api/sessions/{id}/reset", h.HandleReset)
	mux.HandleFunc("POST /api/sessions/{id}/tools/{name}", h.HandleTool)

	return chainMiddlewares(mux, withRequestID, withLogging, withCORS)
}
