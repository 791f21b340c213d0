package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/artdocent/docent/internal/bridge"
	"github.com/artdocent/docent/internal/logging"
	"github.com/artdocent/docent/internal/session"
	"github.com/artdocent/docent/internal/storage"
)

type sessionView struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	session.Snapshot
}

func view(e *storage.Entry) sessionView {
	return sessionView{ID: e.ID, Created: e.Created, Snapshot: e.Machine.Snapshot()}
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	entries := h.sessionStore.List()
	views := make([]sessionView, 0, len(entries))
	for _, e := range entries {
		views = append(views, view(e))
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	e := h.sessionStore.Create()
	logging.FromContext(r.Context()).Info("Session created", "session_id", e.ID)
	h.writeJSON(w, http.StatusCreated, view(e))
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	e, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, view(e))
}

// HandleCapture runs a capture of the uploaded frame. The frame belongs to
// this capture only; a concurrent upload is rejected by the machine.
func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	e, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	frame, ok := h.readFrame(w, r)
	if !ok {
		return
	}
	if _, err := e.Machine.CaptureFrame(r.Context(), frame); err != nil {
		h.writeTransitionError(w, r, e, err, "Failed to analyze artwork")
		return
	}
	h.writeJSON(w, http.StatusOK, view(e))
}

func (h *Handler) HandleStartConversation(w http.ResponseWriter, r *http.Request) {
	e, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := e.Machine.StartConversation(r.Context()); err != nil {
		h.writeTransitionError(w, r, e, err, "Failed to start conversation")
		return
	}
	h.writeJSON(w, http.StatusOK, view(e))
}

func (h *Handler) HandleEndConversation(w http.ResponseWriter, r *http.Request) {
	e, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := e.Machine.EndConversation(r.Context()); err != nil {
		h.writeTransitionError(w, r, e, err, "Failed to end conversation")
		return
	}
	h.writeJSON(w, http.StatusOK, view(e))
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	e, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := e.Machine.Reset(r.Context()); err != nil {
		h.writeTransitionError(w, r, e, err, "Failed to reset session")
		return
	}
	h.writeJSON(w, http.StatusOK, view(e))
}

// HandleDeleteSession resets the session if needed and forgets it.
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	e, ok := h.sessionStore.Delete(r.PathValue("id"))
	if !ok {
		h.writeError(w, r, "Session not found", http.StatusNotFound)
		return
	}
	if err := e.Machine.Reset(context.WithoutCancel(r.Context())); err != nil && !errors.Is(err, session.ErrRejected) {
		logging.FromContext(r.Context()).Warn("Reset on delete failed", "session_id", e.ID, "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTool runs a bridge tool against the session's artwork store. The
// response body is the tool's JSON text as-is.
func (h *Handler) HandleTool(w http.ResponseWriter, r *http.Request) {
	e, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	tools := bridge.New(e.Machine.Store(), logging.FromContext(r.Context()).With("session_id", e.ID))
	name := r.PathValue("name")
	if tools.Get(name) == nil {
		h.writeError(w, r, "Unknown tool: "+name, http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		h.writeError(w, r, "Failed to read request body", http.StatusBadRequest)
		return
	}
	var args map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			h.writeError(w, r, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	out, err := tools.Execute(r.Context(), name, args)
	if err != nil {
		h.writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := io.WriteString(w, out); err != nil {
		logging.FromContext(r.Context()).Error("Unable to write tool result", "err", err)
	}
}

func (h *Handler) HandleListTools(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, bridge.New(nil, nil).List())
}

// writeTransitionError maps machine errors: rejected or stale transitions
// are conflicts, everything else goes through the error taxonomy.
func (h *Handler) writeTransitionError(w http.ResponseWriter, r *http.Request, e *storage.Entry, err error, fallback string) {
	if errors.Is(err, session.ErrRejected) || errors.Is(err, session.ErrStale) {
		logging.FromContext(r.Context()).Info("Transition refused", "session_id", e.ID, "err", err)
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	h.writeAppError(w, r, err, fallback)
}
