package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/artdocent/docent/internal/camera"
	"github.com/artdocent/docent/internal/models"
)

type frameRequest struct {
	ImageData string `json:"imageData"`
	ImageURL  string `json:"imageUrl"`
}

// readFrame extracts the frame for a capture. JSON bodies carry either
// base64 imageData or an imageUrl to fetch; anything else is treated as a
// multipart upload.
func (h *Handler) readFrame(w http.ResponseWriter, r *http.Request) (models.ImagePayload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxImageBytes)*4/3+64*1024)

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return h.readJSONFrame(w, r)
	}
	return h.readFileFrame(w, r)
}

func (h *Handler) readJSONFrame(w http.ResponseWriter, r *http.Request) (models.ImagePayload, bool) {
	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBodyError(w, r, err)
		return models.ImagePayload{}, false
	}

	switch {
	case req.ImageData != "":
		return models.ImagePayload{Encoded: req.ImageData}, true
	case req.ImageURL != "":
		data, err := camera.Download(r.Context(), nil, req.ImageURL, int64(h.maxImageBytes))
		if err != nil {
			h.writeError(w, r, "Failed to fetch imageUrl: "+err.Error(), http.StatusBadRequest)
			return models.ImagePayload{}, false
		}
		return camera.Encode(data), true
	default:
		h.writeError(w, r, invalidImageData, http.StatusBadRequest)
		return models.ImagePayload{}, false
	}
}

func (h *Handler) readFileFrame(w http.ResponseWriter, r *http.Request) (models.ImagePayload, bool) {
	file, _, err := r.FormFile("file")
	if err != nil {
		file, _, err = r.FormFile("files")
		if err != nil {
			h.writeBodyError(w, r, err)
			return models.ImagePayload{}, false
		}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, "Failed to read file contents: "+err.Error(), http.StatusBadRequest)
		return models.ImagePayload{}, false
	}
	if len(data) > h.maxImageBytes {
		h.writeError(w, r, h.tooLargeMessage(), http.StatusBadRequest)
		return models.ImagePayload{}, false
	}
	return camera.Encode(data), true
}

func (h *Handler) writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.writeError(w, r, h.tooLargeMessage(), http.StatusBadRequest)
		return
	}
	h.writeError(w, r, invalidImageData, http.StatusBadRequest)
}

func (h *Handler) tooLargeMessage() string {
	return fmt.Sprintf("Image too large. Please upload an image smaller than %dMB.", h.maxImageBytes/(1024*1024))
}
