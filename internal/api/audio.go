package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/reverie/internal/journal"
)

// AudioHandler serves and accepts recorded audio.
type AudioHandler struct {
	svc *journal.Service
}

// NewAudioHandler creates an AudioHandler.
func NewAudioHandler(svc *journal.Service) *AudioHandler {
	return &AudioHandler{svc: svc}
}

// Upload handles POST /api/audio (multipart/form-data, field "file").
// Browser clients record locally and upload the finished blob here, then
// reference the returned audioRef when saving the dream.
//
//	@Summary		Upload a recording
//	@Tags			audio
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Audio file"
//	@Success		201		{object}	AudioUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		413		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/audio [post]
func (h *AudioHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, journal.MaxAudioBytes+1<<20)

	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("file too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}
	rec, err := h.svc.SaveAudio(r.Context(), data)
	if err != nil {
		writeError(w, "save audio", err)
		return
	}
	writeJSON(w, http.StatusCreated, AudioUploadResponse{
		AudioRef: rec.AudioRef,
		Size:     rec.Size,
		URL:      "/api/" + rec.AudioRef,
	})
}

// List handles GET /api/audio.
//
//	@Summary		List saved recordings
//	@Tags			audio
//	@Produce		json
//	@Success		200	{object}	AudioListResponse
//	@Security		BearerAuth
//	@Router			/audio [get]
func (h *AudioHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Recordings(r.Context())
	if err != nil {
		writeError(w, "list audio", err)
		return
	}
	if recs == nil {
		recs = []journal.Recording{}
	}
	writeJSON(w, http.StatusOK, AudioListResponse{Recordings: recs})
}

// Serve handles GET /api/audio/{name}.
func (h *AudioHandler) Serve(w http.ResponseWriter, r *http.Request) {
	abs, err := h.svc.AudioPath(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "serve audio", err)
		return
	}
	http.ServeFile(w, r, abs)
}
