package api

import (
	"context"
	"net/http"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/capture"
)

// Recorder drives voice capture sessions.
type Recorder interface {
	Begin(ctx context.Context) (capture.Status, error)
	Pause() (capture.Status, error)
	Resume() (capture.Status, error)
	Stop() (capture.Status, error)
	Status() capture.Status
}

// RecordingHandler exposes the capture session state machine over HTTP.
type RecordingHandler struct {
	rec Recorder
}

// NewRecordingHandler creates a RecordingHandler. rec may be nil.
func NewRecordingHandler(rec Recorder) *RecordingHandler {
	return &RecordingHandler{rec: rec}
}

func (h *RecordingHandler) available(w http.ResponseWriter) bool {
	if h.rec == nil {
		writeError(w, "recording", apperr.ErrDeviceUnavailable)
		return false
	}
	return true
}

// Status handles GET /api/recording.
//
//	@Summary		Current recording state
//	@Tags			recording
//	@Produce		json
//	@Success		200	{object}	RecordingStatus
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recording [get]
func (h *RecordingHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	writeJSON(w, http.StatusOK, h.rec.Status())
}

// Start handles POST /api/recording/start.
//
//	@Summary		Acquire the microphone and start recording
//	@Tags			recording
//	@Produce		json
//	@Success		200	{object}	RecordingStatus
//	@Failure		409	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recording/start [post]
func (h *RecordingHandler) Start(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	h.respond(w, "start recording")(h.rec.Begin(r.Context()))
}

// Pause handles POST /api/recording/pause.
//
//	@Summary		Pause the active recording
//	@Tags			recording
//	@Produce		json
//	@Success		200	{object}	RecordingStatus
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recording/pause [post]
func (h *RecordingHandler) Pause(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	h.respond(w, "pause recording")(h.rec.Pause())
}

// Resume handles POST /api/recording/resume.
//
//	@Summary		Resume a paused recording
//	@Tags			recording
//	@Produce		json
//	@Success		200	{object}	RecordingStatus
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recording/resume [post]
func (h *RecordingHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	h.respond(w, "resume recording")(h.rec.Resume())
}

// Stop handles POST /api/recording/stop. The finished audio becomes the
// pending recording for the next saved dream.
//
//	@Summary		Stop recording and keep the audio
//	@Tags			recording
//	@Produce		json
//	@Success		200	{object}	RecordingStatus
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recording/stop [post]
func (h *RecordingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	h.respond(w, "stop recording")(h.rec.Stop())
}

func (h *RecordingHandler) respond(w http.ResponseWriter, op string) func(capture.Status, error) {
	return func(st capture.Status, err error) {
		if err != nil {
			writeError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
