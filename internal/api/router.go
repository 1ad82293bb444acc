package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/reverie/internal/journal"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// rec drives voice capture; when nil the recording routes answer 503.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *journal.Service, rec Recorder, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	rh := NewRecordingHandler(rec)
	ah := NewAudioHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Journal.
	r.Get("/dreams", h.ListDreams)
	r.Get("/dreams/days", h.ListDays)
	r.Post("/dreams", h.CreateDream)
	r.Get("/dreams/{id}", h.GetDream)
	r.Delete("/dreams/{id}", h.DeleteDream)
	r.Post("/dreams/import", h.ImportDreams)
	r.Get("/stats", h.Stats)

	// Search.
	r.Get("/search", h.Search)

	// Voice capture.
	r.Get("/recording", rh.Status)
	r.Post("/recording/start", rh.Start)
	r.Post("/recording/pause", rh.Pause)
	r.Post("/recording/resume", rh.Resume)
	r.Post("/recording/stop", rh.Stop)

	// Recorded audio.
	r.Get("/audio", ah.List)
	r.Post("/audio", ah.Upload)
	r.Get("/audio/{name}", ah.Serve)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
