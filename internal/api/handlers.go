package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/reverie/internal/dreamstore"
	"github.com/starford/reverie/internal/journal"
	"github.com/starford/reverie/internal/models"
)

const maxJSONBytes = 10 << 20

// Handler holds journal route handlers.
type Handler struct {
	svc *journal.Service
	now func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(svc *journal.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// filterFrom reads the since/until query parameters.
func (h *Handler) filterFrom(r *http.Request) (dreamstore.Filter, error) {
	q := r.URL.Query()
	return dreamstore.ParseFilter(q.Get("since"), q.Get("until"), h.now())
}

// ListDreams handles GET /api/dreams.
//
//	@Summary		List dreams newest first
//	@Tags			dreams
//	@Produce		json
//	@Param			since	query		string	false	"Earliest day (YYYY-MM-DD or a phrase like 'last week')"
//	@Param			until	query		string	false	"Latest day"
//	@Success		200		{object}	DreamListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dreams [get]
func (h *Handler) ListDreams(w http.ResponseWriter, r *http.Request) {
	f, err := h.filterFrom(r)
	if err != nil {
		writeError(w, "list dreams", err)
		return
	}
	dreams := h.svc.List(r.Context(), f)
	writeJSON(w, http.StatusOK, DreamListResponse{Dreams: dreams, Total: len(dreams)})
}

// ListDays handles GET /api/dreams/days.
//
//	@Summary		List dreams grouped by day
//	@Tags			dreams
//	@Produce		json
//	@Param			since	query		string	false	"Earliest day"
//	@Param			until	query		string	false	"Latest day"
//	@Success		200		{object}	DayListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dreams/days [get]
func (h *Handler) ListDays(w http.ResponseWriter, r *http.Request) {
	f, err := h.filterFrom(r)
	if err != nil {
		writeError(w, "list days", err)
		return
	}
	writeJSON(w, http.StatusOK, DayListResponse{Days: h.svc.Days(r.Context(), f)})
}

// GetDream handles GET /api/dreams/{id}.
//
//	@Summary		Get a single dream
//	@Tags			dreams
//	@Produce		json
//	@Param			id	path		string	true	"Dream id"
//	@Success		200	{object}	Dream
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dreams/{id} [get]
func (h *Handler) GetDream(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get dream", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CreateDream handles POST /api/dreams.
//
//	@Summary		Save a new dream
//	@Tags			dreams
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDreamRequest	true	"Dream to save"
//	@Success		201		{object}	Dream
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dreams [post]
func (h *Handler) CreateDream(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	var req CreateDreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	d, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, "create dream", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// DeleteDream handles DELETE /api/dreams/{id}.
// Unknown ids are not an error.
//
//	@Summary		Delete a dream
//	@Tags			dreams
//	@Param			id	path	string	true	"Dream id"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/dreams/{id} [delete]
func (h *Handler) DeleteDream(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete dream", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportDreams handles POST /api/dreams/import.
//
//	@Summary		Merge previously exported dreams
//	@Tags			dreams
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ImportRequest	true	"Dreams to merge"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dreams/import [post]
func (h *Handler) ImportDreams(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	n, err := h.svc.Import(r.Context(), req.Dreams)
	if err != nil {
		writeError(w, "import dreams", err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Imported: n})
}

// Search handles GET /api/search?q=...
//
//	@Summary		Full-text search over dream titles and content
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q parameter is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Stats handles GET /api/stats.
//
//	@Summary		Dream counts per day
//	@Tags			dreams
//	@Produce		json
//	@Param			limit	query	int	false	"Number of days"
//	@Success		200		{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	days, err := h.svc.Stats(r.Context(), limit)
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}
