package api

import (
	"github.com/starford/reverie/internal/capture"
	"github.com/starford/reverie/internal/dreamstore"
	"github.com/starford/reverie/internal/journal"
	"github.com/starford/reverie/internal/models"
)

// CreateDreamRequest is the request body for saving a dream.
type CreateDreamRequest = journal.CreateInput

// Dream is a saved journal entry (aliased from the domain layer).
type Dream = models.Dream

// DreamListResponse wraps a dream listing.
type DreamListResponse struct {
	Dreams []Dream `json:"dreams" validate:"required"`
	Total  int     `json:"total" example:"42" validate:"required"`
}

// DayListResponse wraps dreams grouped by day, newest day first.
type DayListResponse struct {
	Days []dreamstore.Day `json:"days" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchResult `json:"results" validate:"required"`
}

// ImportRequest carries previously exported dreams.
type ImportRequest struct {
	Dreams []Dream `json:"dreams" validate:"required"`
}

// ImportResponse reports how many dreams were added.
type ImportResponse struct {
	Imported int `json:"imported" example:"3"`
}

// RecordingStatus is the voice capture state (aliased from the capture layer).
type RecordingStatus = capture.Status

// AudioUploadResponse is returned after a successful recording upload.
type AudioUploadResponse struct {
	AudioRef string `json:"audioRef" example:"audio/7c9e6679.webm" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/api/audio/7c9e6679.webm" validate:"required"`
}

// AudioListResponse wraps the saved recordings.
type AudioListResponse struct {
	Recordings []journal.Recording `json:"recordings" validate:"required"`
}
