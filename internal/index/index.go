package index

import "github.com/starford/reverie/internal/models"

// DreamIndex defines the interface for journal indexing operations.
// Consumers depend on this interface rather than *DB so tests can swap in
// fakes.
type DreamIndex interface {
	ReplaceDreams(dreams []models.Dream, checksum string) error
	UpsertDream(d models.Dream) error
	DeleteDream(id string) error
	JournalChecksum() (string, error)
	Search(query string, limit int) ([]models.SearchResult, error)
	CountByDay(limit int) ([]DayCount, error)
	UpsertAudio(a AudioRow) error
	DeleteAudio(path string) error
	AudioChecksums() (map[string]string, error)
	ListAudio() ([]AudioRow, error)
	Close() error
}

// Verify *DB satisfies DreamIndex at compile time.
var _ DreamIndex = (*DB)(nil)
