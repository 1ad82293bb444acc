// Package models holds the records shared by the store, capture and
// transport layers.
package models

import "time"

// Dream is one saved journal entry. Records are immutable once created;
// the only mutation the journal supports is deletion.
type Dream struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Date     string `json:"date"` // YYYY-MM-DD
	Time     string `json:"time"` // 03:04 PM
	AudioRef string `json:"audioRef,omitempty"`
}

// DateLayout and TimeLayout are the formats of Dream.Date and Dream.Time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "03:04 PM"
)

// Artifact is the finalised output of a recording session.
type Artifact struct {
	Data       []byte
	MIMEType   string
	Seconds    int
	Transcript string
}

// FileMetadata describes a file held by a storage provider.
type FileMetadata struct {
	Path      string
	Checksum  string
	Size      int64
	UpdatedAt time.Time
}

// SearchResult is a single hit from the search index.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}
