// Package dreamstore keeps the dream journal: an ordered collection of
// records persisted as a single JSON blob through a storage.Provider.
package dreamstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/models"
	"github.com/starford/reverie/internal/storage"
)

// DefaultName is the blob key the journal is stored under.
const DefaultName = "dreamJournal.json"

// Store owns the dream collection. The zero value is not usable; construct
// with Open. Records are kept newest-created-first.
type Store struct {
	provider storage.Provider
	name     string
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger

	mu       sync.RWMutex
	dreams   []models.Dream
	checksum string
}

// Option configures a Store.
type Option func(*Store)

// WithName sets the blob key (path relative to the provider root).
func WithName(name string) Option {
	return func(s *Store) { s.name = name }
}

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDFunc overrides record id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open constructs a Store over provider and loads the persisted blob.
func Open(provider storage.Provider, opts ...Option) (*Store, error) {
	s := &Store{
		provider: provider,
		name:     DefaultName,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Name returns the blob key.
func (s *Store) Name() string { return s.name }

// draft is the user-supplied part of a new record.
type draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (d draft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required.Error("title is required")),
		validation.Field(&d.Content, validation.Required.Error("content is required")),
	)
}

// Create validates and stores a new record at the front of the collection.
// Title and content are trimmed first; an empty value after trimming fails
// with apperr.ErrValidation and leaves the collection untouched.
func (s *Store) Create(title, content, audioRef string) (models.Dream, error) {
	d := draft{Title: strings.TrimSpace(title), Content: strings.TrimSpace(content)}
	if err := d.Validate(); err != nil {
		return models.Dream{}, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}

	now := s.now()
	rec := models.Dream{
		ID:       s.newID(),
		Title:    d.Title,
		Content:  d.Content,
		Date:     now.Format(models.DateLayout),
		Time:     now.Format(models.TimeLayout),
		AudioRef: strings.TrimSpace(audioRef),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Dream, 0, len(s.dreams)+1)
	next = append(next, rec)
	next = append(next, s.dreams...)
	if err := s.persistLocked(next); err != nil {
		return models.Dream{}, err
	}
	return rec, nil
}

// Import adds already-stamped records (for example from a Markdown export)
// whose ids are not yet present, placing them among the existing records by
// date and time. It returns how many were added.
func (s *Store) Import(records []models.Dream) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.dreams))
	for _, d := range s.dreams {
		seen[d.ID] = true
	}
	var added []models.Dream
	for _, r := range records {
		r.Title = strings.TrimSpace(r.Title)
		r.Content = strings.TrimSpace(r.Content)
		if r.ID == "" {
			r.ID = s.newID()
		}
		if seen[r.ID] {
			continue
		}
		if err := (draft{Title: r.Title, Content: r.Content}).Validate(); err != nil {
			return 0, fmt.Errorf("%w: %s: %w", apperr.ErrValidation, r.ID, err)
		}
		if _, err := time.Parse(models.DateLayout, r.Date); err != nil {
			return 0, fmt.Errorf("%w: %s: bad date %q", apperr.ErrValidation, r.ID, r.Date)
		}
		seen[r.ID] = true
		added = append(added, r)
	}
	if len(added) == 0 {
		return 0, nil
	}
	if err := s.persistLocked(mergeByStamp(s.dreams, added)); err != nil {
		return 0, err
	}
	return len(added), nil
}

// mergeByStamp slots imported records among the existing ones by their
// date and time, newest first. Existing records keep their relative order
// and win ties.
func mergeByStamp(existing, added []models.Dream) []models.Dream {
	slices.SortStableFunc(added, func(a, b models.Dream) int {
		return stamp(b).Compare(stamp(a))
	})
	out := make([]models.Dream, 0, len(existing)+len(added))
	i, j := 0, 0
	for i < len(existing) || j < len(added) {
		if j < len(added) && (i == len(existing) || stamp(added[j]).After(stamp(existing[i]))) {
			out = append(out, added[j])
			j++
			continue
		}
		out = append(out, existing[i])
		i++
	}
	return out
}

// stamp is the moment a record was written down. A missing or malformed
// time counts as midnight of its date.
func stamp(d models.Dream) time.Time {
	if t, err := time.Parse(models.DateLayout+" "+models.TimeLayout, d.Date+" "+d.Time); err == nil {
		return t
	}
	t, _ := time.Parse(models.DateLayout, d.Date)
	return t
}

// Delete removes the record with id. An unknown id is a no-op and reports
// false without touching persistence.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, d := range s.dreams {
		if d.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	next := make([]models.Dream, 0, len(s.dreams)-1)
	next = append(next, s.dreams[:idx]...)
	next = append(next, s.dreams[idx+1:]...)
	if err := s.persistLocked(next); err != nil {
		return false, err
	}
	return true, nil
}

// List returns a snapshot of all records, newest first. Created records go
// to the front; imported ones are placed by their date and time.
func (s *Store) List() []models.Dream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Dream, len(s.dreams))
	copy(out, s.dreams)
	return out
}

// Get returns the record with id or apperr.ErrNotFound.
func (s *Store) Get(id string) (models.Dream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.dreams {
		if d.ID == id {
			return d, nil
		}
	}
	return models.Dream{}, fmt.Errorf("dreamstore: dream %s: %w", id, apperr.ErrNotFound)
}

// Len reports the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dreams)
}

// Days groups the current collection by calendar day.
func (s *Store) Days() []Day {
	return GroupByDay(s.List())
}

// Checksum returns the checksum of the blob last read or written.
func (s *Store) Checksum() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checksum
}

// Load replaces the collection with the persisted blob. A missing blob
// yields an empty journal. An unparsable blob is logged and also yields an
// empty journal; it is not an error. Only I/O failures are returned.
func (s *Store) Load() error {
	// Read under the lock so a concurrent write cannot land between the
	// read and the commit.
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.provider.Read(s.name)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("dreamstore: load: %w", err)
	}

	if err != nil {
		s.dreams = nil
		s.checksum = ""
		return nil
	}
	s.checksum = storage.Checksum(data)
	dreams, perr := decode(data)
	if perr != nil {
		s.logger.Warn("dream journal unreadable, starting empty",
			slog.String("name", s.name),
			slog.String("error", perr.Error()))
		s.dreams = nil
		return nil
	}
	s.dreams = dreams
	return nil
}

// Reload re-reads the blob after an external change and reports whether the
// collection changed. A corrupt blob is not adopted: the current collection
// is kept and the problem logged.
func (s *Store) Reload() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.provider.Read(s.name)
	missing := errors.Is(err, fs.ErrNotExist)
	if err != nil && !missing {
		return false, fmt.Errorf("dreamstore: reload: %w", err)
	}

	if missing {
		if len(s.dreams) == 0 && s.checksum == "" {
			return false, nil
		}
		s.dreams = nil
		s.checksum = ""
		return true, nil
	}

	sum := storage.Checksum(data)
	if sum == s.checksum {
		return false, nil
	}
	dreams, perr := decode(data)
	if perr != nil {
		s.logger.Warn("ignoring unreadable dream journal change",
			slog.String("name", s.name),
			slog.String("error", perr.Error()))
		return false, nil
	}
	s.dreams = dreams
	s.checksum = sum
	return true, nil
}

// persistLocked writes next and commits it to memory only on success.
func (s *Store) persistLocked(next []models.Dream) error {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("dreamstore: encode: %w", err)
	}
	if err := s.provider.Write(s.name, data); err != nil {
		return fmt.Errorf("dreamstore: persist: %w", err)
	}
	s.dreams = next
	s.checksum = storage.Checksum(data)
	return nil
}

func decode(data []byte) ([]models.Dream, error) {
	var dreams []models.Dream
	if err := json.Unmarshal(data, &dreams); err != nil {
		return nil, err
	}
	return dreams, nil
}
