// Package journal coordinates the dream store, the search index, recorded
// audio and live events behind one service used by every transport.
package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/dreamstore"
	"github.com/starford/reverie/internal/index"
	"github.com/starford/reverie/internal/models"
	"github.com/starford/reverie/internal/sse"
	"github.com/starford/reverie/internal/storage"
)

// Events receives journal change notifications.
type Events interface {
	PublishJournalEvent(kind string, data any)
}

// PendingRecording is the hand-off of a finished voice recording to the
// next manually written entry.
type PendingRecording interface {
	Pending() string
	ClaimPending(ref string) bool
	ReleasePending(ref string)
}

// CreateInput is a new entry as submitted by a client.
type CreateInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	AudioRef string `json:"audioRef,omitempty"`
	// UsePending attaches the last finished recording when AudioRef is empty.
	UsePending bool `json:"usePending,omitempty"`
}

// Service coordinates store, index and event operations.
type Service struct {
	store    *dreamstore.Store
	db       index.DreamIndex
	files    storage.Provider
	events   Events
	recorder PendingRecording
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEvents sets the event sink.
func WithEvents(e Events) Option {
	return func(s *Service) { s.events = e }
}

// WithRecorder sets the source of pending recordings.
func WithRecorder(r PendingRecording) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a journal service. db may be nil, in which case search
// scans the store directly and recording listings are unavailable.
func NewService(store *dreamstore.Store, db index.DreamIndex, files storage.Provider, opts ...Option) *Service {
	s := &Service{store: store, db: db, files: files, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the entries matching f, newest first.
func (s *Service) List(_ context.Context, f dreamstore.Filter) []models.Dream {
	return f.Apply(s.store.List())
}

// Days returns the entries matching f grouped by day.
func (s *Service) Days(ctx context.Context, f dreamstore.Filter) []dreamstore.Day {
	return dreamstore.GroupByDay(s.List(ctx, f))
}

// Get returns one entry or apperr.ErrNotFound.
func (s *Service) Get(_ context.Context, id string) (models.Dream, error) {
	return s.store.Get(id)
}

// Create stores a new entry. A referenced recording must exist.
func (s *Service) Create(_ context.Context, in CreateInput) (models.Dream, error) {
	ref := strings.TrimSpace(in.AudioRef)
	claimed := false
	if ref == "" && in.UsePending && s.recorder != nil {
		// Claim before persisting so two saves cannot attach one recording.
		// A failed claim means the pending reference moved on, so look again.
		for !claimed {
			p := s.recorder.Pending()
			if p == "" {
				break
			}
			if s.recorder.ClaimPending(p) {
				ref, claimed = p, true
			}
		}
	}
	if ref != "" {
		if err := s.checkAudioRef(ref); err != nil {
			if claimed {
				s.recorder.ReleasePending(ref)
			}
			return models.Dream{}, err
		}
	}

	d, err := s.store.Create(in.Title, in.Content, ref)
	if err != nil {
		if claimed {
			s.recorder.ReleasePending(ref)
		}
		return models.Dream{}, err
	}

	if s.db != nil {
		if err := s.db.UpsertDream(d); err != nil {
			s.logger.Warn("index dream failed", slog.String("id", d.ID), slog.String("error", err.Error()))
		}
	}
	s.publish(sse.EventDreamCreated, d)
	s.logger.Info("dream saved", slog.String("id", d.ID), slog.String("date", d.Date))
	return d, nil
}

// Delete removes an entry. Deleting an unknown id succeeds and reports false.
func (s *Service) Delete(_ context.Context, id string) (bool, error) {
	removed, err := s.store.Delete(id)
	if err != nil || !removed {
		return removed, err
	}
	if s.db != nil {
		if err := s.db.DeleteDream(id); err != nil {
			s.logger.Warn("unindex dream failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	}
	s.publish(sse.EventDreamDeleted, map[string]string{"id": id})
	s.logger.Info("dream deleted", slog.String("id", id))
	return true, nil
}

// Import adds previously exported entries, skipping ids already present.
func (s *Service) Import(_ context.Context, dreams []models.Dream) (int, error) {
	n, err := s.store.Import(dreams)
	if err != nil || n == 0 {
		return n, err
	}
	if s.db != nil {
		if err := index.SyncJournal(s.db, s.store, s.logger); err != nil {
			s.logger.Warn("index import failed", slog.String("error", err.Error()))
		}
	}
	s.publish(sse.EventJournalUpdated, map[string]int{"imported": n})
	return n, nil
}

// Search runs a full-text query over titles and content.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", apperr.ErrValidation)
	}
	if limit <= 0 {
		limit = 20
	}
	if s.db != nil {
		return s.db.Search(query, limit)
	}
	return scan(s.store.List(), query, limit), nil
}

// Stats returns entry counts per day, newest first.
func (s *Service) Stats(_ context.Context, limit int) ([]index.DayCount, error) {
	if s.db == nil {
		days := s.store.Days()
		out := make([]index.DayCount, 0, len(days))
		for _, d := range days {
			if limit > 0 && len(out) == limit {
				break
			}
			out = append(out, index.DayCount{Date: d.Date, Count: len(d.Dreams)})
		}
		return out, nil
	}
	return s.db.CountByDay(limit)
}

func (s *Service) checkAudioRef(ref string) error {
	if _, err := audioName(ref); err != nil {
		return err
	}
	if _, err := s.files.Read(ref); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: audioRef: unknown recording %s", apperr.ErrValidation, ref)
		}
		return err
	}
	return nil
}

func (s *Service) publish(kind string, data any) {
	if s.events != nil {
		s.events.PublishJournalEvent(kind, data)
	}
}

// scan is the index-free search: case-insensitive substring match.
func scan(dreams []models.Dream, query string, limit int) []models.SearchResult {
	q := strings.ToLower(query)
	var out []models.SearchResult
	for _, d := range dreams {
		if len(out) == limit {
			break
		}
		if !strings.Contains(strings.ToLower(d.Title), q) && !strings.Contains(strings.ToLower(d.Content), q) {
			continue
		}
		snippet := d.Content
		if r := []rune(snippet); len(r) > 200 {
			snippet = string(r[:200])
		}
		out = append(out, models.SearchResult{ID: d.ID, Title: d.Title, Date: d.Date, Snippet: snippet})
	}
	return out
}
