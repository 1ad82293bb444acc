package internal

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/reverie/internal/dreamstore"
	"github.com/starford/reverie/internal/index"
	"github.com/starford/reverie/internal/journal"
	"github.com/starford/reverie/internal/storage"
)

// Journal is an opened dream journal: its files, the record store, the
// search index and the service over them.
type Journal struct {
	Files   *storage.FS
	Store   *dreamstore.Store
	DB      *index.DB
	Service *journal.Service
}

// OpenJournal opens the journal described by cfg and brings the search
// index up to date. The service it builds publishes no events; the server
// replaces it with one wired to the broker and recorder.
func OpenJournal(cfg *Config, logger *slog.Logger) (*Journal, error) {
	if err := os.MkdirAll(cfg.Journal.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	store, err := dreamstore.Open(files,
		dreamstore.WithName(cfg.Journal.StoreName),
		dreamstore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open dream store: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, files, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &Journal{
		Files:   files,
		Store:   store,
		DB:      db,
		Service: journal.NewService(store, db, files, journal.WithLogger(logger)),
	}, nil
}

// Close releases the search index.
func (j *Journal) Close() error {
	if j == nil || j.DB == nil {
		return nil
	}
	return j.DB.Close()
}
