package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/reverie/internal/storage"
)

// Watcher callback kinds.
const (
	KindJournalUpdated = "journal.updated"
	KindAudioCreated   = "audio.created"
	KindAudioDeleted   = "audio.deleted"
)

const debounce = 150 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the journal root and processes file
// change events until ctx is cancelled. External edits of the journal blob
// are reloaded into the store and re-indexed; writes made by the store
// itself are recognised by checksum and ignored. Audio files are indexed as
// they appear and disappear. cb (if non-nil) is called after each change.
func Watch(ctx context.Context, db DreamIndex, journal Journal, files storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := os.MkdirAll(filepath.Join(root, AudioDir), 0o755); err != nil {
		return err
	}
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	// Both timers debounce bursts: an atomic write shows up as several
	// events, a rename as a remove plus a create.
	var journalTimer, reconcileTimer *time.Timer
	var journalCh, reconcileCh <-chan time.Time

	schedule := func(t **time.Timer, ch *<-chan time.Time) {
		if *t == nil {
			*t = time.NewTimer(debounce)
			*ch = (*t).C
		} else {
			(*t).Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range []*time.Timer{journalTimer, reconcileTimer} {
				if t != nil {
					t.Stop()
				}
			}
			logger.Info("watcher: stopped")
			return nil

		case <-journalCh:
			reloadJournal(db, journal, logger, cb)

		case <-reconcileCh:
			if err := syncAudio(db, files, logger, cb); err != nil {
				logger.Warn("reconcile: audio failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule(&reconcileTimer, &reconcileCh)
					continue
				}
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			if rel == journal.Name() {
				schedule(&journalTimer, &journalCh)
				continue
			}
			if !isAudioPath(rel) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if idxErr := indexAudioFile(db, files, rel); idxErr != nil {
					logger.Warn("watcher: index audio failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				logger.Debug("watcher: indexed audio", slog.String("path", rel))
				if cb != nil && ev.Op&fsnotify.Create != 0 {
					cb(KindAudioCreated, rel)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if delErr := db.DeleteAudio(rel); delErr != nil {
					logger.Warn("watcher: delete audio failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: deleted audio", slog.String("path", rel))
					if cb != nil {
						cb(KindAudioDeleted, rel)
					}
				}
				schedule(&reconcileTimer, &reconcileCh)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reloadJournal(db DreamIndex, journal Journal, logger *slog.Logger, cb EventCallback) {
	changed, err := journal.Reload()
	if err != nil {
		logger.Warn("watcher: reload journal failed", slog.String("error", err.Error()))
		return
	}
	if !changed {
		return
	}
	if err := SyncJournal(db, journal, logger); err != nil {
		logger.Warn("watcher: index journal failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("watcher: journal changed on disk", slog.Int("dreams", len(journal.List())))
	if cb != nil {
		cb(KindJournalUpdated, journal.Name())
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
