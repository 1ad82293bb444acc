package index

import (
	"log/slog"
	"path"
	"strings"

	"github.com/starford/reverie/internal/models"
	"github.com/starford/reverie/internal/storage"
)

// AudioDir is the journal-relative directory indexed as recordings.
const AudioDir = "audio"

// Journal is the read side of the dream store the index mirrors.
type Journal interface {
	Name() string
	List() []models.Dream
	Checksum() string
	Reload() (bool, error)
}

// Sync brings the index up to date:
//   - the dreams table is rebuilt when the journal checksum differs
//   - new/changed audio files are upserted
//   - audio files removed from disk are deleted from the index
func Sync(db DreamIndex, journal Journal, files storage.Provider, logger *slog.Logger) error {
	if err := SyncJournal(db, journal, logger); err != nil {
		return err
	}
	return syncAudio(db, files, logger, nil)
}

// SyncJournal mirrors the journal into the dreams table unless the stored
// checksum shows it is already current.
func SyncJournal(db DreamIndex, journal Journal, logger *slog.Logger) error {
	cs := journal.Checksum()
	stored, err := db.JournalChecksum()
	if err != nil {
		return err
	}
	if stored == cs && cs != "" {
		return nil
	}
	dreams := journal.List()
	if err := db.ReplaceDreams(dreams, cs); err != nil {
		return err
	}
	logger.Debug("sync: journal indexed", slog.Int("dreams", len(dreams)))
	return nil
}

func syncAudio(db DreamIndex, files storage.Provider, logger *slog.Logger, cb EventCallback) error {
	metas, err := files.List(AudioDir, "")
	if err != nil {
		return err
	}
	checksums, err := db.AudioChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		row := AudioRow{Path: m.Path, Checksum: m.Checksum, Size: m.Size, UpdatedAt: m.UpdatedAt}
		if err := db.UpsertAudio(row); err != nil {
			logger.Warn("sync: index audio failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed audio", slog.String("path", m.Path))
		if cb != nil {
			cb(KindAudioCreated, m.Path)
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteAudio(p); err != nil {
			logger.Warn("sync: delete audio failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale audio", slog.String("path", p))
		if cb != nil {
			cb(KindAudioDeleted, p)
		}
	}
	return nil
}

// indexAudioFile reads a single audio file and upserts its row.
func indexAudioFile(db DreamIndex, files storage.Provider, rel string) error {
	metas, err := files.List(path.Dir(rel), path.Ext(rel))
	if err != nil {
		return err
	}
	for _, m := range metas {
		if m.Path == rel {
			return db.UpsertAudio(AudioRow{Path: m.Path, Checksum: m.Checksum, Size: m.Size, UpdatedAt: m.UpdatedAt})
		}
	}
	return nil
}

func isAudioPath(rel string) bool {
	base := path.Base(rel)
	return strings.HasPrefix(rel, AudioDir+"/") && !strings.HasPrefix(base, ".")
}
