package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/capture"
	"github.com/starford/reverie/internal/index"
	"github.com/starford/reverie/internal/storage"
)

// MaxAudioBytes caps a single uploaded recording.
const MaxAudioBytes = 50 << 20 // 50 MB

// Recording describes a saved audio file.
type Recording struct {
	AudioRef  string    `json:"audioRef"`
	Size      int64     `json:"size"`
	Attached  bool      `json:"attached"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// sniffed maps http.DetectContentType results to the MIME types the
// capture layer names files by. Browsers record WebM and Ogg; the ffmpeg
// device writes WAV.
var sniffed = map[string]string{
	"audio/wave":      "audio/wav",
	"video/webm":      "audio/webm",
	"application/ogg": "audio/ogg",
	"audio/mpeg":      "audio/mpeg",
	"video/mp4":       "audio/mp4",
}

// SaveAudio stores an uploaded recording under audio/ with a fresh name and
// returns its reference. The content must look like a supported audio
// container regardless of the declared type.
func (s *Service) SaveAudio(_ context.Context, data []byte) (Recording, error) {
	if len(data) == 0 {
		return Recording{}, fmt.Errorf("%w: recording is empty", apperr.ErrValidation)
	}
	if len(data) > MaxAudioBytes {
		return Recording{}, fmt.Errorf("%w: recording too large: %d bytes (max %d)", apperr.ErrValidation, len(data), MaxAudioBytes)
	}
	detected, _, _ := strings.Cut(http.DetectContentType(data), ";")
	mime, ok := sniffed[detected]
	if !ok {
		return Recording{}, fmt.Errorf("%w: unsupported audio content (detected: %s)", apperr.ErrValidation, detected)
	}

	ref := path.Join(capture.AudioDir, uuid.NewString()+capture.ExtensionFor(mime))
	if err := s.files.Write(ref, data); err != nil {
		return Recording{}, fmt.Errorf("journal: save audio: %w", err)
	}
	rec := Recording{AudioRef: ref, Size: int64(len(data)), UpdatedAt: time.Now().UTC()}
	if s.db != nil {
		row := index.AudioRow{Path: ref, Checksum: storage.Checksum(data), Size: rec.Size, UpdatedAt: rec.UpdatedAt}
		if err := s.db.UpsertAudio(row); err != nil {
			s.logger.Warn("index audio failed", slog.String("ref", ref), slog.String("error", err.Error()))
		}
	}
	return rec, nil
}

// Recordings lists saved audio files, newest first.
func (s *Service) Recordings(_ context.Context) ([]Recording, error) {
	if s.db == nil {
		return nil, fmt.Errorf("journal: recordings require the index")
	}
	rows, err := s.db.ListAudio()
	if err != nil {
		return nil, err
	}
	out := make([]Recording, len(rows))
	for i, r := range rows {
		out[i] = Recording{AudioRef: r.Path, Size: r.Size, Attached: r.Attached, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

// AudioPath resolves an audio file name (the last element of an audio
// reference) to an absolute path for serving.
func (s *Service) AudioPath(_ context.Context, name string) (string, error) {
	ref := path.Join(capture.AudioDir, name)
	if _, err := audioName(ref); err != nil {
		return "", err
	}
	abs, err := s.files.Abs(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("journal: audio %s: %w", name, apperr.ErrNotFound)
		}
		return "", err
	}
	return abs, nil
}

// audioName checks that ref is audio/<plain name> and returns the name.
func audioName(ref string) (string, error) {
	dir, name := path.Split(ref)
	if dir != capture.AudioDir+"/" || name == "" || strings.HasPrefix(name, ".") || strings.Contains(ref, "..") {
		return "", fmt.Errorf("%w: invalid audio reference %q", apperr.ErrValidation, ref)
	}
	return name, nil
}
