// Package testutil provides shared test helpers for setting up journals and
// databases.
package testutil

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/reverie/internal/dreamstore"
	"github.com/starford/reverie/internal/index"
	"github.com/starford/reverie/internal/storage"
)

// Now is the fixed instant TestStore stamps records with.
var Now = time.Date(2024, 3, 10, 7, 45, 0, 0, time.UTC)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "reverie-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestJournal creates a temporary journal directory with a storage provider.
func TestJournal(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, files
}

// TestStore opens a dream store over files with sequential ids and a clock
// fixed at Now.
func TestStore(t *testing.T, files storage.Provider) *dreamstore.Store {
	t.Helper()
	var mu sync.Mutex
	n := 0
	store, err := dreamstore.Open(files,
		dreamstore.WithClock(func() time.Time { return Now }),
		dreamstore.WithIDFunc(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("dream-%d", n)
		}),
		dreamstore.WithLogger(Logger()),
	)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// Logger returns a logger that only reports errors, to keep test output quiet.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// WAV returns a minimal valid 16 kHz mono PCM WAV file holding n samples of
// silence.
func WAV(n int) []byte {
	dataLen := uint32(n * 2)
	buf := make([]byte, 44+dataLen)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], 36+dataLen)
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:], 16000)
	binary.LittleEndian.PutUint32(buf[28:], 32000)
	binary.LittleEndian.PutUint16(buf[32:], 2)
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], dataLen)
	return buf
}
