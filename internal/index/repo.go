package index

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/reverie/internal/models"
)

// AudioRow represents a row in the audio table. Attached reports whether
// some dream references the file.
type AudioRow struct {
	Path      string
	Checksum  string
	Size      int64
	UpdatedAt time.Time
	Attached  bool
}

// DayCount is the number of dreams recorded on one date.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ReplaceDreams makes the dreams table match dreams exactly and records the
// journal checksum, all within one transaction.
func (db *DB) ReplaceDreams(dreams []models.Dream, checksum string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM dreams`); err != nil {
		return fmt.Errorf("index: clear dreams: %w", err)
	}
	if err := ftsClear(tx); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO dreams (id, title, content, date, time, audio_ref, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("index: prepare dream insert: %w", err)
	}
	defer stmt.Close()

	// position counts up from the oldest record so new rows sort first.
	for i, d := range dreams {
		if _, err := stmt.Exec(d.ID, d.Title, d.Content, d.Date, d.Time, d.AudioRef, len(dreams)-i); err != nil {
			return fmt.Errorf("index: insert dream: %w", err)
		}
		if err := ftsUpsert(tx, d.ID, d.Title, d.Content); err != nil {
			return err
		}
	}
	if err := setMeta(tx, journalChecksumKey, checksum); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertDream inserts or replaces a single dream and its FTS entry.
func (db *DB) UpsertDream(d models.Dream) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO dreams (id, title, content, date, time, audio_ref, position)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM dreams))
		ON CONFLICT(id) DO UPDATE SET
			title     = excluded.title,
			content   = excluded.content,
			date      = excluded.date,
			time      = excluded.time,
			audio_ref = excluded.audio_ref
	`, d.ID, d.Title, d.Content, d.Date, d.Time, d.AudioRef)
	if err != nil {
		return fmt.Errorf("index: upsert dream: %w", err)
	}
	if err := ftsUpsert(tx, d.ID, d.Title, d.Content); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteDream removes a dream and its FTS entry.
func (db *DB) DeleteDream(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM dreams WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete dream: %w", err)
	}
	return tx.Commit()
}

// JournalChecksum returns the checksum of the journal blob last mirrored,
// or empty string if none.
func (db *DB) JournalChecksum() (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, journalChecksumKey).Scan(&cs)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: journal checksum: %w", err)
	}
	return cs, nil
}

// CountByDay returns dream counts per date, newest date first. A
// non-positive limit returns every day.
func (db *DB) CountByDay(limit int) ([]DayCount, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`
		SELECT date, COUNT(*)
		FROM dreams
		GROUP BY date
		ORDER BY date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("index: count by day: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

// UpsertAudio records an audio file.
func (db *DB) UpsertAudio(a AudioRow) error {
	_, err := db.conn.Exec(`
		INSERT INTO audio (path, checksum, size, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			size       = excluded.size,
			updated_at = excluded.updated_at
	`, a.Path, a.Checksum, a.Size, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert audio: %w", err)
	}
	return nil
}

// DeleteAudio forgets an audio file.
func (db *DB) DeleteAudio(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM audio WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete audio: %w", err)
	}
	return nil
}

// AudioChecksums returns path -> checksum for every indexed audio file.
func (db *DB) AudioChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM audio`)
	if err != nil {
		return nil, fmt.Errorf("index: audio checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListAudio returns every indexed audio file, newest first, flagging the
// ones referenced by a dream.
func (db *DB) ListAudio() ([]AudioRow, error) {
	rows, err := db.conn.Query(`
		SELECT a.path, a.checksum, a.size, a.updated_at,
		       EXISTS (SELECT 1 FROM dreams d WHERE d.audio_ref = a.path)
		FROM audio a
		ORDER BY a.updated_at DESC, a.path
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list audio: %w", err)
	}
	defer rows.Close()

	var out []AudioRow
	for rows.Next() {
		var a AudioRow
		if err := rows.Scan(&a.Path, &a.Checksum, &a.Size, &a.UpdatedAt, &a.Attached); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func setMeta(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("index: set %s: %w", key, err)
	}
	return nil
}
