package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/reverie/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "reverie-test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func dream(id, title, content, date string) models.Dream {
	return models.Dream{ID: id, Title: title, Content: content, Date: date, Time: "07:30 AM"}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"dreams", "audio", "meta"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestReplaceDreamsAndChecksum(t *testing.T) {
	db := testDB(t)
	if cs, err := db.JournalChecksum(); err != nil || cs != "" {
		t.Fatalf("JournalChecksum = %q, %v; want empty", cs, err)
	}

	err := db.ReplaceDreams([]models.Dream{
		dream("2", "Ocean", "swimming with whales", "2024-03-10"),
		dream("1", "Forest", "lost among pines", "2024-03-09"),
	}, "abc123")
	if err != nil {
		t.Fatalf("ReplaceDreams: %v", err)
	}
	cs, _ := db.JournalChecksum()
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	_ = db.ReplaceDreams([]models.Dream{dream("3", "Desert", "endless dunes", "2024-03-11")}, "def456")
	var count int
	_ = db.conn.QueryRow(`SELECT count(*) FROM dreams`).Scan(&count)
	if count != 1 {
		t.Errorf("count = %d, want 1 after replace", count)
	}
	if res, _ := db.Search("whales", 10); len(res) != 0 {
		t.Errorf("replaced dream still searchable: %+v", res)
	}
}

func TestUpsertAndDeleteDream(t *testing.T) {
	db := testDB(t)
	d := dream("x", "Stairs", "climbing forever", "2024-01-02")
	if err := db.UpsertDream(d); err != nil {
		t.Fatalf("UpsertDream: %v", err)
	}
	d.Content = "descending forever"
	if err := db.UpsertDream(d); err != nil {
		t.Fatalf("UpsertDream again: %v", err)
	}
	res, _ := db.Search("descending", 10)
	if len(res) != 1 || res[0].ID != "x" || res[0].Date != "2024-01-02" {
		t.Errorf("search = %+v, want x", res)
	}

	if err := db.DeleteDream("x"); err != nil {
		t.Fatalf("DeleteDream: %v", err)
	}
	if res, _ := db.Search("descending", 10); len(res) != 0 {
		t.Errorf("deleted dream still found: %+v", res)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDream(dream("s", "Search Me", "uniqueword appears here", "2024-02-02"))
	_ = db.UpsertDream(dream("o", "Other", "nothing to see", "2024-02-03"))

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}

func TestCountByDay(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceDreams([]models.Dream{
		dream("1", "a", "a", "2024-03-10"),
		dream("2", "b", "b", "2024-03-10"),
		dream("3", "c", "c", "2024-03-08"),
	}, "cs")

	counts, err := db.CountByDay(0)
	if err != nil {
		t.Fatalf("CountByDay: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("len = %d, want 2", len(counts))
	}
	if counts[0] != (DayCount{Date: "2024-03-10", Count: 2}) {
		t.Errorf("first = %+v", counts[0])
	}
	if limited, _ := db.CountByDay(1); len(limited) != 1 {
		t.Errorf("limit ignored: %+v", limited)
	}
}

func TestAudioRows(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	_ = db.UpsertAudio(AudioRow{Path: "audio/a.wav", Checksum: "1", Size: 10, UpdatedAt: now})
	_ = db.UpsertAudio(AudioRow{Path: "audio/b.wav", Checksum: "2", Size: 20, UpdatedAt: now.Add(time.Minute)})
	_ = db.UpsertDream(models.Dream{ID: "d", Title: "t", Content: "c", Date: "2024-01-01", AudioRef: "audio/a.wav"})

	rows, err := db.ListAudio()
	if err != nil {
		t.Fatalf("ListAudio: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].Path != "audio/b.wav" || rows[0].Attached {
		t.Errorf("rows[0] = %+v, want unattached b.wav", rows[0])
	}
	if rows[1].Path != "audio/a.wav" || !rows[1].Attached {
		t.Errorf("rows[1] = %+v, want attached a.wav", rows[1])
	}

	_ = db.DeleteAudio("audio/a.wav")
	sums, _ := db.AudioChecksums()
	if _, ok := sums["audio/a.wav"]; ok {
		t.Error("deleted audio still indexed")
	}
	if sums["audio/b.wav"] != "2" {
		t.Errorf("checksum = %q, want 2", sums["audio/b.wav"])
	}
}
