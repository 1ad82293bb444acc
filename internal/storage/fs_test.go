package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempJournal(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempJournal(t)
	content := []byte(`[{"id":"1"}]`)
	if err := s.Write("dreamJournal.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("dreamJournal.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempJournal(t)
	if err := s.Write("audio/take.wav", []byte("RIFF")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("audio/take.wav")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "RIFF" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempJournal(t)
	_ = s.Write("del.json", []byte("bye"))
	if err := s.Delete("del.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.json"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempJournal(t)
	_ = s.Write("old.webm", []byte("data"))
	if err := s.Move("old.webm", "audio/new.webm"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("audio/new.webm")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.webm"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestListFiltersByExtension(t *testing.T) {
	s := tempJournal(t)
	_ = s.Write("audio/a.wav", []byte("a"))
	_ = s.Write("audio/b.webm", []byte("bb"))
	_ = s.Write("audio/c.wav", []byte("ccc"))

	items, err := s.List("audio", ".wav")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if filepath.Ext(it.Path) != ".wav" {
			t.Errorf("unexpected path %q", it.Path)
		}
		if it.Checksum != Checksum([]byte("a")) && it.Checksum != Checksum([]byte("ccc")) {
			t.Errorf("checksum mismatch for %q", it.Path)
		}
	}

	all, _ := s.List("audio", "")
	if len(all) != 3 {
		t.Errorf("len(all) = %d, want 3", len(all))
	}
}

func TestListMissingDir(t *testing.T) {
	s := tempJournal(t)
	items, err := s.List("audio", ".wav")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempJournal(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if _, err := s.Abs(p); err == nil {
			t.Errorf("expected error resolving %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempJournal(t)
	_ = s.Write("dreamJournal.json", []byte("[]"))

	updated := []byte(`[{"id":"x"}]`)
	if err := s.Write("dreamJournal.json", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("dreamJournal.json")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".reverie-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "reverie-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestChecksumStable(t *testing.T) {
	a := Checksum([]byte("dream"))
	if a != Checksum([]byte("dream")) {
		t.Error("checksum not deterministic")
	}
	if a == Checksum([]byte("dreams")) {
		t.Error("different inputs share a checksum")
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
}
