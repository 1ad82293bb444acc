package termview

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/starford/reverie/internal/dreamstore"
	"github.com/starford/reverie/internal/journal"
	"github.com/starford/reverie/internal/models"
)

var now = time.Date(2024, 3, 10, 7, 45, 0, 0, time.UTC)

func TestJournal(t *testing.T) {
	dreams := []models.Dream{
		{ID: "3", Title: "Late", Content: "third", Date: "2024-03-10", Time: "07:40 AM", AudioRef: "audio/a.wav"},
		{ID: "2", Title: "Early", Content: "second", Date: "2024-03-10", Time: "03:10 AM"},
		{ID: "1", Title: "Before", Content: "first", Date: "2024-03-09", Time: "11:00 PM"},
		{ID: "0", Title: "Ages", Content: "zeroth", Date: "2024-02-25", Time: "06:00 AM"},
	}
	var buf bytes.Buffer
	if err := Journal(&buf, dreamstore.GroupByDay(dreams), now); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Sunday, March 10 2024", "today", "2 dreams",
		"Saturday, March 9 2024", "yesterday", "1 dream",
		"2 weeks ago",
		"Late", "07:40 AM", "♪", "third",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Late") > strings.Index(out, "Early") {
		t.Error("entries within a day should keep newest-first order")
	}
	if strings.Index(out, "March 10") > strings.Index(out, "March 9") {
		t.Error("days should be newest first")
	}
}

func TestJournalEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Journal(&buf, nil, now); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No dreams") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestEntry(t *testing.T) {
	var buf bytes.Buffer
	_ = Entry(&buf, models.Dream{ID: "abc", Title: "T", Content: "C", Date: "2024-03-10"})
	for _, want := range []string{"2024-03-10", "T", "C", "id: abc"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("entry missing %q: %s", want, buf.String())
		}
	}
}

func TestRecordings(t *testing.T) {
	var buf bytes.Buffer
	recs := []journal.Recording{
		{AudioRef: "audio/a.wav", Size: 2_500_000, Attached: true, UpdatedAt: now.Add(-3 * time.Hour)},
		{AudioRef: "audio/b.webm", Size: 900, UpdatedAt: now.Add(-49 * time.Hour)},
	}
	if err := Recordings(&buf, recs, now); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"audio/a.wav", "2.5 MB", "3 hours ago", "attached", "audio/b.webm", "900 B", "2 days ago", "unattached"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRelativeDay(t *testing.T) {
	cases := map[string]string{
		"2024-03-10": "today",
		"2024-03-09": "yesterday",
		"2024-03-11": "tomorrow",
		"2024-03-05": "5 days ago",
		"not-a-date": "not-a-date",
	}
	for in, want := range cases {
		if got := relativeDay(in, now); got != want {
			t.Errorf("relativeDay(%q) = %q, want %q", in, got, want)
		}
	}
}
