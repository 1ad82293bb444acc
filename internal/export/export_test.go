package export

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/models"
	"github.com/starford/reverie/internal/testutil"
)

var sample = models.Dream{
	ID:       "3f0c9a4e-8d1b-4a51-9f3e-6f1c2b7d9a10",
	Title:    "Flying: over the harbour",
	Content:  "Above the old port.\n\nThen the lights went out.",
	Date:     "2024-03-10",
	Time:     "07:45 AM",
	AudioRef: "audio/9b2f5c1e.webm",
}

func TestRenderParse(t *testing.T) {
	data, err := Render(sample)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(string(data), "---\n") || !strings.HasSuffix(string(data), "went out.\n") {
		t.Errorf("rendered = %q", data)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != sample {
		t.Errorf("got %+v, want %+v", got, sample)
	}
}

func TestParseHeadingTitle(t *testing.T) {
	in := "---\ndate: 2024-01-02\n---\n# Teeth\nThey all fell out.\n"
	got, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Title != "Teeth" || got.Content != "They all fell out." {
		t.Errorf("got %+v", got)
	}
	if got.Date != "2024-01-02" {
		t.Errorf("date = %q", got.Date)
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"no frontmatter": "# Title\nbody",
		"unclosed":       "---\ntitle: x\n",
		"bad yaml":       "---\n: {{{\n---\nbody",
		"no date":        "---\ntitle: x\n---\nbody",
		"bad date":       "---\ntitle: x\ndate: March 3rd\n---\nbody",
	}
	for name, in := range cases {
		if _, err := Parse([]byte(in)); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", name, err)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(sample); got != "2024-03-10-flying-over-the-harbour-3f0c9a4e.md" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileName(models.Dream{ID: "abc", Title: "!!!", Date: "2024-03-10"}); got != "2024-03-10-abc.md" {
		t.Errorf("FileName without slug = %q", got)
	}
}

func TestWrite(t *testing.T) {
	_, files := testutil.TestJournal(t)
	second := sample
	second.ID = "other-id"
	n, err := Write(files, []models.Dream{sample, second})
	if err != nil || n != 2 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	metas, err := files.List("", ".md")
	if err != nil || len(metas) != 2 {
		t.Fatalf("List = %v, %v", metas, err)
	}
	data, err := files.Read(FileName(second))
	if err != nil {
		t.Fatal(err)
	}
	got, err := Parse(data)
	if err != nil || got.ID != "other-id" {
		t.Errorf("round trip = %+v, %v", got, err)
	}
}
