package dreamstore

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/models"
)

func TestFilterApply(t *testing.T) {
	in := []models.Dream{
		{ID: "a", Date: "2024-03-12"},
		{ID: "b", Date: "2024-03-10"},
		{ID: "c", Date: "2024-03-08"},
	}
	f := Filter{
		Since: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC),
	}
	got := f.Apply(in)
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("got %+v, want only b", got)
	}

	if all := (Filter{}).Apply(in); len(all) != 3 {
		t.Errorf("zero filter kept %d, want 3", len(all))
	}
}

func TestParseFilter(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	f, err := ParseFilter("2024-03-01", "", now)
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if got := f.Since.Format(models.DateLayout); got != "2024-03-01" {
		t.Errorf("since = %q, want %q", got, "2024-03-01")
	}
	if !f.Until.IsZero() {
		t.Errorf("until = %v, want zero", f.Until)
	}

	f, err = ParseFilter("", "yesterday", now)
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if got := f.Until.Format(models.DateLayout); got != "2024-03-09" {
		t.Errorf("until = %q, want %q", got, "2024-03-09")
	}

	if _, err := ParseFilter("purple elephants", "", now); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
