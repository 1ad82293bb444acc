package dreamstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/models"
)

// Filter restricts records to an inclusive range of calendar days.
// A zero bound is open.
type Filter struct {
	Since time.Time
	Until time.Time
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Since.IsZero() && f.Until.IsZero()
}

// Match reports whether d falls inside the range.
func (f Filter) Match(d models.Dream) bool {
	if !f.Since.IsZero() && d.Date < f.Since.Format(models.DateLayout) {
		return false
	}
	if !f.Until.IsZero() && d.Date > f.Until.Format(models.DateLayout) {
		return false
	}
	return true
}

// Apply returns the records that match, preserving order.
func (f Filter) Apply(dreams []models.Dream) []models.Dream {
	if f.IsZero() {
		return dreams
	}
	out := make([]models.Dream, 0, len(dreams))
	for _, d := range dreams {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

// ParseFilter builds a Filter from two user phrases such as "2024-11-01",
// "yesterday" or "last week". Empty phrases leave that bound open.
func ParseFilter(since, until string, now time.Time) (Filter, error) {
	var f Filter
	var err error
	if f.Since, err = parseDay(since, now); err != nil {
		return Filter{}, err
	}
	if f.Until, err = parseDay(until, now); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func parseDay(phrase string, now time.Time) (time.Time, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{models.DateLayout, "2006/01/02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, phrase, now.Location()); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	res, err := w.Parse(strings.ReplaceAll(phrase, "-", " "), now)
	if err != nil || res == nil {
		return time.Time{}, fmt.Errorf("%w: unrecognised date %q", apperr.ErrValidation, phrase)
	}
	return res.Time, nil
}
