// Package termview renders the journal for the terminal.
package termview

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/starford/reverie/internal/dreamstore"
	"github.com/starford/reverie/internal/journal"
	"github.com/starford/reverie/internal/models"
)

// Journal writes days newest first, each headed by its date and how long
// ago it was relative to now.
func Journal(w io.Writer, days []dreamstore.Day, now time.Time) error {
	if len(days) == 0 {
		_, err := fmt.Fprintln(w, "No dreams recorded yet. Add one with 'reverie add'.")
		return err
	}
	var b strings.Builder
	for i, day := range days {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(dayHeader(day, now))
		b.WriteString("\n")
		for _, d := range day.Dreams {
			writeEntry(&b, d)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Entry writes a single entry with its id.
func Entry(w io.Writer, d models.Dream) error {
	var b strings.Builder
	b.WriteString(dayStyle.Render(d.Date))
	b.WriteString("\n")
	writeEntry(&b, d)
	b.WriteString(metaStyle.Render("id: " + d.ID))
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Recordings writes saved audio files with their size and age.
func Recordings(w io.Writer, recs []journal.Recording, now time.Time) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No recordings.")
		return err
	}
	var b strings.Builder
	for _, r := range recs {
		state := "unattached"
		if r.Attached {
			state = "attached"
		}
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			audioStyle.Render(r.AudioRef),
			humanize.Bytes(uint64(r.Size)),
			relStyle.Render(humanize.RelTime(r.UpdatedAt, now, "ago", "from now")),
			state)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeEntry(b *strings.Builder, d models.Dream) {
	line := titleStyle.Render(d.Title)
	if d.Time != "" {
		line += "  " + timeStyle.Render(d.Time)
	}
	if d.AudioRef != "" {
		line += "  " + audioStyle.Render("♪")
	}
	b.WriteString(line)
	b.WriteString("\n")
	b.WriteString(contentStyle.Render(d.Content))
	b.WriteString("\n")
}

func dayHeader(day dreamstore.Day, now time.Time) string {
	label := day.Date
	if t, err := time.ParseInLocation(models.DateLayout, day.Date, now.Location()); err == nil {
		label = t.Format("Monday, January 2 2006")
	}
	count := english.Plural(len(day.Dreams), "dream", "")
	return dayStyle.Render(label) + "  " + relStyle.Render(relativeDay(day.Date, now)+" · "+count)
}

// relativeDay names a calendar day relative to now: today, yesterday or a
// humanized distance such as "3 days ago".
func relativeDay(date string, now time.Time) string {
	t, err := time.ParseInLocation(models.DateLayout, date, now.Location())
	if err != nil {
		return date
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch days := int(today.Sub(t).Hours() / 24); days {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	case -1:
		return "tomorrow"
	}
	return humanize.RelTime(t, today, "ago", "from now")
}
