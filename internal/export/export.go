// Package export converts journal entries to and from Markdown files with
// YAML frontmatter, one file per entry.
package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/models"
	"github.com/starford/reverie/internal/storage"
)

const delim = "---"

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

type frontmatter struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Date     string `yaml:"date"`
	Time     string `yaml:"time,omitempty"`
	AudioRef string `yaml:"audio,omitempty"`
}

// Render returns d as a Markdown document.
func Render(d models.Dream) ([]byte, error) {
	fm, err := yaml.Marshal(frontmatter{
		ID:       d.ID,
		Title:    d.Title,
		Date:     d.Date,
		Time:     d.Time,
		AudioRef: d.AudioRef,
	})
	if err != nil {
		return nil, fmt.Errorf("export: render %s: %w", d.ID, err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(fm)
	buf.WriteString(delim + "\n\n")
	buf.WriteString(strings.TrimSpace(d.Content))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Parse reads a document written by Render. A missing title falls back to
// the first H1 heading, which is then dropped from the content.
func Parse(data []byte) (models.Dream, error) {
	block, body, ok := splitFrontmatter(data)
	if !ok {
		return models.Dream{}, fmt.Errorf("%w: missing frontmatter", apperr.ErrValidation)
	}
	var fm frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return models.Dream{}, fmt.Errorf("%w: frontmatter: %w", apperr.ErrValidation, err)
	}
	if fm.Title == "" {
		fm.Title, body = headingTitle(body)
	}
	if _, err := time.Parse(models.DateLayout, fm.Date); err != nil {
		return models.Dream{}, fmt.Errorf("%w: date %q", apperr.ErrValidation, fm.Date)
	}
	return models.Dream{
		ID:       fm.ID,
		Title:    strings.TrimSpace(fm.Title),
		Content:  strings.TrimSpace(body),
		Date:     fm.Date,
		Time:     fm.Time,
		AudioRef: fm.AudioRef,
	}, nil
}

// FileName is the export file name of d: its date, a title slug and the
// start of its id, so names sort by day and stay unique.
func FileName(d models.Dream) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(d.Title), "-"), "-")
	if len(slug) > 40 {
		slug = strings.TrimRight(slug[:40], "-")
	}
	id := d.ID
	if len(id) > 8 {
		id = id[:8]
	}
	parts := []string{d.Date}
	if slug != "" {
		parts = append(parts, slug)
	}
	parts = append(parts, id)
	return strings.Join(parts, "-") + ".md"
}

// Write renders every entry into files and returns how many were written.
func Write(files storage.Provider, dreams []models.Dream) (int, error) {
	for i, d := range dreams {
		data, err := Render(d)
		if err != nil {
			return i, err
		}
		if err := files.Write(FileName(d), data); err != nil {
			return i, fmt.Errorf("export: write %s: %w", d.ID, err)
		}
	}
	return len(dreams), nil
}

// splitFrontmatter separates the YAML block between leading --- delimiters
// from the body.
func splitFrontmatter(data []byte) ([]byte, string, bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}
	body := rest[idx+1+len(delim):]
	return rest[:idx], strings.TrimLeft(string(body), "\n\r"), true
}

func headingTitle(body string) (string, string) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			rest := append(lines[:i:i], lines[i+1:]...)
			return strings.TrimSpace(trimmed[2:]), strings.Join(rest, "\n")
		}
	}
	return "", body
}
