package catalog

import (
	"strings"
	"time"
)

// Item is one discoverable session recording. Items are rebuilt from the
// listing on every discovery run; the identifier is the only field guaranteed
// stable across runs.
type Item struct {
	Identifier  string
	Title       string
	Publisher   string
	PublishedAt time.Time
	Views       int
	SourceURL   string
}

// PublishedDisplay renders the publish date for catalog tables. Items whose
// date could not be parsed render as a dash rather than the zero time.
func (i Item) PublishedDisplay() string {
	if i.PublishedAt.IsZero() {
		return "-"
	}
	return i.PublishedAt.Format("2006-01-02")
}

// TitleDisplay returns the title truncated to max runes for table rendering.
func (i Item) TitleDisplay(max int) string {
	title := strings.TrimSpace(i.Title)
	if max <= 0 || len([]rune(title)) <= max {
		return title
	}
	runes := []rune(title)
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
