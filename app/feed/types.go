package feed

import (
	"time"
)

type Format string

const (
	FormatRSS  Format = "rss2"
	FormatAtom Format = "atom1"
	FormatJSON Format = "json1"
)

// ContentType returns the response content type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatAtom:
		return "application/atom+xml; charset=utf-8"
	case FormatJSON:
		return "application/feed+json; charset=utf-8"
	default:
		return "application/rss+xml; charset=utf-8"
	}
}

type Category struct {
	Slug string
	Name string
}

type Author struct {
	Name string
	URL  string
}

// Item is one published content unit. Items are constructed fresh on every
// generation, ordered newest-first, and never mutated afterwards.
type Item struct {
	ID          string
	Title       string
	URL         string
	ContentHTML string
	Excerpt     string
	PublishedAt time.Time
	Category    *Category
	Author      *Author
}

// SiteMeta supplies the channel-level metadata for generated feeds.
type SiteMeta struct {
	Title       string
	Description string
	URL         string
	Language    string
}

// Document is the serialized output for one format. Body is a pure function
// of the input item list, site metadata, and format; identical inputs always
// produce byte-identical output.
type Document struct {
	Format      Format
	Body        []byte
	ContentType string
	GeneratedAt time.Time
}
