package feed

import (
	"bytes"
	"cmp"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"time"
)

// epoch anchors the <updated> element of an empty Atom feed so the body
// stays a pure function of its inputs.
var epoch = time.Unix(0, 0).UTC()

type Serializer struct{}

func NewSerializer() *Serializer {
	return &Serializer{}
}

// Serialize produces one feed document for the given format. Items must
// already be sorted newest-first; subscribers rely on that order for dedup.
func (s *Serializer) Serialize(meta SiteMeta, items []Item, format Format) (*Document, error) {
	return s.build(meta, items, format, s.selfURL(meta, format, ""))
}

// SerializeCategory produces a category-scoped variant. A slug with zero
// matching items yields a valid, empty feed document, not an error.
func (s *Serializer) SerializeCategory(meta SiteMeta, items []Item, slug string, format Format) (*Document, error) {
	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Category != nil && item.Category.Slug == slug {
			filtered = append(filtered, item)
		}
	}

	scoped := meta
	scoped.Title = fmt.Sprintf("%s: %s", meta.Title, slug)

	return s.build(scoped, filtered, format, s.selfURL(meta, format, slug))
}

// Degraded builds a minimal well-formed feed stating temporary
// unavailability. The HTTP layer serves it with status 500 so consumers
// never receive truncated markup.
func (s *Serializer) Degraded(meta SiteMeta, format Format) *Document {
	item := Item{
		ID:          meta.URL + "#degraded",
		Title:       "Feed temporarily unavailable",
		URL:         meta.URL,
		ContentHTML: "<p>The content source is temporarily unavailable. Please retry later.</p>",
		Excerpt:     "The content source is temporarily unavailable. Please retry later.",
		PublishedAt: epoch,
	}

	doc, err := s.build(meta, []Item{item}, format, s.selfURL(meta, format, ""))
	if err != nil {
		// build only fails on an unknown format, which Degraded never passes
		panic(err)
	}
	return doc
}

func (s *Serializer) build(meta SiteMeta, items []Item, format Format, selfURL string) (*Document, error) {
	var body []byte
	var err error

	switch format {
	case FormatRSS:
		body = s.buildRSS(meta, items, selfURL)
	case FormatAtom:
		body = s.buildAtom(meta, items, selfURL)
	case FormatJSON:
		body, err = s.buildJSON(meta, items, selfURL)
	default:
		return nil, fmt.Errorf("unsupported feed format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	return &Document{
		Format:      format,
		Body:        body,
		ContentType: format.ContentType(),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (s *Serializer) selfURL(meta SiteMeta, format Format, slug string) string {
	if slug != "" {
		return fmt.Sprintf("%s/feed/category/%s", meta.URL, slug)
	}
	switch format {
	case FormatAtom:
		return meta.URL + "/feed/atom"
	case FormatJSON:
		return meta.URL + "/feed/json"
	default:
		return meta.URL + "/feed/rss"
	}
}

func (s *Serializer) buildRSS(meta SiteMeta, items []Item, selfURL string) []byte {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	s.writeElement(&buf, "title", meta.Title, 4)
	s.writeElement(&buf, "link", meta.URL, 4)
	s.writeElement(&buf, "description", meta.Description, 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfURL)))

	if len(items) > 0 {
		s.writeElement(&buf, "lastBuildDate", items[0].PublishedAt.UTC().Format(time.RFC1123Z), 4)
	}
	if meta.Language != "" {
		s.writeElement(&buf, "language", meta.Language, 4)
	}

	for _, item := range items {
		s.writeRSSItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.Bytes()
}

func (s *Serializer) writeRSSItem(buf *bytes.Buffer, item Item) {
	buf.WriteString("    <item>\n")

	s.writeElement(buf, "title", item.Title, 6)
	s.writeElement(buf, "link", item.URL, 6)

	buf.WriteString(`      <guid isPermaLink="true">`)
	xml.EscapeText(buf, []byte(item.URL))
	buf.WriteString("</guid>\n")

	s.writeElement(buf, "pubDate", item.PublishedAt.UTC().Format(time.RFC1123Z), 6)
	s.writeElement(buf, "description", cmp.Or(item.Excerpt, item.ContentHTML), 6)

	if item.ContentHTML != "" && item.ContentHTML != item.Excerpt {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(item.ContentHTML)
		buf.WriteString("]]></content:encoded>\n")
	}

	if item.Author != nil && item.Author.Name != "" {
		s.writeElement(buf, "author", item.Author.Name, 6)
	}
	if item.Category != nil && item.Category.Name != "" {
		s.writeElement(buf, "category", item.Category.Name, 6)
	}

	buf.WriteString("    </item>\n")
}

func (s *Serializer) buildAtom(meta SiteMeta, items []Item, selfURL string) []byte {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n")

	s.writeElement(&buf, "title", meta.Title, 2)
	s.writeElement(&buf, "subtitle", meta.Description, 2)
	s.writeElement(&buf, "id", meta.URL+"/", 2)
	buf.WriteString(fmt.Sprintf("  <link href=\"%s\" rel=\"self\" type=\"application/atom+xml\" />\n",
		html.EscapeString(selfURL)))
	buf.WriteString(fmt.Sprintf("  <link href=\"%s\" rel=\"alternate\" type=\"text/html\" />\n",
		html.EscapeString(meta.URL)))

	updated := epoch
	if len(items) > 0 {
		updated = items[0].PublishedAt.UTC()
	}
	s.writeElement(&buf, "updated", updated.Format(time.RFC3339), 2)

	for _, item := range items {
		s.writeAtomEntry(&buf, item)
	}

	buf.WriteString("</feed>")

	return buf.Bytes()
}

func (s *Serializer) writeAtomEntry(buf *bytes.Buffer, item Item) {
	buf.WriteString("  <entry>\n")

	s.writeElement(buf, "id", item.URL, 4)
	s.writeElement(buf, "title", item.Title, 4)
	buf.WriteString(fmt.Sprintf("    <link href=\"%s\" rel=\"alternate\" type=\"text/html\" />\n",
		html.EscapeString(item.URL)))
	s.writeElement(buf, "updated", item.PublishedAt.UTC().Format(time.RFC3339), 4)

	if item.Excerpt != "" {
		s.writeElement(buf, "summary", item.Excerpt, 4)
	}

	if item.ContentHTML != "" {
		buf.WriteString(`    <content type="html">`)
		xml.EscapeText(buf, []byte(item.ContentHTML))
		buf.WriteString("</content>\n")
	}

	if item.Author != nil && item.Author.Name != "" {
		buf.WriteString("    <author>\n")
		s.writeElement(buf, "name", item.Author.Name, 6)
		if item.Author.URL != "" {
			s.writeElement(buf, "uri", item.Author.URL, 6)
		}
		buf.WriteString("    </author>\n")
	}

	if item.Category != nil && item.Category.Name != "" {
		buf.WriteString(fmt.Sprintf("    <category term=\"%s\" label=\"%s\" />\n",
			html.EscapeString(item.Category.Slug), html.EscapeString(item.Category.Name)))
	}

	buf.WriteString("  </entry>\n")
}

type jsonFeed struct {
	Version     string     `json:"version"`
	Title       string     `json:"title"`
	HomePageURL string     `json:"home_page_url"`
	FeedURL     string     `json:"feed_url"`
	Description string     `json:"description,omitempty"`
	Language    string     `json:"language,omitempty"`
	Items       []jsonItem `json:"items"`
}

type jsonItem struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	ContentHTML   string    `json:"content_html"`
	Summary       string    `json:"summary,omitempty"`
	DatePublished string    `json:"date_published"`
	Authors       []jsonRef `json:"authors,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
}

type jsonRef struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

func (s *Serializer) buildJSON(meta SiteMeta, items []Item, selfURL string) ([]byte, error) {
	doc := jsonFeed{
		Version:     "https://jsonfeed.org/version/1",
		Title:       meta.Title,
		HomePageURL: meta.URL,
		FeedURL:     selfURL,
		Description: meta.Description,
		Language:    meta.Language,
		Items:       make([]jsonItem, 0, len(items)),
	}

	for _, item := range items {
		out := jsonItem{
			ID:            item.ID,
			URL:           item.URL,
			Title:         item.Title,
			ContentHTML:   item.ContentHTML,
			Summary:       item.Excerpt,
			DatePublished: item.PublishedAt.UTC().Format(time.RFC3339),
		}
		if item.Author != nil && item.Author.Name != "" {
			out.Authors = []jsonRef{{Name: item.Author.Name, URL: item.Author.URL}}
		}
		if item.Category != nil && item.Category.Name != "" {
			out.Tags = []string{item.Category.Name}
		}
		doc.Items = append(doc.Items, out)
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON feed: %w", err)
	}

	return body, nil
}

func (s *Serializer) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
