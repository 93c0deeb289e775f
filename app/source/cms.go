package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability"

	"feedgate/app/feed"
)

const maxExcerptLength = 300

type cmsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	ContentHTML string    `json:"content_html"`
	Excerpt     string    `json:"excerpt"`
	PublishedAt time.Time `json:"published_at"`
	Category    *struct {
		Slug string `json:"slug"`
		Name string `json:"name"`
	} `json:"category"`
	Author *struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"author"`
}

type cmsListing struct {
	Items []cmsItem `json:"items"`
}

// CMSSource reads published items from the CMS content listing endpoint.
type CMSSource struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

func NewCMSSource(endpoint string, httpClient *http.Client, timeout time.Duration, userAgent string) *CMSSource {
	return &CMSSource{
		endpoint:   endpoint,
		httpClient: httpClient,
		timeout:    timeout,
		userAgent:  userAgent,
	}
}

func (s *CMSSource) Items(ctx context.Context) ([]feed.Item, error) {
	data, err := s.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var listing cmsListing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("%w: malformed listing: %v", ErrUnavailable, err)
	}

	items := make([]feed.Item, 0, len(listing.Items))
	for _, raw := range listing.Items {
		items = append(items, s.normalizeItem(raw))
	}

	// the feed item order is an external contract; never trust the CMS to
	// have sorted for us
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	return items, nil
}

func (s *CMSSource) ItemsByCategory(ctx context.Context, slug string) ([]feed.Item, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]feed.Item, 0, len(items))
	for _, item := range items {
		if item.Category != nil && item.Category.Slug == slug {
			matched = append(matched, item)
		}
	}

	return matched, nil
}

func (s *CMSSource) fetch(ctx context.Context) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (s *CMSSource) normalizeItem(raw cmsItem) feed.Item {
	item := feed.Item{
		ID:          raw.ID,
		Title:       raw.Title,
		URL:         raw.URL,
		ContentHTML: raw.ContentHTML,
		Excerpt:     raw.Excerpt,
		PublishedAt: raw.PublishedAt.UTC(),
	}

	if raw.Category != nil && raw.Category.Slug != "" {
		item.Category = &feed.Category{Slug: raw.Category.Slug, Name: raw.Category.Name}
	}
	if raw.Author != nil && raw.Author.Name != "" {
		item.Author = &feed.Author{Name: raw.Author.Name, URL: raw.Author.URL}
	}

	if item.Excerpt == "" && item.ContentHTML != "" {
		item.Excerpt = deriveExcerpt(item.ContentHTML)
	}

	return item
}

// deriveExcerpt builds a plain-text summary from item content when the CMS
// omits one.
func deriveExcerpt(contentHTML string) string {
	article, err := readability.FromReader(strings.NewReader(contentHTML), nil)
	if err != nil {
		slog.Debug("Excerpt extraction failed", "error", err)
		return ""
	}

	text := strings.TrimSpace(strings.Join(strings.Fields(article.TextContent), " "))
	if len(text) > maxExcerptLength {
		text = text[:maxExcerptLength] + "…"
	}

	return text
}
