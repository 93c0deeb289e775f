package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedgate/app/analytics"
	"feedgate/app/cfg"
	"feedgate/app/feed"
	"feedgate/app/limiter"
	"feedgate/app/readers"
	"feedgate/app/source"
	"feedgate/app/tasks"
)

func setupTestConfig(t *testing.T) {
	t.Helper()

	oldArgs := os.Args
	os.Args = []string{"test"}
	defer func() { os.Args = oldArgs }()

	if _, err := cfg.Load(); err != nil {
		t.Fatalf("Failed to load test config: %v", err)
	}
}

type fakeSource struct {
	items []feed.Item
	err   error
}

func (s *fakeSource) Items(ctx context.Context) ([]feed.Item, error) {
	return s.items, s.err
}

func (s *fakeSource) ItemsByCategory(ctx context.Context, slug string) ([]feed.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	var matched []feed.Item
	for _, item := range s.items {
		if item.Category != nil && item.Category.Slug == slug {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

type fakeScheduler struct {
	enqueued []tasks.TaskInterface
}

func (s *fakeScheduler) Start() {}
func (s *fakeScheduler) Stop()  {}
func (s *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error {
	s.enqueued = append(s.enqueued, task)
	return nil
}

func sampleItems() []feed.Item {
	return []feed.Item{
		{
			ID:          "post-2",
			Title:       "Second Post",
			URL:         "https://example.com/posts/second",
			ContentHTML: "<p>Second</p>",
			Excerpt:     "Second excerpt",
			PublishedAt: time.Date(2023, 7, 5, 15, 30, 0, 0, time.UTC),
			Category:    &feed.Category{Slug: "go", Name: "Go"},
		},
		{
			ID:          "post-1",
			Title:       "First Post",
			URL:         "https://example.com/posts/first",
			ContentHTML: "<p>First</p>",
			Excerpt:     "First excerpt",
			PublishedAt: time.Date(2023, 7, 1, 10, 0, 0, 0, time.UTC),
		},
	}
}

func newTestServer(t *testing.T, src source.Source, rateLimiter *limiter.Limiter) (http.Handler, *fakeScheduler) {
	t.Helper()
	setupTestConfig(t)

	if rateLimiter == nil {
		rateLimiter = limiter.New(100, time.Minute)
	}

	scheduler := &fakeScheduler{}
	handler := NewHandler(src, feed.NewSerializer(), readers.NewClassifier(nil, nil),
		analytics.NopSink{}, nil, rateLimiter, nil, scheduler, nil)

	return NewServer(handler, nil), scheduler
}

func TestGetFeedRSS(t *testing.T) {
	server, _ := newTestServer(t, &fakeSource{items: sampleItems()}, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest("GET", "/feed/rss", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, feed.CacheControl, rec.Header().Get("Cache-Control"))
	assert.Equal(t, "noindex", rec.Header().Get("X-Robots-Tag"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	assert.NotEmpty(t, rec.Header().Get("Last-Modified"))
	assert.NotEmpty(t, rec.Header().Get("Content-Length"))

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Len(t, parsed.Items, 2)
}

func TestConditionalGet(t *testing.T) {
	server, _ := newTestServer(t, &fakeSource{items: sampleItems()}, nil)

	first := httptest.NewRecorder()
	server.ServeHTTP(first, httptest.NewRequest("GET", "/feed/rss", nil))
	require.Equal(t, http.StatusOK, first.Code)

	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	second := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/feed/rss", nil)
	req.Header.Set("If-None-Match", etag)
	server.ServeHTTP(second, req)

	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.Bytes(), "304 response must not carry a body")
	assert.Equal(t, etag, second.Header().Get("ETag"))
	assert.Equal(t, feed.CacheControl, second.Header().Get("Cache-Control"))

	stale := httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/feed/rss", nil)
	req.Header.Set("If-None-Match", `"0123456789abcdef0123456789abcdef"`)
	server.ServeHTTP(stale, req)

	assert.Equal(t, http.StatusOK, stale.Code)
	assert.NotEmpty(t, stale.Body.Bytes())
	assert.Equal(t, etag, stale.Header().Get("ETag"))
}

func TestMalformedIfModifiedSince(t *testing.T) {
	server, _ := newTestServer(t, &fakeSource{items: sampleItems()}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/feed/rss", nil)
	req.Header.Set("If-Modified-Since", "definitely-not-a-date")
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "malformed If-Modified-Since must fail open")
}

func TestGetFeedJSONHasCORS(t *testing.T) {
	server, _ := newTestServer(t, &fakeSource{items: sampleItems()}, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest("GET", "/feed/json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/feed+json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
}

func TestCategoryFeed(t *testing.T) {
	server, _ := newTestServer(t, &fakeSource{items: sampleItems()}, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest("GET", "/feed/category/go", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "go", rec.Header().Get("X-Feed-Category"))

	body := rec.Body.String()
	assert.Contains(t, body, "Second Post")
	assert.NotContains(t, body, "First Post")
}

func TestCategoryFeedEmptyIsValid(t *testing.T) {
	server, _ := newTestServer(t, &fakeSource{items: sampleItems()}, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest("GET", "/feed/category/no-such-slug", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err, "empty category feed must still be valid")
	assert.Empty(t, parsed.Items)
}

func TestDegradedFeedOnSourceFailure(t *testing.T) {
	failing := &fakeSource{err: fmt.Errorf("%w: connection refused", source.ErrUnavailable)}
	server, _ := newTestServer(t, failing, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest("GET", "/feed/rss", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", rec.Header().Get("Content-Type"))

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err, "degraded feed must be well-formed")
	assert.Contains(t, rec.Body.String(), "Feed temporarily unavailable")
	assert.NotContains(t, rec.Body.String(), "connection refused", "error details must not leak to consumers")
	require.Len(t, parsed.Items, 1)
}

func publishBody(t *testing.T) []byte {
	t.Helper()

	payload := map[string]interface{}{
		"item": map[string]interface{}{
			"id":           "post-3",
			"title":        "Third Post",
			"url":          "https://example.com/posts/third",
			"content_html": "<p>Third</p>",
			"published_at": "2023-07-10T08:00:00Z",
			"category":     map[string]string{"slug": "go", "name": "Go"},
		},
	}

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func TestPublishHookEnqueuesNotification(t *testing.T) {
	server, scheduler := newTestServer(t, &fakeSource{items: sampleItems()}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/hooks/publish", bytes.NewReader(publishBody(t)))
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, scheduler.enqueued, 1)
	assert.Equal(t, tasks.TaskTypeNotifyHub, scheduler.enqueued[0].GetType())
}

func TestPublishHookRejectsIncompleteItem(t *testing.T) {
	server, scheduler := newTestServer(t, &fakeSource{items: sampleItems()}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/hooks/publish", bytes.NewReader([]byte(`{"item":{"id":"x"}}`)))
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, scheduler.enqueued)
}

func TestPublishHookSignature(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "test-secret")
	server, scheduler := newTestServer(t, &fakeSource{items: sampleItems()}, nil)

	body := publishBody(t)

	// wrong signature
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/hooks/publish", bytes.NewReader(body))
	req.Header.Set("X-Hook-Signature", "sha256=deadbeef")
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, scheduler.enqueued, "invalid signature must stop all processing")

	// correct signature
	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write(body)
	signature := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/hooks/publish", bytes.NewReader(body))
	req.Header.Set("X-Hook-Signature", signature)
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, scheduler.enqueued, 1)
}

func TestPublishHookRateLimit(t *testing.T) {
	server, _ := newTestServer(t, &fakeSource{items: sampleItems()}, limiter.New(1, time.Minute))

	first := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/hooks/publish", bytes.NewReader(publishBody(t)))
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	server.ServeHTTP(first, req)
	require.Equal(t, http.StatusAccepted, first.Code)

	second := httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/hooks/publish", bytes.NewReader(publishBody(t)))
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	server.ServeHTTP(second, req)

	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// a different client is unaffected
	third := httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/hooks/publish", bytes.NewReader(publishBody(t)))
	req.Header.Set("X-Forwarded-For", "198.51.100.20")
	server.ServeHTTP(third, req)

	assert.Equal(t, http.StatusAccepted, third.Code)
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakeSource{items: sampleItems()}, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
