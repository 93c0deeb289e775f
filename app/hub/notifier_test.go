package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifySubmitsPublishIntent(t *testing.T) {
	var mu sync.Mutex
	var modes, urls []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		modes = append(modes, r.PostFormValue("hub.mode"))
		urls = append(urls, r.PostFormValue("hub.url"))
		mu.Unlock()

		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, server.Client(), 5*time.Second, "Feedgate/test")

	results := n.Notify(context.Background(), []string{"https://example.com/feed/rss"})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, []string{"publish"}, modes)
	assert.Equal(t, []string{"https://example.com/feed/rss"}, urls)
}

func TestNotifyPartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostFormValue("hub.url") == "https://example.com/feed/atom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, server.Client(), 5*time.Second, "Feedgate/test")

	input := []string{
		"https://example.com/feed/rss",
		"https://example.com/feed/atom",
		"https://example.com/feed/json",
	}

	results := n.Notify(context.Background(), input)

	require.Len(t, results, 3)
	for i, result := range results {
		assert.Equal(t, input[i], result.FeedURL, "result order must match input order")
	}
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.Contains(t, results[1].Error, "500")
}

func TestNotifyHubUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	n := NewNotifier(server.URL, http.DefaultClient, time.Second, "Feedgate/test")

	results := n.Notify(context.Background(), []string{"https://example.com/feed/rss"})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.NotEmpty(t, results[0].Error)
}

func TestNotifyTimeoutIsolatedPerURL(t *testing.T) {
	slow := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostFormValue("hub.url") == "https://example.com/slow" {
			<-slow
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	defer close(slow)

	n := NewNotifier(server.URL, server.Client(), 200*time.Millisecond, "Feedgate/test")

	results := n.Notify(context.Background(), []string{
		"https://example.com/slow",
		"https://example.com/fast",
	})

	require.Len(t, results, 2)
	assert.False(t, results[0].Success, "timed-out call should fail")
	assert.True(t, results[1].Success, "sibling call should be unaffected")
}

func TestNotifyEmptyBatch(t *testing.T) {
	n := NewNotifier("http://localhost:0", http.DefaultClient, time.Second, "Feedgate/test")

	results := n.Notify(context.Background(), nil)

	assert.Empty(t, results)
}

func TestProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, server.Client(), time.Second, "Feedgate/test")
	assert.True(t, n.Probe(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	down.Close()

	unreachable := NewNotifier(down.URL, http.DefaultClient, time.Second, "Feedgate/test")
	assert.False(t, unreachable.Probe(context.Background()))
}
