package hub

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Result is the outcome of one publish-intent call. A batch returns one
// result per input URL, order-preserving relative to the input list.
type Result struct {
	FeedURL string
	Success bool
	Error   string
}

type Notifier struct {
	hubURL     string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

func NewNotifier(hubURL string, httpClient *http.Client, timeout time.Duration, userAgent string) *Notifier {
	return &Notifier{
		hubURL:     hubURL,
		httpClient: httpClient,
		timeout:    timeout,
		userAgent:  userAgent,
	}
}

// Notify tells the hub that the given feed URLs changed. All calls are
// issued concurrently and joined; one URL's failure never aborts its
// siblings. Re-notifying an unchanged URL is safe, deduplication is the
// hub's responsibility.
func (n *Notifier) Notify(ctx context.Context, feedURLs []string) []Result {
	results := make([]Result, len(feedURLs))

	var wg sync.WaitGroup
	for i, feedURL := range feedURLs {
		wg.Add(1)
		go func(idx int, target string) {
			defer wg.Done()
			results[idx] = n.publish(ctx, target)
		}(i, feedURL)
	}
	wg.Wait()

	for _, result := range results {
		if !result.Success {
			slog.Warn("Hub notification failed", "hub", n.hubURL, "feed_url", result.FeedURL, "error", result.Error)
		}
	}

	return results
}

func (n *Notifier) publish(ctx context.Context, feedURL string) Result {
	result := Result{FeedURL: feedURL}

	timeoutCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("hub.mode", "publish")
	form.Set("hub.url", feedURL)

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, n.hubURL, strings.NewReader(form.Encode()))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("hub unreachable: %v", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Error = fmt.Sprintf("hub returned HTTP %d", resp.StatusCode)
		return result
	}

	result.Success = true
	return result
}

// Probe checks whether the hub endpoint answers at all. Diagnostics only,
// no publish intent is submitted.
func (n *Notifier) Probe(ctx context.Context) bool {
	timeoutCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, n.hubURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < 500
}
