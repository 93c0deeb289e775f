package analytics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedgate/app/readers"
)

func TestRecordAggregates(t *testing.T) {
	m := NewMetrics()

	m.Record(readers.Profile{Reader: "Feedly", Language: "en", SubscriberID: "aaaa", Conditional: true})
	m.Record(readers.Profile{Reader: "Feedly", Language: "en", SubscriberID: "aaaa", Conditional: true})
	m.Record(readers.Profile{Reader: "unknown", Language: "und", SubscriberID: "bbbb"})
	m.RecordNotification(true)
	m.RecordNotification(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, body, `feedgate_feed_requests_total{conditional="true",language="en",reader="Feedly"} 2`)
	assert.Contains(t, body, `feedgate_hub_notifications_total{outcome="success"} 1`)
	assert.Contains(t, body, `feedgate_hub_notifications_total{outcome="failure"} 1`)
	assert.Contains(t, body, "feedgate_active_subscribers 2")

	// repeat visits from the same fingerprint count as one subscriber
	assert.False(t, strings.Contains(body, "feedgate_active_subscribers 3"))
}
