package analytics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feedgate/app/readers"
)

// subscriberWindow bounds how long a subscriber id counts as active. Ids
// are held in memory only; durability is explicitly out of scope.
const subscriberWindow = 24 * time.Hour

// Metrics is the prometheus-backed analytics sink. It aggregates reader
// traffic into counters and an approximate distinct-subscriber gauge
// without persisting anything identifying.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	subscribers   prometheus.Gauge

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

var _ Sink = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedgate_feed_requests_total",
			Help: "Feed requests by reader product, language, and conditional flag.",
		}, []string{"reader", "language", "conditional"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedgate_hub_notifications_total",
			Help: "Hub publish notifications by outcome.",
		}, []string{"outcome"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedgate_active_subscribers",
			Help: "Approximate distinct subscriber fingerprints seen in the last 24h.",
		}),
		lastSeen: make(map[string]time.Time),
	}

	m.registry.MustRegister(m.requests, m.notifications, m.subscribers)

	return m
}

// Record aggregates one reader profile.
func (m *Metrics) Record(profile readers.Profile) {
	m.requests.WithLabelValues(profile.Reader, profile.Language, strconv.FormatBool(profile.Conditional)).Inc()
	m.trackSubscriber(profile.SubscriberID)
}

// RecordNotification counts one hub publish outcome.
func (m *Metrics) RecordNotification(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry for a /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) trackSubscriber(id string) {
	if id == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.lastSeen[id] = now

	cutoff := now.Add(-subscriberWindow)
	for key, seen := range m.lastSeen {
		if seen.Before(cutoff) {
			delete(m.lastSeen, key)
		}
	}

	m.subscribers.Set(float64(len(m.lastSeen)))
}
