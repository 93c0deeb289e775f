package analytics

import (
	"feedgate/app/readers"
)

// Sink accepts reader profiles derived from inbound feed requests. Calls
// are fire-and-forget: implementations must not block the request path and
// must not store raw request headers.
type Sink interface {
	Record(profile readers.Profile)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(readers.Profile) {}
