package source

import (
	"context"
	"errors"

	"feedgate/app/feed"
)

// ErrUnavailable marks a content source failure or timeout. The HTTP layer
// converts it into a well-formed degraded feed with status 500.
var ErrUnavailable = errors.New("content source unavailable")

// Source supplies the published items feeds are generated from, ordered
// newest-first. Implementations own all fetching and caching concerns; the
// feed core only consumes this read interface.
type Source interface {
	Items(ctx context.Context) ([]feed.Item, error)
	ItemsByCategory(ctx context.Context, slug string) ([]feed.Item, error)
}
