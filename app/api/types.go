package api

import (
	"time"

	"feedgate/app/analytics"
	"feedgate/app/feed"
	"feedgate/app/hub"
	"feedgate/app/limiter"
	"feedgate/app/readers"
	"feedgate/app/source"
	"feedgate/app/store"
	"feedgate/app/tasks"
)

type SerializerInterface interface {
	Serialize(meta feed.SiteMeta, items []feed.Item, format feed.Format) (*feed.Document, error)
	SerializeCategory(meta feed.SiteMeta, items []feed.Item, slug string, format feed.Format) (*feed.Document, error)
	Degraded(meta feed.SiteMeta, format feed.Format) *feed.Document
}

var _ SerializerInterface = (*feed.Serializer)(nil)

type Handler struct {
	contentSource source.Source
	serializer    SerializerInterface
	classifier    *readers.Classifier
	sink          analytics.Sink
	metrics       *analytics.Metrics
	limiter       *limiter.Limiter
	notifier      *hub.Notifier
	scheduler     tasks.TaskSchedulerInterface
	itemRepo      store.ItemRepository
}

// publishPayload is the body of a CMS publish webhook call.
type publishPayload struct {
	Item struct {
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
	} `json:"item"`
}
