package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"feedgate/app/analytics"
	"feedgate/app/cfg"
	"feedgate/app/feed"
	"feedgate/app/hub"
	"feedgate/app/limiter"
	"feedgate/app/readers"
	"feedgate/app/source"
	"feedgate/app/store"
	"feedgate/app/tasks"
)

func NewHandler(contentSource source.Source, serializer SerializerInterface,
	classifier *readers.Classifier, sink analytics.Sink, metrics *analytics.Metrics,
	rateLimiter *limiter.Limiter, notifier *hub.Notifier,
	scheduler tasks.TaskSchedulerInterface, itemRepo store.ItemRepository) *Handler {
	return &Handler{
		contentSource: contentSource,
		serializer:    serializer,
		classifier:    classifier,
		sink:          sink,
		metrics:       metrics,
		limiter:       rateLimiter,
		notifier:      notifier,
		scheduler:     scheduler,
		itemRepo:      itemRepo,
	}
}

var errItemIncomplete = errors.New("item requires id, title, url, and published_at")

func (h *Handler) GetFeedRSS(c *gin.Context)  { h.serveFeed(c, feed.FormatRSS) }
func (h *Handler) GetFeedAtom(c *gin.Context) { h.serveFeed(c, feed.FormatAtom) }
func (h *Handler) GetFeedJSON(c *gin.Context) { h.serveFeed(c, feed.FormatJSON) }

func (h *Handler) serveFeed(c *gin.Context, format feed.Format) {
	h.classifyRequest(c)

	items, err := h.contentSource.Items(c.Request.Context())
	if err != nil {
		h.serveDegraded(c, format, err)
		return
	}

	doc, err := h.serializer.Serialize(h.siteMeta(), items, format)
	if err != nil {
		h.serveDegraded(c, format, err)
		return
	}

	h.respond(c, doc, lastModified(items, doc))
}

func (h *Handler) GetCategoryFeed(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	h.classifyRequest(c)

	items, err := h.contentSource.ItemsByCategory(c.Request.Context(), slug)
	if err != nil {
		h.serveDegraded(c, feed.FormatRSS, err)
		return
	}

	doc, err := h.serializer.SerializeCategory(h.siteMeta(), items, slug, feed.FormatRSS)
	if err != nil {
		h.serveDegraded(c, feed.FormatRSS, err)
		return
	}

	c.Header("X-Feed-Category", slug)
	h.respond(c, doc, lastModified(items, doc))
}

// classifyRequest derives the reader profile and reports it to the
// analytics sink. Classification never blocks or fails the request.
func (h *Handler) classifyRequest(c *gin.Context) {
	profile := h.classifier.Classify(c.GetHeader("User-Agent"), c.GetHeader("Accept-Language"))
	profile.Conditional = c.GetHeader("If-None-Match") != "" || c.GetHeader("If-Modified-Since") != ""
	h.sink.Record(profile)
}

func (h *Handler) respond(c *gin.Context, doc *feed.Document, modified time.Time) {
	v := feed.Validate(doc.Body, modified, c.GetHeader("If-None-Match"), c.GetHeader("If-Modified-Since"))

	c.Header("ETag", v.ETag)
	c.Header("Last-Modified", v.LastModified.Format(http.TimeFormat))
	c.Header("Cache-Control", feed.CacheControl)
	c.Header("X-Robots-Tag", "noindex")
	c.Header("X-Content-Type-Options", "nosniff")

	if v.Status == http.StatusNotModified {
		c.Status(http.StatusNotModified)
		return
	}

	c.Header("Content-Length", strconv.Itoa(len(doc.Body)))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

// serveDegraded answers a feed request whose content source failed. The
// body is a minimal valid feed of the declared content type, never raw
// error text.
func (h *Handler) serveDegraded(c *gin.Context, format feed.Format, err error) {
	slog.Error("Feed generation failed", "format", string(format), "error", err)

	doc := h.serializer.Degraded(h.siteMeta(), format)

	c.Header("X-Robots-Tag", "noindex")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(statusFor(err), doc.ContentType, doc.Body)
}

func (h *Handler) PublishHook(c *gin.Context) {
	key := clientKey(c)
	if !h.limiter.Allow(key) {
		retryAfter := int(math.Ceil(h.limiter.Remaining(key).Seconds()))
		if retryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
		}
		c.JSON(statusFor(ErrRateLimited), gin.H{"error": userMessage(ErrRateLimited)})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable request body"})
		return
	}

	if secret := cfg.Get().WebhookSecret; secret != "" {
		if !verifySignature(body, c.GetHeader("X-Hook-Signature"), secret) {
			c.JSON(statusFor(ErrBadSignature), gin.H{"error": userMessage(ErrBadSignature)})
			return
		}
	}

	var payload publishPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed payload"})
		return
	}

	item, err := payload.toItem()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enqueued := make([]gin.H, 0, 2)

	if h.itemRepo != nil {
		snapshotTask := tasks.NewSnapshotItemTask(item, h.itemRepo)
		if err := h.scheduler.EnqueueTask(snapshotTask); err != nil {
			slog.Error("Failed to enqueue snapshot task", "item", item.ID, "error", err)
		} else {
			enqueued = append(enqueued, gin.H{"id": snapshotTask.ID, "type": snapshotTask.Type})
		}
	}

	notifyTask := tasks.NewNotifyHubTask(h.changedFeedURLs(item), h.notifier, h.metrics)
	if err := h.scheduler.EnqueueTask(notifyTask); err != nil {
		slog.Error("Failed to enqueue hub notification task", "item", item.ID, "error", err)
	} else {
		enqueued = append(enqueued, gin.H{"id": notifyTask.ID, "type": notifyTask.Type})
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"item":    item.ID,
		"tasks":   enqueued,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if h.itemRepo != nil {
		if count, err := h.itemRepo.GetItemCount(c.Request.Context()); err == nil {
			health["items"] = count
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) siteMeta() feed.SiteMeta {
	appCfg := cfg.Get()
	return feed.SiteMeta{
		Title:       appCfg.SiteTitle,
		Description: appCfg.SiteDescription,
		URL:         baseURL(appCfg),
		Language:    appCfg.SiteLanguage,
	}
}

// changedFeedURLs lists the public feed URLs affected by one published
// item: all three full feeds plus the item's category feed.
func (h *Handler) changedFeedURLs(item feed.Item) []string {
	base := baseURL(cfg.Get())

	urls := []string{
		base + "/feed/rss",
		base + "/feed/atom",
		base + "/feed/json",
	}

	if item.Category != nil && item.Category.Slug != "" {
		urls = append(urls, base+"/feed/category/"+item.Category.Slug)
	}

	return urls
}

func baseURL(appCfg *cfg.Cfg) string {
	if appCfg.BaseUrl != "" {
		return strings.TrimSuffix(appCfg.BaseUrl, "/")
	}
	return "http://localhost:" + appCfg.Port
}

// lastModified is the newest item's publish time, falling back to
// generation time for an empty feed.
func lastModified(items []feed.Item, doc *feed.Document) time.Time {
	if len(items) > 0 {
		return items[0].PublishedAt
	}
	return doc.GeneratedAt
}

// clientKey extracts the client identifier for rate limiting and analytics.
// The first IP in X-Forwarded-For is authoritative behind a proxy.
func clientKey(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := c.GetHeader("X-Real-Ip"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	return c.ClientIP()
}

func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signature, "sha256=")))
}

func (p *publishPayload) toItem() (feed.Item, error) {
	item := feed.Item{
		ID:          p.Item.ID,
		Title:       p.Item.Title,
		URL:         p.Item.URL,
		ContentHTML: p.Item.ContentHTML,
		Excerpt:     p.Item.Excerpt,
		PublishedAt: p.Item.PublishedAt.UTC(),
	}

	if item.ID == "" || item.URL == "" || item.Title == "" {
		return feed.Item{}, errItemIncomplete
	}
	if item.PublishedAt.IsZero() {
		return feed.Item{}, errItemIncomplete
	}

	if p.Item.Category != nil && p.Item.Category.Slug != "" {
		item.Category = &feed.Category{Slug: p.Item.Category.Slug, Name: p.Item.Category.Name}
	}
	if p.Item.Author != nil && p.Item.Author.Name != "" {
		item.Author = &feed.Author{Name: p.Item.Author.Name, URL: p.Item.Author.URL}
	}

	return item, nil
}
