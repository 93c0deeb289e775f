package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"feedgate/app/analytics"
	"feedgate/app/cfg"
)

// NewServer creates the HTTP server with all routes configured.
func NewServer(handler *Handler, metrics *analytics.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	setupRoutes(r, handler, metrics)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, metrics *analytics.Metrics) {
	// Feed endpoints
	r.GET("/feed/rss", handler.GetFeedRSS)
	r.GET("/feed/atom", handler.GetFeedAtom)
	r.GET("/feed/json", corsAllowAll(), handler.GetFeedJSON)
	r.GET("/feed/category/:slug", handler.GetCategoryFeed)

	// Publish webhook (rate limited, optionally signed)
	r.POST("/hooks/publish", handler.PublishHook)

	// Health and observability
	r.GET("/health", handler.GetHealth)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Feedgate",
			"version":     cfg.Get().Version,
			"description": "Feed distribution service: RSS/Atom/JSON feeds with conditional GET and WebSub notification",
			"endpoints": map[string]string{
				"rss":      "/feed/rss",
				"atom":     "/feed/atom",
				"json":     "/feed/json",
				"category": "/feed/category/<slug>",
				"health":   "/health",
				"metrics":  "/metrics",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// corsAllowAll opens the JSON feed to browser-based readers.
func corsAllowAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, If-None-Match, If-Modified-Since")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
