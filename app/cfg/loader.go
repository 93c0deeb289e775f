package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP server configuration
	Port    string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl string `long:"base-url" env:"BASE_URL" description:"Public base URL for feed self links (e.g., https://example.com)"`

	// Site metadata used in generated feeds
	SiteTitle       string `long:"site-title" env:"SITE_TITLE" default:"Feedgate" description:"Site title used in feed channel metadata"`
	SiteDescription string `long:"site-description" env:"SITE_DESCRIPTION" default:"Latest published posts" description:"Site description used in feed channel metadata"`
	SiteLanguage    string `long:"site-language" env:"SITE_LANGUAGE" default:"en" description:"Site language code used in feed channel metadata"`

	// Content source configuration
	CMSUrl     string `long:"cms-url" env:"CMS_URL" description:"CMS content listing endpoint; when empty the local snapshot store serves feeds"`
	CMSTimeout int    `long:"cms-timeout" env:"CMS_TIMEOUT" default:"10" description:"CMS request timeout in seconds"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./feedgate.db" description:"Path to the sqlite snapshot database"`

	// WebSub hub configuration
	HubUrl     string `long:"hub-url" env:"HUB_URL" default:"https://pubsubhubbub.appspot.com/" description:"WebSub hub endpoint for publish notifications"`
	HubTimeout int    `long:"hub-timeout" env:"HUB_TIMEOUT" default:"10" description:"Hub notification timeout in seconds"`

	// Reader classification
	ReadersFile string `long:"readers-file" env:"READERS_FILE" description:"Optional YAML file with reader signature rules (built-in table used when empty)"`

	// Webhook and rate limiting
	WebhookSecret   string `long:"webhook-secret" env:"WEBHOOK_SECRET" description:"HMAC secret for publish webhook signatures (verification disabled when empty)"`
	RateLimitMax    int    `long:"rate-limit-max" env:"RATE_LIMIT_MAX" default:"30" description:"Maximum gated requests per client per window"`
	RateLimitWindow int    `long:"rate-limit-window" env:"RATE_LIMIT_WINDOW" default:"60" description:"Rate limit window in seconds"`

	// Background processing
	WorkerCount       int `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for publish event processing"`
	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"300" description:"Hub probe interval in seconds"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Feedgate/1.0" description:"User agent string for outbound HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		SiteTitle:         raw.SiteTitle,
		SiteDescription:   raw.SiteDescription,
		SiteLanguage:      raw.SiteLanguage,
		CMSUrl:            raw.CMSUrl,
		CMSTimeout:        raw.CMSTimeout,
		DBPath:            raw.DBPath,
		HubUrl:            raw.HubUrl,
		HubTimeout:        raw.HubTimeout,
		ReadersFile:       raw.ReadersFile,
		WebhookSecret:     raw.WebhookSecret,
		RateLimitMax:      raw.RateLimitMax,
		RateLimitWindow:   raw.RateLimitWindow,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
