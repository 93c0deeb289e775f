package cfg

type Cfg struct {
	// HTTP server configuration
	Port    string
	BaseUrl string

	// Site metadata used in generated feeds
	SiteTitle       string
	SiteDescription string
	SiteLanguage    string

	// Content source configuration
	CMSUrl     string
	CMSTimeout int
	DBPath     string

	// WebSub hub configuration
	HubUrl     string
	HubTimeout int

	// Reader classification
	ReadersFile string

	// Webhook and rate limiting
	WebhookSecret   string
	RateLimitMax    int
	RateLimitWindow int

	// Background processing
	WorkerCount       int
	SchedulerInterval int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
