package readers

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/language"
)

const (
	ReaderGeneric = "generic-reader"
	ReaderUnknown = "unknown"

	// idScheme versions the subscriber id derivation; bump it whenever the
	// rule table changes meaning so old ids break loudly instead of silently.
	idScheme = "v1"

	subscriberIDLength = 16
)

// Profile is the per-request classification result. It is computed fresh on
// every request and never persisted; SubscriberID is a one-way fingerprint
// derived only from headers the client already sends.
type Profile struct {
	Reader       string
	Language     string
	SubscriberID string
	Conditional  bool
}

type Classifier struct {
	rules         []Rule
	genericTokens []string
}

// NewClassifier builds a classifier from an ordered rule table. Empty
// arguments select the built-in defaults.
func NewClassifier(rules []Rule, genericTokens []string) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if len(genericTokens) == 0 {
		genericTokens = DefaultGenericTokens()
	}

	return &Classifier{rules: rules, genericTokens: genericTokens}
}

// Classify identifies the feed-reader product behind a request and derives
// its subscriber fingerprint. A missing User-Agent is treated as empty and
// classifies as unknown.
func (c *Classifier) Classify(userAgent, acceptLanguage string) Profile {
	reader := c.matchReader(userAgent)

	return Profile{
		Reader:       reader,
		Language:     primaryLanguage(acceptLanguage),
		SubscriberID: subscriberID(userAgent, acceptLanguage, reader),
	}
}

func (c *Classifier) matchReader(userAgent string) string {
	if userAgent == "" {
		return ReaderUnknown
	}

	lowered := strings.ToLower(userAgent)

	for _, rule := range c.rules {
		if strings.Contains(lowered, strings.ToLower(rule.Pattern)) {
			return rule.Name
		}
	}

	for _, token := range c.genericTokens {
		if strings.Contains(lowered, strings.ToLower(token)) {
			return ReaderGeneric
		}
	}

	return ReaderUnknown
}

func subscriberID(userAgent, acceptLanguage, reader string) string {
	input := idScheme + ":" + userAgent + "-" + acceptLanguage + "-" + reader
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:subscriberIDLength]
}

// primaryLanguage extracts the client's preferred base language for
// aggregate metrics, "und" when the header is absent or unparseable.
func primaryLanguage(acceptLanguage string) string {
	if acceptLanguage == "" {
		return "und"
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return "und"
	}

	base, _ := tags[0].Base()
	return base.String()
}
