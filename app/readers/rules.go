package readers

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule maps a case-insensitive User-Agent substring to a reader name.
// Rules are evaluated in order; the first match wins, so overlapping
// signatures are disambiguated by position in the table.
type Rule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

type rulesFile struct {
	Readers       []Rule   `yaml:"readers"`
	GenericTokens []string `yaml:"generic_tokens"`
}

// DefaultRules covers the feed readers commonly seen in the wild. More
// specific signatures come before products whose tokens could shadow them.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "Feedly", Pattern: "feedly"},
		{Name: "Inoreader", Pattern: "inoreader"},
		{Name: "NewsBlur", Pattern: "newsblur"},
		{Name: "Feedbin", Pattern: "feedbin"},
		{Name: "The Old Reader", Pattern: "theoldreader"},
		{Name: "BazQux", Pattern: "bazqux"},
		{Name: "Miniflux", Pattern: "miniflux"},
		{Name: "FreshRSS", Pattern: "freshrss"},
		{Name: "Tiny Tiny RSS", Pattern: "tiny tiny rss"},
		{Name: "NetNewsWire", Pattern: "netnewswire"},
		{Name: "Reeder", Pattern: "reeder"},
		{Name: "Thunderbird", Pattern: "thunderbird"},
		{Name: "Akregator", Pattern: "akregator"},
		{Name: "Feedbro", Pattern: "feedbro"},
		{Name: "SimplePie", Pattern: "simplepie"},
	}
}

// DefaultGenericTokens mark otherwise unidentified fetchers as feed
// consumers rather than unknown traffic.
func DefaultGenericTokens() []string {
	return []string{"rss", "feed", "reader", "aggregator"}
}

// LoadRules reads a reader signature table from a YAML file. Generic tokens
// fall back to the defaults when the file does not override them.
func LoadRules(path string) ([]Rule, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var parsed rulesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	if err := validateRules(parsed.Readers); err != nil {
		return nil, nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}

	tokens := parsed.GenericTokens
	if len(tokens) == 0 {
		tokens = DefaultGenericTokens()
	}

	return parsed.Readers, tokens, nil
}

func validateRules(rules []Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("at least one reader rule is required")
	}

	for i, rule := range rules {
		if strings.TrimSpace(rule.Name) == "" {
			return fmt.Errorf("rule at index %d has no name", i)
		}
		if strings.TrimSpace(rule.Pattern) == "" {
			return fmt.Errorf("rule at index %d has no pattern", i)
		}
	}

	return nil
}
