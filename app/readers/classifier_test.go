package readers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassifyNamedReader(t *testing.T) {
	c := NewClassifier(nil, nil)

	p := c.Classify("Feedly/1.0 (+http://www.feedly.com/fetcher.html; 12 subscribers)", "en-US,en;q=0.9")

	if p.Reader != "Feedly" {
		t.Errorf("Expected reader 'Feedly', got '%s'", p.Reader)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	rules := []Rule{
		{Name: "Specific Reader", Pattern: "specificreader"},
		{Name: "Generic Brand", Pattern: "reader"},
	}
	c := NewClassifier(rules, nil)

	p := c.Classify("Mozilla/5.0 SpecificReader/2.1", "")

	if p.Reader != "Specific Reader" {
		t.Errorf("Table order should encode priority, got '%s'", p.Reader)
	}
}

func TestClassifyGenericFetcher(t *testing.T) {
	c := NewClassifier(nil, nil)

	p := c.Classify("SomeCustomFetcher/0.3 (rss crawler)", "")

	if p.Reader != ReaderGeneric {
		t.Errorf("Expected '%s', got '%s'", ReaderGeneric, p.Reader)
	}
}

func TestClassifyEmptyUserAgent(t *testing.T) {
	c := NewClassifier(nil, nil)

	p := c.Classify("", "")

	if p.Reader != ReaderUnknown {
		t.Errorf("Empty User-Agent should classify as '%s', got '%s'", ReaderUnknown, p.Reader)
	}

	if p.SubscriberID == "" {
		t.Error("Subscriber id should still be derived for empty headers")
	}
}

func TestSubscriberIDStable(t *testing.T) {
	c := NewClassifier(nil, nil)

	first := c.Classify("Feedly/1.0", "en-US")
	second := c.Classify("Feedly/1.0", "en-US")

	if first.SubscriberID != second.SubscriberID {
		t.Error("Same client fingerprint should yield the same subscriber id")
	}

	if len(first.SubscriberID) != subscriberIDLength {
		t.Errorf("Subscriber id should be %d characters, got %d", subscriberIDLength, len(first.SubscriberID))
	}
}

func TestSubscriberIDDiffersAcrossClients(t *testing.T) {
	c := NewClassifier(nil, nil)

	a := c.Classify("Feedly/1.0", "en-US")
	b := c.Classify("Inoreader/3.0", "en-US")

	if a.SubscriberID == b.SubscriberID {
		t.Error("Different clients should yield different subscriber ids")
	}
}

func TestSubscriberIDNotReversible(t *testing.T) {
	c := NewClassifier(nil, nil)

	ua := "NetNewsWire/6.1 (Macintosh; Mac OS X)"
	p := c.Classify(ua, "en")

	if p.SubscriberID == ua {
		t.Error("Subscriber id must not expose the raw User-Agent")
	}
}

func TestPrimaryLanguage(t *testing.T) {
	tests := []struct {
		header   string
		expected string
	}{
		{"en-US,en;q=0.9", "en"},
		{"de-DE", "de"},
		{"", "und"},
		{";;;", "und"},
	}

	for _, test := range tests {
		if got := primaryLanguage(test.header); got != test.expected {
			t.Errorf("For header '%s', expected '%s', got '%s'", test.header, test.expected, got)
		}
	}
}

func TestLoadRulesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readers.yml")

	content := `readers:
  - name: House Reader
    pattern: housereader
generic_tokens:
  - fetcher
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write rules file: %v", err)
	}

	rules, tokens, err := LoadRules(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(rules) != 1 || rules[0].Name != "House Reader" {
		t.Errorf("Unexpected rules loaded: %+v", rules)
	}

	if len(tokens) != 1 || tokens[0] != "fetcher" {
		t.Errorf("Unexpected generic tokens loaded: %+v", tokens)
	}

	c := NewClassifier(rules, tokens)
	if p := c.Classify("HouseReader/1.0", ""); p.Reader != "House Reader" {
		t.Errorf("Loaded rules should drive classification, got '%s'", p.Reader)
	}
}

func TestLoadRulesRejectsInvalidTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readers.yml")

	content := `readers:
  - name: ""
    pattern: oops
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write rules file: %v", err)
	}

	if _, _, err := LoadRules(path); err == nil {
		t.Error("Rules without a name should be rejected")
	}
}
