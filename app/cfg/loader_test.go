package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestGetPanicsWhenUnloaded(t *testing.T) {
	old := globalCfg
	globalCfg = nil
	defer func() {
		globalCfg = old
		if r := recover(); r == nil {
			t.Error("Get should panic when configuration is not loaded")
		}
	}()

	Get()
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		Port:            "8080",
		BaseUrl:         "https://example.com",
		SiteTitle:       "Example",
		SiteLanguage:    "en",
		HubUrl:          "https://pubsubhubbub.appspot.com/",
		HubTimeout:      10,
		RateLimitMax:    30,
		RateLimitWindow: 60,
		UserAgent:       "Test Agent",
		Version:         "test-version",
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.BaseUrl != "https://example.com" {
		t.Errorf("Expected base URL 'https://example.com', got '%s'", cfg.BaseUrl)
	}
	if cfg.HubUrl != "https://pubsubhubbub.appspot.com/" {
		t.Errorf("Expected default hub URL, got '%s'", cfg.HubUrl)
	}
	if cfg.RateLimitMax != 30 {
		t.Errorf("Expected rate limit max 30, got %d", cfg.RateLimitMax)
	}
}
