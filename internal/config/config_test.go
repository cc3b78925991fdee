package config

import (
	"testing"
	"time"
)

func TestLoad_UsesDefaultsWhenEnvUnset(t *testing.T) {
	cfg := Load()
	if cfg.Directory.BaseURL != "https://www.gelbeseiten.de/suche" {
		t.Errorf("BaseURL = %q", cfg.Directory.BaseURL)
	}
	if !cfg.Browser.Headless {
		t.Errorf("expected Headless default true")
	}
	if cfg.RateLimit.Stealth {
		t.Errorf("expected Stealth default false")
	}
	if cfg.Matching.Threshold != 0.85 {
		t.Errorf("Threshold = %v, want 0.85", cfg.Matching.Threshold)
	}
}

func TestLoad_ReadsOverridesFromEnv(t *testing.T) {
	t.Setenv("LEADFORGE_HEADLESS", "false")
	t.Setenv("LEADFORGE_STEALTH", "true")
	t.Setenv("LEADFORGE_MIN_QUALITY_SCORE", "40")

	cfg := Load()
	if cfg.Browser.Headless {
		t.Errorf("expected Headless overridden to false")
	}
	if !cfg.RateLimit.Stealth {
		t.Errorf("expected Stealth overridden to true")
	}
	if cfg.Filter.MinQualityScore != 40 {
		t.Errorf("MinQualityScore = %d, want 40", cfg.Filter.MinQualityScore)
	}
}

func TestLoad_IgnoresUnparseableOverrides(t *testing.T) {
	t.Setenv("LEADFORGE_MIN_QUALITY_SCORE", "not-a-number")
	cfg := Load()
	if cfg.Filter.MinQualityScore != 0 {
		t.Errorf("MinQualityScore = %d, want default 0 on parse failure", cfg.Filter.MinQualityScore)
	}
}

func TestRatelimitParams_SelectsStealthProfile(t *testing.T) {
	cfg := &Config{RateLimit: RateLimitConfig{Stealth: true, SessionCap: 90 * time.Minute}}
	params := cfg.RatelimitParams()
	if params.SessionCap != 90*time.Minute {
		t.Errorf("SessionCap = %v, want 90m", params.SessionCap)
	}
	if params.HourlyCeiling == 0 {
		t.Errorf("expected stealth profile's hourly ceiling to be set")
	}
}

func TestRatelimitParams_DefaultProfileHasNoSessionCap(t *testing.T) {
	cfg := &Config{}
	params := cfg.RatelimitParams()
	if params.SessionCap != 0 {
		t.Errorf("SessionCap = %v, want 0 for default profile", params.SessionCap)
	}
}
