// Package config loads leadforge's runtime configuration from
// environment variables, with sane defaults for every field.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/use-agent/leadforge/internal/aggregate"
	"github.com/use-agent/leadforge/internal/browser"
	"github.com/use-agent/leadforge/internal/fetch"
	"github.com/use-agent/leadforge/internal/filter"
	"github.com/use-agent/leadforge/internal/ratelimit"
)

// Config holds all application configuration.
type Config struct {
	Directory DirectoryConfig
	Fetch     fetch.Config
	Browser   browser.Config
	RateLimit RateLimitConfig
	Matching  aggregate.MatchWeights
	Filter    filter.Config
	Export    ExportConfig
	Log       LogConfig
}

// DirectoryConfig controls the listing directory being scraped.
type DirectoryConfig struct {
	BaseURL string // default: "https://www.gelbeseiten.de/suche"
	Host    string // default: "www.gelbeseiten.de"
}

// RateLimitConfig selects and tunes the Rate Governor profile.
type RateLimitConfig struct {
	// Stealth switches from the default profile to the conservative
	// stealth profile (longer delays, hourly ceiling, session cap).
	Stealth bool // default: false

	// SessionCap bounds a stealth session's total run time; ignored
	// unless Stealth is set. 0 uses the stealth profile's own default
	// (180 minutes).
	SessionCap time.Duration
}

// ExportConfig controls default export behavior.
type ExportConfig struct {
	Format        string // "json", "csv", or "both"; default: "json"
	OutputDir     string // default: "."
	CSVColumns    string // "minimal", "default", "full"; default: "default"
	IncludeMeta   bool   // default: true
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane
// defaults.
func Load() *Config {
	stealth := envBoolOr("LEADFORGE_STEALTH", false)

	return &Config{
		Directory: DirectoryConfig{
			BaseURL: envOr("LEADFORGE_DIRECTORY_URL", "https://www.gelbeseiten.de/suche"),
			Host:    envOr("LEADFORGE_DIRECTORY_HOST", "www.gelbeseiten.de"),
		},
		Fetch: fetch.Config{
			ConnectTimeout: envDurationOr("LEADFORGE_CONNECT_TIMEOUT", 10*time.Second),
			ReadTimeout:    envDurationOr("LEADFORGE_READ_TIMEOUT", 30*time.Second),
			RotateUAEvery:  envIntOr("LEADFORGE_ROTATE_UA_EVERY", 10),
		},
		Browser: browser.Config{
			Headless:    envBoolOr("LEADFORGE_HEADLESS", true),
			NoSandbox:   envBoolOr("LEADFORGE_NO_SANDBOX", false),
			BrowserBin:  os.Getenv("LEADFORGE_BROWSER_BIN"),
			RotateEvery: envIntOr("LEADFORGE_ROTATE_PAGE_EVERY", 10),
		},
		RateLimit: RateLimitConfig{
			Stealth:    stealth,
			SessionCap: envDurationOr("LEADFORGE_SESSION_CAP", 0),
		},
		Matching: aggregate.MatchWeights{
			Phone:     envFloatOr("LEADFORGE_MATCH_WEIGHT_PHONE", 1.0),
			Name:      envFloatOr("LEADFORGE_MATCH_WEIGHT_NAME", 0.8),
			Address:   envFloatOr("LEADFORGE_MATCH_WEIGHT_ADDRESS", 0.6),
			Threshold: envFloatOr("LEADFORGE_MATCH_THRESHOLD", 0.85),
		},
		Filter: filter.Config{
			IncludeNoWebsite:      envBoolOr("LEADFORGE_INCLUDE_NO_WEBSITE", true),
			IncludeOldWebsite:     envBoolOr("LEADFORGE_INCLUDE_OLD_WEBSITE", true),
			IncludeModernWebsite:  envBoolOr("LEADFORGE_INCLUDE_MODERN_WEBSITE", true),
			IncludeUnknownWebsite: envBoolOr("LEADFORGE_INCLUDE_UNKNOWN_WEBSITE", true),
			MinQualityScore:       envIntOr("LEADFORGE_MIN_QUALITY_SCORE", 0),
			RequirePhone:          envBoolOr("LEADFORGE_REQUIRE_PHONE", false),
			RequireEmail:          envBoolOr("LEADFORGE_REQUIRE_EMAIL", false),
			RequireAddress:        envBoolOr("LEADFORGE_REQUIRE_ADDRESS", false),
		},
		Export: ExportConfig{
			Format:      envOr("LEADFORGE_EXPORT_FORMAT", "json"),
			OutputDir:   envOr("LEADFORGE_OUTPUT_DIR", "."),
			CSVColumns:  envOr("LEADFORGE_CSV_COLUMNS", "default"),
			IncludeMeta: envBoolOr("LEADFORGE_EXPORT_META", true),
		},
		Log: LogConfig{
			Level:  envOr("LEADFORGE_LOG_LEVEL", "info"),
			Format: envOr("LEADFORGE_LOG_FORMAT", "text"),
		},
	}
}

// RatelimitParams resolves the Rate Governor parameters this config
// selects: the stealth profile when RateLimit.Stealth is set, the
// default profile otherwise.
func (c *Config) RatelimitParams() ratelimit.Params {
	if c.RateLimit.Stealth {
		return ratelimit.StealthParams(c.RateLimit.SessionCap)
	}
	return ratelimit.DefaultParams()
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
