package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	HTTP     HTTPConfig
	Browser  BrowserConfig
	Profiles ProfileConfig
	Cleaner  CleanerConfig
	Log      LogConfig
}

// HTTPConfig controls the two HTTP strategies.
type HTTPConfig struct {
	// Timeout is the deadline for the plain HTTP strategy.
	Timeout time.Duration // default: 15s

	// StealthTimeout is the deadline for the TLS-fingerprint strategy.
	// Slightly longer because challenge pages take a moment to clear.
	StealthTimeout time.Duration // default: 20s
}

// BrowserConfig controls the three browser strategies.
type BrowserConfig struct {
	// Headless controls whether browsers run headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Bin overrides the Chromium binary path. Empty means auto-detect.
	Bin string

	// NavTimeout is the deadline for a full browser attempt
	// (launch, navigate, wait, extract).
	NavTimeout time.Duration // default: 60s

	// SettleDelay is the short wait after network idle in the ephemeral
	// browser strategy.
	SettleDelay time.Duration // default: 3s

	// ProfileSettleDelay is the fixed render wait used by the
	// profile-capable strategies, which skip network-idle detection.
	ProfileSettleDelay time.Duration // default: 5s
}

// ProfileConfig holds optional paths to pre-authenticated browser profile
// directories. They are supplied by the caller and read-only to us: a path
// that does not exist on disk is silently ignored and the strategy runs an
// anonymous session.
type ProfileConfig struct {
	Rod      string
	Chromedp string
}

// CleanerConfig controls markup normalization.
type CleanerConfig struct {
	// MinArticleChars is the minimum extracted text length for readability
	// output to count as a genuine article.
	MinArticleChars int // default: 50
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
// Per-run options (mode, format, output path, headers) come from CLI flags;
// profile paths can come from either, with the flag winning.
func Load() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:        envDurationOr("WEBFALL_HTTP_TIMEOUT", 15*time.Second),
			StealthTimeout: envDurationOr("WEBFALL_STEALTH_TIMEOUT", 20*time.Second),
		},
		Browser: BrowserConfig{
			Headless:           envBoolOr("WEBFALL_HEADLESS", true),
			NoSandbox:          envBoolOr("WEBFALL_NO_SANDBOX", false),
			Bin:                os.Getenv("WEBFALL_BROWSER_BIN"),
			NavTimeout:         envDurationOr("WEBFALL_NAV_TIMEOUT", 60*time.Second),
			SettleDelay:        envDurationOr("WEBFALL_SETTLE_DELAY", 3*time.Second),
			ProfileSettleDelay: envDurationOr("WEBFALL_PROFILE_SETTLE_DELAY", 5*time.Second),
		},
		Profiles: ProfileConfig{
			Rod:      os.Getenv("WEBFALL_ROD_PROFILE"),
			Chromedp: os.Getenv("WEBFALL_CHROMEDP_PROFILE"),
		},
		Cleaner: CleanerConfig{
			MinArticleChars: envIntOr("WEBFALL_MIN_ARTICLE_CHARS", 50),
		},
		Log: LogConfig{
			Level:  envOr("WEBFALL_LOG_LEVEL", "info"),
			Format: envOr("WEBFALL_LOG_FORMAT", "text"),
		},
	}
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
		if n, err := strconv.Atoi(v); err == nil {
			return n
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

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
