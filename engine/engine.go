package engine

import (
	"context"
	"time"

	"github.com/go-rod/rod/lib/launcher"
)

// Engine is the interface every retrieval strategy implements.
// A strategy makes exactly one attempt: retries happen only by the cascade
// falling through to the next strategy.
type Engine interface {
	// Name returns the strategy identifier (e.g. "http", "rod", "chromedp").
	Name() string

	// Fetch retrieves the page content for the given request. A nil error
	// with empty HTML is a valid result (empty page).
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Browser describes the locally available Chromium binary, resolved once at
// startup and passed to every browser-based engine. When Available is false
// those engines fail immediately with STRATEGY_UNAVAILABLE instead of
// probing the system on every attempt.
type Browser struct {
	Bin       string
	Available bool
	Headless  bool
	NoSandbox bool
}

// DetectBrowser locates a Chrome/Chromium/Edge binary on the system.
// An explicit bin overrides detection.
func DetectBrowser(bin string, headless, noSandbox bool) Browser {
	if bin != "" {
		return Browser{Bin: bin, Available: true, Headless: headless, NoSandbox: noSandbox}
	}
	found, has := launcher.LookPath()
	return Browser{Bin: found, Available: has, Headless: headless, NoSandbox: noSandbox}
}

// settle waits for the given delay or until the context is done, whichever
// comes first. Used for post-navigation render waits.
func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
