package engine

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"webfall/models"
)

// RodProfileEngine is the second browser strategy: rod with stealth JS
// injection and optional reuse of a pre-authenticated profile directory.
// When the profile path is missing or does not exist on disk the engine
// silently runs an anonymous session. It uses a fixed settle delay instead
// of network-idle detection.
type RodProfileEngine struct {
	browser     Browser
	profilePath string
	navTimeout  time.Duration
	settleDelay time.Duration
}

// NewRodProfileEngine creates a RodProfileEngine. profilePath may be empty.
func NewRodProfileEngine(browser Browser, profilePath string, navTimeout, settleDelay time.Duration) *RodProfileEngine {
	if !browser.Available {
		slog.Warn("no browser binary found, strategy will be skipped", "strategy", "rod-profile")
	}
	return &RodProfileEngine{
		browser:     browser,
		profilePath: profilePath,
		navTimeout:  navTimeout,
		settleDelay: settleDelay,
	}
}

func (e *RodProfileEngine) Name() string { return "rod-profile" }

func (e *RodProfileEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if !e.browser.Available {
		return nil, models.NewScrapeError(models.ErrCodeStrategyUnavailable,
			"rod-profile: no browser binary on this system", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, e.navTimeout)
	defer cancel()

	l := newLauncher(e.browser)
	profile := usableProfile(e.profilePath, e.Name())
	if profile != "" {
		l = l.UserDataDir(profile)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeStrategy,
			"rod-profile: failed to launch browser", err)
	}
	// Kill on every exit path. Cleanup is only safe for anonymous sessions:
	// it removes the user-data dir, which must never touch a caller profile.
	defer func() {
		l.Kill()
		if profile == "" {
			l.Cleanup()
		}
	}()

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeStrategy,
			"rod-profile: failed to connect to browser", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			slog.Debug("rod-profile: browser close", "error", closeErr)
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeStrategy,
			"rod-profile: failed to create page", err)
	}

	p := page.Context(ctx)

	// Stealth must be injected before navigation to take effect.
	if _, evalErr := p.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth",
			"error", evalErr)
	}
	applyHeaders(p, req.Headers)

	if err := p.Navigate(req.URL); err != nil {
		return nil, categorizeNavError(err, "rod-profile: navigation failed")
	}
	settle(ctx, e.settleDelay)

	return extractPage(p, req.URL, e.Name())
}

// usableProfile returns the profile path when it exists on disk, otherwise
// empty. A nonexistent profile is not an error: the strategy falls back to
// an anonymous session.
func usableProfile(path, strategy string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		slog.Debug("profile path not found, using anonymous session",
			"strategy", strategy, "path", path)
		return ""
	}
	slog.Info("using browser profile", "strategy", strategy, "path", path)
	return path
}
