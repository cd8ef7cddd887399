package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"webfall/models"
)

// RodEngine is the first browser strategy: an ephemeral rod-launched
// headless Chromium. Each attempt launches a fresh browser, navigates, waits
// for network idle plus a short settle delay, extracts the rendered HTML and
// tears the browser down. No profile support.
type RodEngine struct {
	browser     Browser
	navTimeout  time.Duration
	settleDelay time.Duration
}

// NewRodEngine creates a RodEngine. browser is the binary resolved once at
// startup by DetectBrowser.
func NewRodEngine(browser Browser, navTimeout, settleDelay time.Duration) *RodEngine {
	if !browser.Available {
		slog.Warn("no browser binary found, strategy will be skipped", "strategy", "rod")
	}
	return &RodEngine{
		browser:     browser,
		navTimeout:  navTimeout,
		settleDelay: settleDelay,
	}
}

func (e *RodEngine) Name() string { return "rod" }

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if !e.browser.Available {
		return nil, models.NewScrapeError(models.ErrCodeStrategyUnavailable,
			"rod: no browser binary on this system", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, e.navTimeout)
	defer cancel()

	l := newLauncher(e.browser)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeStrategy,
			"rod: failed to launch browser", err)
	}
	// Kill on every exit path; Cleanup removes the temporary user-data dir
	// the launcher created for this ephemeral session.
	defer func() {
		l.Kill()
		l.Cleanup()
	}()

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeStrategy,
			"rod: failed to connect to browser", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			slog.Debug("rod: browser close", "error", closeErr)
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeStrategy,
			"rod: failed to create page", err)
	}

	p := page.Context(ctx)
	applyHeaders(p, req.Headers)

	// The idle listener must be registered before Navigate, otherwise
	// in-flight requests are missed and the wait returns instantly.
	waitIdle := p.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)

	if err := p.Navigate(req.URL); err != nil {
		return nil, categorizeNavError(err, "rod: navigation failed")
	}
	waitIdle()
	settle(ctx, e.settleDelay)

	return extractPage(p, req.URL, e.Name())
}

// newLauncher builds a headless launcher with the automation-masking flag
// set shared by both rod strategies.
func newLauncher(b Browser) *launcher.Launcher {
	l := launcher.New().
		Headless(b.Headless).
		NoSandbox(b.NoSandbox).
		Bin(b.Bin)

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	return l
}

// applyHeaders sets extra HTTP headers on the page (best-effort).
func applyHeaders(p *rod.Page, headers map[string]string) {
	if len(headers) == 0 {
		return
	}
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: m}.Call(p)
}

// extractPage pulls the rendered HTML plus title and final URL off a page.
func extractPage(p *rod.Page, requestURL, engineName string) (*FetchResult, error) {
	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeNavError(err, engineName+": failed to extract page HTML")
	}

	title := evalStringOrEmpty(p, `() => document.title`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = requestURL
	}

	return &FetchResult{
		HTML:       rawHTML,
		Title:      title,
		FinalURL:   finalURL,
		EngineName: engineName,
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// categorizeNavError wraps raw navigation errors into typed ScrapeErrors.
func categorizeNavError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeStrategy, msg+": timeout", err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeStrategy, msg+": canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeStrategy, msg, err)
	}
}
