package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"webfall/models"
)

// ChromedpEngine is the third browser strategy, driving Chromium over CDP
// via chromedp instead of rod. Like RodProfileEngine it optionally reuses a
// caller-supplied profile directory and waits a fixed settle delay after
// navigation.
type ChromedpEngine struct {
	browser     Browser
	profilePath string
	navTimeout  time.Duration
	settleDelay time.Duration
}

// NewChromedpEngine creates a ChromedpEngine. profilePath may be empty.
func NewChromedpEngine(browser Browser, profilePath string, navTimeout, settleDelay time.Duration) *ChromedpEngine {
	if !browser.Available {
		slog.Warn("no browser binary found, strategy will be skipped", "strategy", "chromedp")
	}
	return &ChromedpEngine{
		browser:     browser,
		profilePath: profilePath,
		navTimeout:  navTimeout,
		settleDelay: settleDelay,
	}
}

func (e *ChromedpEngine) Name() string { return "chromedp" }

func (e *ChromedpEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if !e.browser.Available {
		return nil, models.NewScrapeError(models.ErrCodeStrategyUnavailable,
			"chromedp: no browser binary on this system", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, e.navTimeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(e.browser.Bin),
		chromedp.Flag("headless", e.browser.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if e.browser.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if profile := usableProfile(e.profilePath, e.Name()); profile != "" {
		opts = append(opts, chromedp.UserDataDir(profile))
	}

	// Cancelling the allocator context kills the browser process, so the
	// deferred cancels below cover every exit path including interrupts.
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var tasks chromedp.Tasks
	if len(req.Headers) > 0 {
		headers := make(network.Headers, len(req.Headers))
		for k, v := range req.Headers {
			headers[k] = v
		}
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}

	var rawHTML, title, finalURL string
	tasks = append(tasks,
		chromedp.Navigate(req.URL),
		chromedp.Sleep(e.settleDelay),
		chromedp.OuterHTML("html", &rawHTML, chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.Location(&finalURL),
	)
	err := chromedp.Run(taskCtx, tasks)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, models.NewScrapeError(models.ErrCodeStrategy,
				"chromedp: navigation timed out", err)
		case errors.Is(err, context.Canceled):
			return nil, models.NewScrapeError(models.ErrCodeStrategy,
				"chromedp: canceled", err)
		default:
			return nil, models.NewScrapeError(models.ErrCodeStrategy,
				"chromedp: fetch failed", err)
		}
	}

	if finalURL == "" {
		finalURL = req.URL
	}
	return &FetchResult{
		HTML:       rawHTML,
		Title:      title,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}
