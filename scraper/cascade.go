package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"webfall/cleaner"
	"webfall/engine"
	"webfall/models"
)

// Cascade owns the statically ordered strategy list and tries each in turn
// until one succeeds. Strategies are ordered cheapest first: most pages
// don't need a full browser, so the expensive ones only run when the cheap
// ones fail. Execution is strictly sequential — browser instances are
// heavyweight, so nothing runs in parallel or speculatively.
type Cascade struct {
	engines []engine.Engine
	cleaner *cleaner.Cleaner
}

// New creates a Cascade over the given strategies, which run in slice order.
func New(engines []engine.Engine, cl *cleaner.Cleaner) *Cascade {
	return &Cascade{engines: engines, cleaner: cl}
}

// Run executes the cascade for one job and returns its sole artifact.
//
// The URL scheme is validated before any strategy runs. Each attempt is
// fault-isolated: errors and panics inside a strategy are absorbed and the
// loop falls through to the next one. On the first success the configured
// normalization mode is applied and remaining strategies are never invoked.
func (c *Cascade) Run(ctx context.Context, job *models.Job) *models.CascadeResult {
	result := &models.CascadeResult{URL: job.URL}

	u, err := url.Parse(job.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		slog.Error("invalid target URL, must start with http:// or https://", "url", job.URL)
		result.Error = models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("invalid URL %q: scheme must be http or https", job.URL), err).ToDetail()
		return result
	}

	req := &engine.FetchRequest{URL: job.URL, Headers: job.Headers}

	var lastErr error
	var lastName string
	for _, eng := range c.engines {
		if ctx.Err() != nil {
			lastErr = models.NewScrapeError(models.ErrCodeStrategy,
				"run interrupted", ctx.Err())
			break
		}

		name := eng.Name()
		result.Attempted = append(result.Attempted, name)
		slog.Info("trying strategy", "strategy", name, "url", job.URL)
		start := time.Now()

		fetched, err := c.attempt(ctx, eng, req)
		if err != nil {
			slog.Info("strategy failed",
				"strategy", name, "url", job.URL,
				"elapsed", time.Since(start).Round(time.Millisecond), "error", err)
			lastErr, lastName = err, name
			continue
		}

		// An empty page is still a success: the strategy answered, the
		// resource just has no content.
		slog.Info("strategy succeeded",
			"strategy", name, "url", job.URL,
			"elapsed", time.Since(start).Round(time.Millisecond),
			"bytes", len(fetched.HTML),
			"title", fetched.Title, "final_url", fetched.FinalURL,
			"status", fetched.StatusCode)

		content := fetched.HTML
		if job.Selector != "" {
			scoped, matches, selErr := c.cleaner.Scope(content, job.Selector)
			if selErr != nil {
				slog.Warn("selector scoping failed, using full document",
					"selector", job.Selector, "error", selErr)
			} else {
				slog.Debug("selector scoped", "selector", job.Selector, "matches", matches)
				content = scoped
			}
		}

		content, applied := c.cleaner.Normalize(content, job.URL, job.Mode)
		result.Content = &content
		result.Strategy = &name
		result.Normalized = applied
		result.Title = fetched.Title
		result.FinalURL = fetched.FinalURL
		result.StatusCode = fetched.StatusCode
		return result
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no strategies configured")
	}
	// lastName is empty when cancellation preempted the first attempt or no
	// strategies were configured.
	msg := "all strategies failed"
	if lastName != "" {
		msg = fmt.Sprintf("all strategies failed (last: %s)", lastName)
	}
	slog.Error("all strategies failed", "url", job.URL,
		"attempted", result.Attempted, "last", lastName, "error", lastErr)
	result.Error = models.NewScrapeError(models.ErrCodeAllFailed, msg, lastErr).ToDetail()
	return result
}

// attempt invokes one strategy, converting any panic from its capability
// provider into a strategy error so a single fault can never abort the
// cascade.
func (c *Cascade) attempt(ctx context.Context, eng engine.Engine, req *engine.FetchRequest) (result *engine.FetchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = models.NewScrapeError(models.ErrCodeStrategy,
				fmt.Sprintf("%s: internal fault", eng.Name()),
				fmt.Errorf("panic: %v", r))
		}
	}()
	return eng.Fetch(ctx, req)
}
