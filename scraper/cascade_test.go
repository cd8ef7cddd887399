package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"webfall/cleaner"
	"webfall/engine"
	"webfall/models"
)

// stubEngine is a scripted strategy for cascade tests.
type stubEngine struct {
	name       string
	html       string
	title      string
	finalURL   string
	statusCode int
	err        error
	panics     bool
	calls      int
	gotHeaders map[string]string
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	s.calls++
	s.gotHeaders = req.Headers
	if s.panics {
		panic("capability provider blew up")
	}
	if s.err != nil {
		return nil, s.err
	}
	return &engine.FetchResult{
		HTML:       s.html,
		Title:      s.title,
		FinalURL:   s.finalURL,
		StatusCode: s.statusCode,
		EngineName: s.name,
	}, nil
}

func newCascade(engines ...engine.Engine) *Cascade {
	return New(engines, cleaner.NewCleaner(0))
}

// checkInvariant verifies the content/strategy/error co-presence invariant.
func checkInvariant(t *testing.T, r *models.CascadeResult) {
	t.Helper()
	hasContent := r.Content != nil
	hasStrategy := r.Strategy != nil
	hasError := r.Error != nil
	if hasContent != hasStrategy {
		t.Errorf("content presence (%v) != strategy presence (%v)", hasContent, hasStrategy)
	}
	if hasContent == hasError {
		t.Errorf("content presence (%v) must be the inverse of error presence (%v)", hasContent, hasError)
	}
}

func TestRun_InvalidURLSkipsAllStrategies(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"wrong scheme", "ftp://example.com"},
		{"not a url", "not-a-url"},
		{"empty", ""},
		{"file scheme", "file:///etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := &stubEngine{name: "http", html: "should never run"}
			result := newCascade(spy).Run(context.Background(), &models.Job{URL: tt.url, Mode: cleaner.ModeCleaned})

			checkInvariant(t, result)
			if spy.calls != 0 {
				t.Errorf("strategy invoked %d times for invalid URL", spy.calls)
			}
			if result.Error == nil || result.Error.Code != models.ErrCodeInvalidInput {
				t.Errorf("expected %s, got %+v", models.ErrCodeInvalidInput, result.Error)
			}
			if len(result.Attempted) != 0 {
				t.Errorf("attempted chain should be empty, got %v", result.Attempted)
			}
		})
	}
}

func TestRun_FirstSuccessShortCircuits(t *testing.T) {
	first := &stubEngine{name: "http", html: "<html><body><p>fast path</p></body></html>"}
	spy := &stubEngine{name: "rod"}

	result := newCascade(first, spy).Run(context.Background(),
		&models.Job{URL: "https://example.com", Mode: cleaner.ModeRaw})

	checkInvariant(t, result)
	if !result.Succeeded() {
		t.Fatalf("expected success, got error %+v", result.Error)
	}
	if spy.calls != 0 {
		t.Errorf("later strategy invoked %d times after earlier success", spy.calls)
	}
	if *result.Strategy != "http" {
		t.Errorf("strategy = %q, want %q", *result.Strategy, "http")
	}
}

func TestRun_FallsThroughToBrowserStrategy(t *testing.T) {
	httpErr := models.NewScrapeError(models.ErrCodeHTTP, "http: HTTP 403", nil)
	failing1 := &stubEngine{name: "http", err: httpErr}
	failing2 := &stubEngine{name: "http-stealth", err: httpErr}
	browser := &stubEngine{name: "rod", html: "<html><body><main>Hello</main></body></html>"}

	result := newCascade(failing1, failing2, browser).Run(context.Background(),
		&models.Job{URL: "https://example.com", Mode: cleaner.ModeCleaned})

	checkInvariant(t, result)
	if !result.Succeeded() {
		t.Fatalf("expected success, got error %+v", result.Error)
	}
	if *result.Content != "Hello" {
		t.Errorf("content = %q, want %q", *result.Content, "Hello")
	}
	if *result.Strategy != "rod" {
		t.Errorf("strategy = %q, want %q", *result.Strategy, "rod")
	}
	if !result.Normalized {
		t.Error("normalized should be true for cleaned mode")
	}
	if failing1.calls != 1 || failing2.calls != 1 || browser.calls != 1 {
		t.Errorf("call counts = %d/%d/%d, want 1/1/1",
			failing1.calls, failing2.calls, browser.calls)
	}
}

func TestRun_AllStrategiesFail(t *testing.T) {
	e1 := &stubEngine{name: "http", err: errors.New("connection refused")}
	e2 := &stubEngine{name: "rod", err: errors.New("navigation timeout")}

	result := newCascade(e1, e2).Run(context.Background(),
		&models.Job{URL: "https://example.com", Mode: cleaner.ModeCleaned})

	checkInvariant(t, result)
	if result.Succeeded() {
		t.Fatal("expected failure")
	}
	if result.Error.Code != models.ErrCodeAllFailed {
		t.Errorf("error code = %q, want %q", result.Error.Code, models.ErrCodeAllFailed)
	}
	if result.Content != nil {
		t.Errorf("content should be absent, got %q", *result.Content)
	}
	// The terminal failure names the last-attempted strategy.
	if got := result.Error.Message; !strings.Contains(got, "rod") {
		t.Errorf("failure message should name the last strategy, got %q", got)
	}
	if len(result.Attempted) != 2 {
		t.Errorf("attempted = %v, want both strategies", result.Attempted)
	}
}

func TestRun_EmptyPageIsSuccess(t *testing.T) {
	empty := &stubEngine{name: "http", html: ""}

	result := newCascade(empty).Run(context.Background(),
		&models.Job{URL: "https://example.com", Mode: cleaner.ModeRaw})

	checkInvariant(t, result)
	if !result.Succeeded() {
		t.Fatalf("empty page should be a success, got error %+v", result.Error)
	}
	if *result.Content != "" {
		t.Errorf("content = %q, want empty string", *result.Content)
	}
}

func TestRun_PanicIsAbsorbed(t *testing.T) {
	exploding := &stubEngine{name: "http", panics: true}
	rescue := &stubEngine{name: "rod", html: "<html><body>rescued</body></html>"}

	result := newCascade(exploding, rescue).Run(context.Background(),
		&models.Job{URL: "https://example.com", Mode: cleaner.ModeRaw})

	checkInvariant(t, result)
	if !result.Succeeded() {
		t.Fatalf("panic in one strategy must not abort the cascade, got %+v", result.Error)
	}
	if *result.Strategy != "rod" {
		t.Errorf("strategy = %q, want %q", *result.Strategy, "rod")
	}
}

func TestRun_PanicInLastStrategyFailsCleanly(t *testing.T) {
	exploding := &stubEngine{name: "rod", panics: true}

	result := newCascade(exploding).Run(context.Background(),
		&models.Job{URL: "https://example.com", Mode: cleaner.ModeRaw})

	checkInvariant(t, result)
	if result.Succeeded() {
		t.Fatal("expected failure")
	}
	if result.Error.Code != models.ErrCodeAllFailed {
		t.Errorf("error code = %q, want %q", result.Error.Code, models.ErrCodeAllFailed)
	}
}

func TestRun_CanceledContextStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	spy := &stubEngine{name: "http", html: "never"}
	result := newCascade(spy).Run(ctx, &models.Job{URL: "https://example.com", Mode: cleaner.ModeRaw})

	checkInvariant(t, result)
	if result.Succeeded() {
		t.Fatal("expected failure on canceled context")
	}
	if spy.calls != 0 {
		t.Errorf("strategy invoked %d times after cancellation", spy.calls)
	}
	// No strategy actually ran, so the message must not name one.
	if strings.Contains(result.Error.Message, "last:") {
		t.Errorf("failure message names a strategy that never ran: %q", result.Error.Message)
	}
}

func TestRun_NoStrategiesConfigured(t *testing.T) {
	result := newCascade().Run(context.Background(),
		&models.Job{URL: "https://example.com", Mode: cleaner.ModeRaw})

	checkInvariant(t, result)
	if result.Succeeded() {
		t.Fatal("expected failure with no strategies")
	}
	if result.Error.Code != models.ErrCodeAllFailed {
		t.Errorf("error code = %q, want %q", result.Error.Code, models.ErrCodeAllFailed)
	}
	if got := result.Error.Message; got != "all strategies failed" {
		t.Errorf("failure message = %q, want %q", got, "all strategies failed")
	}
}

func TestRun_HeadersReachEveryStrategy(t *testing.T) {
	headers := map[string]string{"Authorization": "Bearer tok", "X-Trace": "1"}
	failing := &stubEngine{name: "http", err: errors.New("blocked")}
	winning := &stubEngine{name: "rod", html: "<html><body>ok</body></html>"}

	result := newCascade(failing, winning).Run(context.Background(),
		&models.Job{URL: "https://example.com", Mode: cleaner.ModeRaw, Headers: headers})

	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result.Error)
	}
	for _, s := range []*stubEngine{failing, winning} {
		if s.gotHeaders["Authorization"] != "Bearer tok" || s.gotHeaders["X-Trace"] != "1" {
			t.Errorf("strategy %q saw headers %v, want %v", s.name, s.gotHeaders, headers)
		}
	}
}

func TestRun_FetchMetadataSurfaces(t *testing.T) {
	page := &stubEngine{
		name:       "http",
		html:       "<html><head><title>Example</title></head><body>hi</body></html>",
		title:      "Example",
		finalURL:   "https://example.com/en",
		statusCode: 200,
	}

	result := newCascade(page).Run(context.Background(),
		&models.Job{URL: "https://example.com", Mode: cleaner.ModeRaw})

	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result.Error)
	}
	if result.Title != "Example" {
		t.Errorf("title = %q, want %q", result.Title, "Example")
	}
	if result.FinalURL != "https://example.com/en" {
		t.Errorf("final URL = %q, want the post-redirect URL", result.FinalURL)
	}
	if result.StatusCode != 200 {
		t.Errorf("status code = %d, want 200", result.StatusCode)
	}
}

func TestRun_SelectorScopesContent(t *testing.T) {
	page := &stubEngine{name: "http",
		html: `<html><body><div id="noise">skip me</div><div id="target"><p>keep me</p></div></body></html>`}

	result := newCascade(page).Run(context.Background(),
		&models.Job{URL: "https://example.com", Mode: cleaner.ModeCleaned, Selector: "#target"})

	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result.Error)
	}
	if *result.Content != "keep me" {
		t.Errorf("content = %q, want %q", *result.Content, "keep me")
	}
}

func TestRun_NormalizationDegradationIsVisible(t *testing.T) {
	// Raw mode applies no transform, so the normalized flag must be false.
	page := &stubEngine{name: "http", html: "<html><body>hi</body></html>"}

	result := newCascade(page).Run(context.Background(),
		&models.Job{URL: "https://example.com", Mode: cleaner.ModeRaw})

	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result.Error)
	}
	if result.Normalized {
		t.Error("normalized should be false in raw mode")
	}
}
