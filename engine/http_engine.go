package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"webfall/models"
)

// maxBody caps response reads at 10 MB to prevent unbounded memory use.
const maxBody = 10 << 20

// HTTPEngine is the cheapest strategy: a single plain net/http GET with
// browser-like headers. Suitable for static pages that don't fingerprint
// clients or need JavaScript.
type HTTPEngine struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPEngine creates an HTTPEngine with the given per-attempt timeout.
func NewHTTPEngine(timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		timeout: timeout,
	}
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return doGet(ctx, e.client, req, e.Name())
}

// doGet performs one browser-imitating GET and converts any transport error
// or non-2xx status into an HTTP_ERROR. Shared by both HTTP strategies.
func doGet(ctx context.Context, client *http.Client, req *FetchRequest, name string) (*FetchResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeHTTP,
			fmt.Sprintf("%s: build request", name), err)
	}

	// Simulate browser-like headers.
	httpReq.Header.Set("User-Agent", chromeUA)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "identity") // no compression for simplicity

	// Apply custom headers (override defaults if provided).
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeHTTP,
			fmt.Sprintf("%s: request failed", name), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeHTTP,
			fmt.Sprintf("%s: read body", name), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, models.NewScrapeError(models.ErrCodeHTTP,
			fmt.Sprintf("%s: HTTP %d for %s", name, resp.StatusCode, req.URL), nil)
	}

	bodyStr := string(body)
	return &FetchResult{
		HTML:       bodyStr,
		Title:      extractTitle(bodyStr),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		EngineName: name,
	}, nil
}

// extractTitle uses the Go HTML tokenizer to find the first <title> element.
func extractTitle(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	inTitle := false
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}
