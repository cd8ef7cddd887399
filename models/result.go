package models

// Job describes one retrieval run. It is built once in main and read-only
// afterwards.
type Job struct {
	// URL is the absolute target URL (http or https).
	URL string

	// Mode selects how the fetched markup is normalized:
	// "raw", "cleaned", "markdown" or "article".
	Mode string

	// Selector optionally scopes the fetched HTML to matching elements
	// before normalization. Empty means the whole document.
	Selector string

	// Headers are extra HTTP headers sent with every strategy's request,
	// overriding the browser-imitating defaults on key collision.
	Headers map[string]string
}

// CascadeResult is the sole artifact of a retrieval run.
//
// Invariant: Content and Strategy are both non-nil iff Error is nil.
// An empty *string Content is a valid success (empty page); a nil Content
// means no strategy produced content.
type CascadeResult struct {
	URL        string       `json:"url"`
	Content    *string      `json:"content"`
	Strategy   *string      `json:"strategy"`
	Normalized bool         `json:"normalized"`
	Error      *ErrorDetail `json:"error"`

	// Page metadata from the winning fetch. Omitted when the engine could
	// not determine them and on failure.
	Title      string `json:"title,omitempty"`
	FinalURL   string `json:"final_url,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`

	// Attempted lists the strategies tried, in order. Used for the
	// plain-text failure message; not part of the structured record.
	Attempted []string `json:"-"`
}

// Succeeded reports whether a strategy produced content.
func (r *CascadeResult) Succeeded() bool {
	return r.Error == nil && r.Content != nil
}
