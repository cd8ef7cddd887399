package cleaner

import (
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Normalization modes.
const (
	// ModeRaw passes the fetched markup through untouched.
	ModeRaw = "raw"

	// ModeCleaned strips noise elements and extracts legible text from the
	// primary content root.
	ModeCleaned = "cleaned"

	// ModeMarkdown converts readability-extracted content to Markdown.
	ModeMarkdown = "markdown"

	// ModeArticle returns the plain text extracted by readability.
	ModeArticle = "article"
)

// defaultMinArticleChars is the fallback plausibility threshold for
// readability output when the configured value is missing or nonsensical.
const defaultMinArticleChars = 50

// ValidMode reports whether mode names a supported normalization mode.
func ValidMode(mode string) bool {
	switch mode {
	case ModeRaw, ModeCleaned, ModeMarkdown, ModeArticle:
		return true
	}
	return false
}

// Cleaner normalizes raw markup into the requested output mode.
// The Markdown converter is created once and reused across calls.
type Cleaner struct {
	mdConverter     *converter.Converter
	minArticleChars int
}

// NewCleaner builds a Cleaner. minArticleChars is the minimum extracted text
// length for readability output to count as a genuine article; values <= 0
// select the default. The converter stack:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta, link,
//     input, textarea and HTML comments.
//   - commonmark plugin: standard Markdown rendering.
//   - table plugin: keeps table structure, with minimal cell padding so
//     wide tables stay compact.
func NewCleaner(minArticleChars int) *Cleaner {
	if minArticleChars <= 0 {
		minArticleChars = defaultMinArticleChars
	}
	return &Cleaner{
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
		minArticleChars: minArticleChars,
	}
}

// Normalize transforms rawHTML according to mode and reports whether a
// structural transform was actually applied. It never fails: any internal
// error degrades to returning the unmodified markup with applied=false and
// a warn log naming the reason, so a normalization problem can never sink a
// successful fetch.
func (c *Cleaner) Normalize(rawHTML, sourceURL, mode string) (content string, applied bool) {
	switch mode {
	case ModeRaw:
		return rawHTML, false

	case ModeMarkdown:
		article, _ := c.extractArticle(rawHTML, sourceURL)
		// WithDomain resolves relative link and image URLs against the page
		// URL so the Markdown is self-contained.
		md, err := c.mdConverter.ConvertString(article.Content, converter.WithDomain(sourceURL))
		if err != nil {
			slog.Warn("cleaner: returning raw markup",
				"mode", mode, "url", sourceURL, "reason", "markdown conversion failed", "error", err)
			return rawHTML, false
		}
		return strings.TrimSpace(md), true

	case ModeArticle:
		article, reason := c.extractArticle(rawHTML, sourceURL)
		if reason != "" {
			slog.Warn("cleaner: returning raw markup",
				"mode", mode, "url", sourceURL, "reason", reason)
			return rawHTML, false
		}
		return strings.TrimSpace(article.TextContent), true

	default: // ModeCleaned
		text, err := CleanText(rawHTML)
		if err != nil {
			slog.Warn("cleaner: returning raw markup",
				"mode", mode, "url", sourceURL, "reason", "structural parse failed", "error", err)
			return rawHTML, false
		}
		return text, true
	}
}
