package cleaner

import (
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// extractArticle runs the Mozilla Readability algorithm on rawHTML. The
// second return is the degradation reason: empty means extraction genuinely
// succeeded, anything else names why the result is untrustworthy. On every
// degraded path the returned Article wraps the raw markup so callers can
// proceed uniformly with whichever field they consume.
func (c *Cleaner) extractArticle(rawHTML, sourceURL string) (readability.Article, string) {
	passthrough := readability.Article{Content: rawHTML, TextContent: rawHTML}

	pageURL, err := nurl.Parse(sourceURL)
	if err != nil {
		return passthrough, "source URL unparsable"
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), pageURL)
	if err != nil {
		return passthrough, "readability found no article"
	}

	// A handful of characters means readability latched onto a fragment,
	// not the page's content.
	if len(strings.TrimSpace(article.TextContent)) < c.minArticleChars {
		return passthrough, "extracted article implausibly short"
	}

	return article, ""
}
