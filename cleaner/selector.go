package cleaner

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Scope narrows rawHTML to the elements matching the CSS selector, returning
// their concatenated outer HTML and how many elements matched. Zero matches
// is not an error: the original markup comes back unchanged so downstream
// normalization still has something to work with, and the caller can tell
// from the count that nothing was scoped.
func (c *Cleaner) Scope(rawHTML, selector string) (string, int, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", 0, err
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", 0, err
	}

	matches := cascadia.QueryAll(doc, sel)
	if len(matches) == 0 {
		return rawHTML, 0, nil
	}

	var b strings.Builder
	for _, node := range matches {
		if err := html.Render(&b, node); err != nil {
			return "", 0, err
		}
	}
	return b.String(), len(matches), nil
}
