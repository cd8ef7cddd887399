package cleaner

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// noiseSelector matches elements that never carry readable content:
// scripts, styles, page chrome, forms and interactive controls, metadata.
const noiseSelector = "script, style, nav, footer, aside, header, form, iframe, " +
	"button, input, textarea, select, option, noscript, link, meta"

// contentRoots is the primary-content selection priority. First match wins;
// body always matches on a parsed document, so the fallback is implicit.
var contentRoots = []string{"main", "article", `[role="main"]`, "body"}

// blockTags are elements whose boundaries become line breaks in the
// extracted text.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "html": true, "li": true, "main": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tbody": true, "tfoot": true, "thead": true, "tr": true, "ul": true,
}

// blankRun matches a whitespace-only gap between two newlines, i.e. one or
// more consecutive blank lines.
var blankRun = regexp.MustCompile(`\n\s*\n`)

// CleanText deterministically collapses markup into legible text:
// parse, drop noise elements, pick the primary content root, extract visible
// text with block-level line breaks, collapse blank-line runs, trim.
//
// The transform is idempotent: plain text parses to a single text node that
// is emitted verbatim, and the collapse and trim steps are fixpoints on
// their own output.
func CleanText(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	doc.Find(noiseSelector).Remove()

	root := doc.Selection
	for _, sel := range contentRoots {
		if s := doc.Find(sel); s.Length() > 0 {
			root = s.First()
			break
		}
	}

	var b strings.Builder
	for _, n := range root.Nodes {
		writeVisibleText(&b, n)
	}

	return strings.TrimSpace(blankRun.ReplaceAllString(b.String(), "\n\n")), nil
}

// writeVisibleText walks the node tree emitting text node contents verbatim
// and a newline at each block-element boundary. Whitespace-only text nodes
// (indentation and gaps between tags) collapse to a single space: the gap in
// `<b>Hello</b> <i>world</i>` is a word boundary and must survive, but must
// not manufacture blank lines. The blank-run collapse absorbs the space when
// it sits between two block breaks.
func writeVisibleText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			b.WriteString(n.Data)
		} else if n.Data != "" {
			b.WriteByte(' ')
		}
	case html.ElementNode:
		block := blockTags[n.Data]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeVisibleText(b, c)
		}
		if block {
			b.WriteByte('\n')
		}
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeVisibleText(b, c)
		}
	}
	// Comments and doctypes are dropped.
}
