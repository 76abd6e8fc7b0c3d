package sources

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/deusflow/aznews/internal/news"
)

// metaContent returns the content attribute of <meta property=...> or
// <meta name=...>, using XPath on the parsed tree.
func metaContent(doc *goquery.Document, key string) string {
	if doc == nil || len(doc.Nodes) == 0 {
		return ""
	}
	expr := fmt.Sprintf(`//meta[@property='%s' or @name='%s']`, key, key)
	node, err := htmlquery.Query(doc.Nodes[0], expr)
	if err != nil || node == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.SelectAttr(node, "content"))
}

// metaPublished parses article:published_time when a site provides it.
func metaPublished(doc *goquery.Document) *time.Time {
	raw := metaContent(doc, "article:published_time")
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, raw, news.Baku); err == nil {
			return &t
		}
	}
	return nil
}

// firstText returns the cleaned text of the first match of the first
// selector that matches something non-empty, falling back to og:title
// when fallbackOG is set.
func firstText(doc *goquery.Document, fallbackOG bool, selectors ...string) string {
	for _, sel := range selectors {
		if text := cleanText(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	if fallbackOG {
		return cleanText(metaContent(doc, "og:title"))
	}
	return ""
}
