package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/aznews/internal/news"
)

// Banker lists the banking category of banker.az.
type Banker struct {
	*site
}

func NewBanker(f Fetcher, opts ...Option) *Banker {
	return &Banker{site: newSite("Banker.az", "https://banker.az", f, opts)}
}

func (b *Banker) ListArticleURLs(ctx context.Context, page int, _ string) []string {
	path := "category/xYbYrlYr/"
	if page > 1 {
		path = fmt.Sprintf("category/xYbYrlYr/page/%d/", page)
	}
	doc := b.page(ctx, b.url(path))
	if doc == nil {
		return []string{}
	}

	var links linkSet
	doc.Find(".td_module_wrap h3.entry-title a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			links.add(b.abs(href))
		}
	})
	return links.list()
}

func (b *Banker) ScrapeArticle(ctx context.Context, url string) (*news.Article, error) {
	doc := b.page(ctx, url)
	if doc == nil {
		return nil, b.unavailable(url)
	}

	title := firstText(doc, true, "h1.tdb-title-text")
	if title == "" {
		return nil, b.missing(url, "title")
	}

	var published *time.Time
	if dt, ok := doc.Find("time.entry-date").First().Attr("datetime"); ok {
		published = parseBankerDate(dt)
	}
	if published == nil {
		published = metaPublished(doc)
	}

	body := doc.Find(".tdb_single_content .tdb-block-inner").First()
	if body.Length() == 0 {
		return nil, b.missing(url, "content")
	}
	body.Find("script, style, .td-a-ad, .adsbygoogle").Remove()

	content := paragraphs(body, 10, nil)
	if content == "" {
		return nil, b.missing(url, "paragraphs")
	}
	return b.article(url, title, content, published), nil
}

// parseBankerDate reads the ISO timestamp in time[datetime],
// e.g. 2025-11-12T11:34:35+04:00.
func parseBankerDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return ptr(t)
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, news.Baku); err == nil {
		return ptr(t)
	}
	return nil
}
