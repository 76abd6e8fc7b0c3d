package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/aznews/internal/news"
)

// Marja lists the bank and credit section of marja.az.
type Marja struct {
	*site
}

func NewMarja(f Fetcher, opts ...Option) *Marja {
	return &Marja{site: newSite("Marja.az", "https://marja.az", f, opts)}
}

func (m *Marja) ListArticleURLs(ctx context.Context, page int, _ string) []string {
	u := m.url("bank-kredit/12")
	if page > 1 {
		u = fmt.Sprintf("%s?page=%d", u, page)
	}
	doc := m.page(ctx, u)
	if doc == nil {
		return []string{}
	}

	var links linkSet
	doc.Find("figure.snip1208").Each(func(_ int, fig *goquery.Selection) {
		if href, ok := fig.Find("a").First().Attr("href"); ok {
			links.add(m.abs(href))
		}
	})
	return links.list()
}

func (m *Marja) ScrapeArticle(ctx context.Context, url string) (*news.Article, error) {
	doc := m.page(ctx, url)
	if doc == nil {
		return nil, m.unavailable(url)
	}

	title := firstText(doc, true, "div.news-head h2")
	if title == "" {
		return nil, m.missing(url, "title")
	}

	var published *time.Time
	if parts := doc.Find("div.news-date small"); parts.Length() >= 2 {
		published = parseMarjaDate(parts.Eq(0).Text(), parts.Eq(1).Text())
	}

	body := doc.Find("div.content-news").First()
	if body.Length() == 0 {
		return nil, m.missing(url, "content")
	}
	body.Find("script, style, iframe, .middle-single, a.text-link-underline").Remove()

	content := paragraphs(body, 10, nil)
	if content == "" {
		return nil, m.missing(url, "paragraphs")
	}
	return m.article(url, title, content, published), nil
}

// parseMarjaDate reads "14.11.2025" and "15:04" from two <small> tags.
// The date tag carries an icon glyph that is dropped.
func parseMarjaDate(date, clock string) *time.Time {
	date = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, date)
	clock = strings.TrimSpace(clock)
	if t, err := time.ParseInLocation("02.01.2006 15:04", date+" "+clock, news.Baku); err == nil {
		return ptr(t)
	}
	if t, err := time.ParseInLocation("02.01.2006", date, news.Baku); err == nil {
		return ptr(t)
	}
	return nil
}
