package sources

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/aznews/internal/news"
)

// Trend reads the business feed of az.trend.az. Only the first page is
// reachable without scripts.
type Trend struct {
	*site
}

func NewTrend(f Fetcher, opts ...Option) *Trend {
	return &Trend{site: newSite("Trend.az", "https://az.trend.az", f, opts)}
}

func (t *Trend) ListArticleURLs(ctx context.Context, page int, _ string) []string {
	if page > 1 {
		return []string{}
	}
	doc := t.page(ctx, t.url("business/"))
	if doc == nil {
		return []string{}
	}

	var links linkSet
	doc.Find("ul.news-list.with-images li").Each(func(_ int, item *goquery.Selection) {
		if href, ok := item.Find("a").First().Attr("href"); ok {
			links.add(t.abs(href))
		}
	})
	return links.list()
}

const trendDateline = "Bakı. Trend:"

func (t *Trend) ScrapeArticle(ctx context.Context, url string) (*news.Article, error) {
	doc := t.page(ctx, url)
	if doc == nil {
		return nil, t.unavailable(url)
	}

	title := firstText(doc, true, "h1")
	if title == "" {
		return nil, t.missing(url, "title")
	}

	published := metaPublished(doc)
	if published == nil {
		published = t.parseDate(doc.Find("span.date-time").First().Text())
	}

	body := doc.Find("div.article-content.article-paddings").First()
	if body.Length() == 0 {
		return nil, t.missing(url, "content")
	}
	content := paragraphs(body, 20, func(p string) (string, bool) {
		return p, !strings.HasPrefix(p, trendDateline)
	})
	if content == "" {
		return nil, t.missing(url, "paragraphs")
	}
	return t.article(url, title, content, published), nil
}

// parseDate reads "15 Noyabr 10:31 (UTC+04)". The year is not shown.
func (t *Trend) parseDate(text string) *time.Time {
	if i := strings.Index(text, "("); i >= 0 {
		text = text[:i]
	}
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return nil
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	month, ok := trendMonths.lookup(parts[1])
	if !ok {
		return nil
	}
	hour, minute := 0, 0
	if len(parts) >= 3 {
		hour, minute = parseClock(parts[2])
	}
	return ptr(time.Date(t.today().Year(), month, day, hour, minute, 0, 0, news.Baku))
}

var trendMonths = monthTable{
	"yanvar": time.January, "fevral": time.February, "mart": time.March,
	"aprel": time.April, "may": time.May, "iyun": time.June,
	"iyul": time.July, "avqust": time.August, "sentyabr": time.September,
	"oktyabr": time.October, "noyabr": time.November, "dekabr": time.December,
}
