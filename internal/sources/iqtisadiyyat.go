package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/aznews/internal/news"
)

var iqtisadiyyatCategories = []string{"az/category/bank-35", "az/category/biznes-9", "az/category/maliyye-41"}

// Iqtisadiyyat walks the banking, business and finance categories of
// iqtisadiyyat.az.
type Iqtisadiyyat struct {
	*site
}

func NewIqtisadiyyat(f Fetcher, opts ...Option) *Iqtisadiyyat {
	return &Iqtisadiyyat{site: newSite("Iqtisadiyyat.az", "https://iqtisadiyyat.az", f, opts)}
}

func (q *Iqtisadiyyat) Categories() []string {
	return iqtisadiyyatCategories
}

func (q *Iqtisadiyyat) ListArticleURLs(ctx context.Context, page int, category string) []string {
	if category == "" {
		category = iqtisadiyyatCategories[0]
	}
	path := category
	if page > 1 {
		path = fmt.Sprintf("%s/page/%d", category, page)
	}
	doc := q.page(ctx, q.url(path))
	if doc == nil {
		return []string{}
	}

	var links linkSet
	doc.Find("div.news-card-thirteen").Each(func(_ int, card *goquery.Selection) {
		if href, ok := card.Find("a").First().Attr("href"); ok {
			links.add(q.abs(href))
		}
	})
	return links.list()
}

func (q *Iqtisadiyyat) ScrapeArticle(ctx context.Context, url string) (*news.Article, error) {
	doc := q.page(ctx, url)
	if doc == nil {
		return nil, q.unavailable(url)
	}

	title := firstText(doc, true, "h1.medium-header-h1.post-title")
	if title == "" {
		return nil, q.missing(url, "title")
	}

	published := parseIqtisadiyyatDate(doc.Find("time.date-badge").First().Text())

	body := doc.Find("div.post-content").First()
	if body.Length() == 0 {
		return nil, q.missing(url, "content")
	}
	content := paragraphs(body, 20, nil)
	if content == "" {
		return nil, q.missing(url, "paragraphs")
	}
	return q.article(url, title, content, published), nil
}

// parseIqtisadiyyatDate reads "14 Noyabr 2025, 18:20".
func parseIqtisadiyyatDate(text string) *time.Time {
	parts := strings.Fields(text)
	if len(parts) < 3 {
		return nil
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	month, ok := iqtisadiyyatMonths.lookup(parts[1])
	if !ok {
		return nil
	}
	year, err := strconv.Atoi(strings.Trim(parts[2], ","))
	if err != nil {
		return nil
	}
	hour, minute := 0, 0
	if len(parts) >= 4 {
		hour, minute = parseClock(parts[3])
	}
	return ptr(time.Date(year, month, day, hour, minute, 0, 0, news.Baku))
}

var iqtisadiyyatMonths = monthTable{
	"yanvar": time.January, "fevral": time.February, "mart": time.March,
	"aprel": time.April, "may": time.May, "iyun": time.June,
	"iyul": time.July, "avqust": time.August, "sentyabr": time.September,
	"oktyabr": time.October, "noyabr": time.November, "dekabr": time.December,
}
