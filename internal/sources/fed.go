package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/aznews/internal/news"
)

var fedCategories = []string{"az/maliyye", "az/iqtisadiyyat", "az/xaricde-emlak"}

// Fed walks the finance, economy and foreign property categories of fed.az.
type Fed struct {
	*site
}

func NewFed(f Fetcher, opts ...Option) *Fed {
	return &Fed{site: newSite("Fed.az", "https://fed.az", f, opts)}
}

func (f *Fed) Categories() []string {
	return fedCategories
}

func (f *Fed) ListArticleURLs(ctx context.Context, page int, category string) []string {
	if category == "" {
		category = fedCategories[0]
	}
	path := category
	if page > 1 {
		path = fmt.Sprintf("%s/%d", category, page)
	}
	doc := f.page(ctx, f.url(path))
	if doc == nil {
		return []string{}
	}

	var links linkSet
	doc.Find("div.news").Each(func(_ int, item *goquery.Selection) {
		if href, ok := item.Find("a").First().Attr("href"); ok {
			links.add(f.abs(href))
		}
	})
	return links.list()
}

func (f *Fed) ScrapeArticle(ctx context.Context, url string) (*news.Article, error) {
	doc := f.page(ctx, url)
	if doc == nil {
		return nil, f.unavailable(url)
	}

	title := firstText(doc, true, "h3.news-head")
	if title == "" {
		return nil, f.missing(url, "title")
	}

	var published *time.Time
	if detail := doc.Find("div.news-detail").First(); detail.Length() > 0 {
		date := detail.Find("span.time.date").First().Text()
		clock := detail.Find("span.time").Not(".date").First().Text()
		published = parseFedDate(date, clock)
	}

	body := doc.Find(`div.news-text[itemprop="articleBody"]`).First()
	if body.Length() == 0 {
		body = doc.Find("div.news-text").First()
	}
	if body.Length() == 0 {
		return nil, f.missing(url, "content")
	}
	body.Find("script, style, iframe, ins, .ainsyndicationid").Remove()

	content := paragraphs(body, 10, nil)
	if content == "" {
		return nil, f.missing(url, "paragraphs")
	}
	return f.article(url, title, content, published), nil
}

// parseFedDate reads "15 Noy 2025" (or the full month name) and "12:44".
// Both spans may start with an icon glyph.
func parseFedDate(date, clock string) *time.Time {
	parts := strings.Fields(date)
	for len(parts) > 0 && !startsWithDigit(parts[0]) {
		parts = parts[1:]
	}
	if len(parts) < 3 {
		return nil
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	month, ok := fedMonthsShort.lookup(parts[1])
	if !ok {
		month, ok = fedMonthsFull.lookup(parts[1])
	}
	if !ok {
		return nil
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil
	}

	hour, minute := 0, 0
	if fields := strings.Fields(clock); len(fields) > 0 {
		hour, minute = parseClock(fields[len(fields)-1])
	}
	return ptr(time.Date(year, month, day, hour, minute, 0, 0, news.Baku))
}

func startsWithDigit(s string) bool {
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}

// Fed.az prints "15 Noy 2025" on cards and occasionally the full name.
var fedMonthsShort = monthTable{
	"yan": time.January, "fev": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "iyn": time.June,
	"iyl": time.July, "avq": time.August, "sen": time.September,
	"okt": time.October, "noy": time.November, "dek": time.December,
}

var fedMonthsFull = monthTable{
	"yanvar": time.January, "fevral": time.February, "mart": time.March,
	"aprel": time.April, "may": time.May, "iyun": time.June,
	"iyul": time.July, "avqust": time.August, "sentyabr": time.September,
	"oktyabr": time.October, "noyabr": time.November, "dekabr": time.December,
}
