package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/aznews/internal/news"
)

// APA lists the economy section of apa.az.
type APA struct {
	*site
}

func NewAPA(f Fetcher, opts ...Option) *APA {
	return &APA{site: newSite("APA.az", "https://apa.az", f, opts)}
}

var apaSkipPrefixes = []string{"/rates", "/weather-forecast", "/currency", "/jobs"}

func (a *APA) ListArticleURLs(ctx context.Context, page int, _ string) []string {
	u := a.url("economy")
	if page > 1 {
		u = fmt.Sprintf("%s?page=%d", u, page)
	}
	doc := a.page(ctx, u)
	if doc == nil {
		return []string{}
	}

	var links linkSet
	doc.Find("a.item[href]").Each(func(_ int, item *goquery.Selection) {
		href, _ := item.Attr("href")
		if abs := a.abs(href); a.isArticle(abs) {
			links.add(abs)
		}
	})
	return links.list()
}

// isArticle accepts /<category>/<slug-12345> on the site origin.
func (a *APA) isArticle(raw string) bool {
	if raw == "" || !a.local(raw) {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	for _, prefix := range apaSkipPrefixes {
		if strings.HasPrefix(u.Path, prefix) {
			return false
		}
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return false
	}
	slug := segments[len(segments)-1]
	id := slug[strings.LastIndex(slug, "-")+1:]
	if id == "" {
		return false
	}
	for _, r := range id {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func (a *APA) ScrapeArticle(ctx context.Context, url string) (*news.Article, error) {
	doc := a.page(ctx, url)
	if doc == nil {
		return nil, a.unavailable(url)
	}

	title := firstText(doc, true, "h2.title_news")
	if title == "" {
		return nil, a.missing(url, "title")
	}

	published := parseAPADate(doc.Find("span.date").First().Text())

	body := doc.Find(".texts.mb-site").First()
	if body.Length() == 0 {
		return nil, a.missing(url, "content")
	}
	body.Find(".rek_banner, .links_block, .AdviadNativeVideo").Remove()

	content := paragraphs(body, 10, nil)
	if content == "" {
		return nil, a.missing(url, "paragraphs")
	}
	return a.article(url, title, content, published), nil
}

var apaZone = regexp.MustCompile(`\(\s*UTC[^)]*\)`)

// parseAPADate reads "14 noyabr 2025 16:23 (UTC +04:00)".
func parseAPADate(text string) *time.Time {
	parts := strings.Fields(apaZone.ReplaceAllString(text, ""))
	if len(parts) < 3 {
		return nil
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	month, ok := apaMonths.lookup(parts[1])
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

var apaMonths = monthTable{
	"yanvar": time.January, "fevral": time.February, "mart": time.March,
	"aprel": time.April, "may": time.May, "iyun": time.June,
	"iyul": time.July, "avqust": time.August, "sentyabr": time.September,
	"oktyabr": time.October, "noyabr": time.November, "dekabr": time.December,
}
