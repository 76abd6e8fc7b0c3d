package sources

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/aznews/internal/news"
)

// Report lists the economy feed of report.az. Further pages load via
// XHR, so only the first page is served.
type Report struct {
	*site
}

func NewReport(f Fetcher, opts ...Option) *Report {
	return &Report{site: newSite("Report.az", "https://report.az", f, opts)}
}

func (r *Report) ListArticleURLs(ctx context.Context, page int, _ string) []string {
	if page > 1 {
		return []string{}
	}
	doc := r.page(ctx, r.url("iqtisadiyyat-xeberleri"))
	if doc == nil {
		return []string{}
	}

	var links linkSet
	doc.Find("div.index-post-block").Each(func(_ int, block *goquery.Selection) {
		if href, ok := block.Find("a.news__item").First().Attr("href"); ok {
			links.add(r.abs(href))
		}
	})
	return links.list()
}

func (r *Report) ScrapeArticle(ctx context.Context, url string) (*news.Article, error) {
	doc := r.page(ctx, url)
	if doc == nil {
		return nil, r.unavailable(url)
	}

	title := firstText(doc, true, "h1.section-title")
	if title == "" {
		return nil, r.missing(url, "title")
	}

	body := doc.Find("div.news-detail__desc").First()
	if body.Length() == 0 {
		return nil, r.missing(url, "content")
	}
	content := paragraphs(body, 0, nil)
	if content == "" {
		return nil, r.missing(url, "paragraphs")
	}

	var published *time.Time
	if parts := doc.Find("ul.news__date li"); parts.Length() >= 2 {
		published = parseReportDate(parts.Eq(0).Text() + " " + parts.Eq(1).Text())
	}
	return r.article(url, title, content, published), nil
}

// parseReportDate reads "16 noyabr, 2025 14:00".
func parseReportDate(s string) *time.Time {
	parts := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(parts) < 3 {
		return nil
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	month, ok := reportMonths.lookup(parts[1])
	if !ok {
		return nil
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil
	}
	hour, minute := 0, 0
	if len(parts) >= 4 {
		hour, minute = parseClock(parts[3])
	}
	return ptr(time.Date(year, month, day, hour, minute, 0, 0, news.Baku))
}

var reportMonths = monthTable{
	"yanvar": time.January, "fevral": time.February, "mart": time.March,
	"aprel": time.April, "may": time.May, "iyun": time.June,
	"iyul": time.July, "avqust": time.August, "sentyabr": time.September,
	"oktyabr": time.October, "noyabr": time.November, "dekabr": time.December,
}
