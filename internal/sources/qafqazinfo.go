package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/aznews/internal/news"
)

// Qafqazinfo lists the economy category of qafqazinfo.az.
type Qafqazinfo struct {
	*site
}

func NewQafqazinfo(f Fetcher, opts ...Option) *Qafqazinfo {
	return &Qafqazinfo{site: newSite("Qafqazinfo.az", "https://qafqazinfo.az", f, opts)}
}

func (q *Qafqazinfo) ListArticleURLs(ctx context.Context, page int, _ string) []string {
	u := q.url("news/category/iqtisadiyyat-4")
	if page > 1 {
		u = fmt.Sprintf("%s?page=%d", u, page)
	}
	doc := q.page(ctx, u)
	if doc == nil {
		return []string{}
	}

	var links linkSet
	doc.Find(`a[href*="/news/detail/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if abs := q.abs(href); abs != "" && q.local(abs) {
			links.add(abs)
		}
	})
	return links.list()
}

var qafqazMediaSuffix = regexp.MustCompile(`(?i)\s*-\s*(foto|fotolar|video)\s*$`)

func (q *Qafqazinfo) ScrapeArticle(ctx context.Context, url string) (*news.Article, error) {
	doc := q.page(ctx, url)
	if doc == nil {
		return nil, q.unavailable(url)
	}

	title := firstText(doc, true, ".panel-body h1")
	title = strings.TrimSpace(qafqazMediaSuffix.ReplaceAllString(title, ""))
	if title == "" {
		return nil, q.missing(url, "title")
	}

	published := parseQafqazDate(doc.Find("time[datetime]").First().Text())

	body := doc.Find(".panel-body.news_text").First()
	if body.Length() == 0 {
		return nil, q.missing(url, "content")
	}
	body.Find(".rek_banner").Remove()

	content := paragraphs(body, 10, nil)
	if content == "" {
		return nil, q.missing(url, "paragraphs")
	}
	return q.article(url, title, content, published), nil
}

// parseQafqazDate reads "09.11.2025 | 10:59".
func parseQafqazDate(text string) *time.Time {
	date, clock, _ := strings.Cut(text, "|")
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if clock == "" {
		clock = "00:00"
	}
	t, err := time.ParseInLocation("02.01.2006 15:04", date+" "+clock, news.Baku)
	if err != nil {
		return nil
	}
	return &t
}
