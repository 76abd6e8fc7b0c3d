package sources

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/aznews/internal/news"
)

// Oxu lists the economy section of oxu.az. The site rejects requests that
// do not look like same-origin navigation, hence the extra headers.
type Oxu struct {
	*site
}

func NewOxu(f Fetcher, opts ...Option) *Oxu {
	o := &Oxu{site: newSite("Oxu.az", "https://oxu.az", f, opts)}
	o.headers = http.Header{}
	o.headers.Set("Referer", o.url(""))
	o.headers.Set("Sec-Fetch-Dest", "document")
	o.headers.Set("Sec-Fetch-Mode", "navigate")
	o.headers.Set("Sec-Fetch-Site", "same-origin")
	o.headers.Set("Sec-Fetch-User", "?1")
	o.headers.Set("Cache-Control", "max-age=0")
	return o
}

func (o *Oxu) ListArticleURLs(ctx context.Context, page int, _ string) []string {
	u := o.url("iqtisadiyyat")
	if page > 1 {
		u = fmt.Sprintf("%s/page/%d", u, page)
	}
	doc := o.page(ctx, u)
	if doc == nil {
		return []string{}
	}

	var links linkSet
	doc.Find(".post-item.rt-news-item[data-url]").Each(func(_ int, item *goquery.Selection) {
		href, _ := item.Attr("data-url")
		if abs := o.abs(href); strings.Contains(abs, "/iqtisadiyyat/") && o.local(abs) {
			links.add(abs)
		}
	})
	if len(links.urls) == 0 {
		doc.Find(`.post-item a[href*="/iqtisadiyyat/"]`).Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if abs := o.abs(href); abs != "" && o.local(abs) {
				links.add(abs)
			}
		})
	}
	return links.list()
}

var oxuNoise = []string{"newmedia", "reklam", "advertisement"}

func (o *Oxu) ScrapeArticle(ctx context.Context, url string) (*news.Article, error) {
	doc := o.page(ctx, url)
	if doc == nil {
		return nil, o.unavailable(url)
	}

	title := firstText(doc, true, ".post-detail-title h1")
	if title == "" {
		return nil, o.missing(url, "title")
	}

	var published *time.Time
	doc.Find(".post-detail-meta span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		published = o.parseDate(span.Text())
		return published == nil
	})

	body := doc.Find(".post-detail-content-inner.resize-area").First()
	if body.Length() == 0 {
		body = doc.Find(".post-detail-content").First()
	}
	if body.Length() == 0 {
		return nil, o.missing(url, "content")
	}
	body.Find(".audio-block, .player-area, .tag-area, .social-block2, .subscribe-single-block, .tag-post-list, ins").Remove()

	content := paragraphs(body, 20, func(p string) (string, bool) {
		lower := strings.ToLower(p)
		for _, noise := range oxuNoise {
			if strings.Contains(lower, noise) {
				return "", false
			}
		}
		return p, true
	})
	if content == "" {
		return nil, o.missing(url, "paragraphs")
	}
	return o.article(url, title, content, published), nil
}

// parseDate reads "15 noy, 2025 / 19:44", "Bu gün / 12:18" or "Dünən / 22:30".
func (o *Oxu) parseDate(text string) *time.Time {
	date, clock, ok := strings.Cut(text, "/")
	if !ok {
		return nil
	}
	hour, minute := parseClock(clock)
	date = strings.ToLower(cleanText(date))
	today := o.today()

	switch date {
	case "bu gün", "bugün":
		return ptr(time.Date(today.Year(), today.Month(), today.Day(), hour, minute, 0, 0, news.Baku))
	case "dünən":
		y := today.AddDate(0, 0, -1)
		return ptr(time.Date(y.Year(), y.Month(), y.Day(), hour, minute, 0, 0, news.Baku))
	}

	parts := strings.Fields(date)
	if len(parts) < 3 {
		return nil
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	month, ok := oxuMonths.lookup(parts[1])
	if !ok {
		return nil
	}
	year, err := strconv.Atoi(strings.Trim(parts[2], ","))
	if err != nil {
		return nil
	}
	return ptr(time.Date(year, month, day, hour, minute, 0, 0, news.Baku))
}

// oxuMonths mixes full and three-letter names; the site uses both.
var oxuMonths = monthTable{
	"yanvar": time.January, "yan": time.January,
	"fevral": time.February, "fev": time.February,
	"mart": time.March, "mar": time.March,
	"aprel": time.April, "apr": time.April,
	"may": time.May,
	"iyun": time.June, "iyn": time.June,
	"iyul": time.July, "iyl": time.July,
	"avqust": time.August, "avq": time.August,
	"sentyabr": time.September, "sen": time.September,
	"oktyabr": time.October, "okt": time.October,
	"noyabr": time.November, "noy": time.November,
	"dekabr": time.December, "dek": time.December,
}
