package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/aznews/internal/news"
)

// Sonxeber lists the economy section of sonxeber.az. Pages are addressed
// with a zero based start parameter.
type Sonxeber struct {
	*site
}

func NewSonxeber(f Fetcher, opts ...Option) *Sonxeber {
	return &Sonxeber{site: newSite("Sonxeber.az", "https://sonxeber.az", f, opts)}
}

func (s *Sonxeber) ListArticleURLs(ctx context.Context, page int, _ string) []string {
	u := s.url("iqtisadiyyat-xeberleri/")
	if page > 1 {
		u = fmt.Sprintf("%s?start=%d", u, page-1)
	}
	doc := s.page(ctx, u)
	if doc == nil {
		return []string{}
	}

	var links linkSet
	doc.Find("div.newslister.clearfix div.nart.artbig").Each(func(_ int, item *goquery.Selection) {
		if href, ok := item.Find("a.thumb_zoom").First().Attr("href"); ok {
			links.add(s.abs(href))
		}
	})
	return links.list()
}

const sonxeberAttribution = "xəbər verir ki,"

func (s *Sonxeber) ScrapeArticle(ctx context.Context, url string) (*news.Article, error) {
	doc := s.page(ctx, url)
	if doc == nil {
		return nil, s.unavailable(url)
	}

	body := doc.Find("article").First()
	if body.Length() == 0 {
		return nil, s.missing(url, "article")
	}
	title := cleanText(body.Find("h1").First().Text())
	if title == "" {
		return nil, s.missing(url, "title")
	}

	published := s.parseDate(doc.Find("span.dttime").First().Text())

	// Lead paragraphs name the outlet the story came from; keep what follows.
	content := paragraphs(body, 20, func(p string) (string, bool) {
		if strings.Contains(p, "Modern.az") || strings.Contains(p, "xəbər verir ki") {
			_, rest, ok := strings.Cut(p, sonxeberAttribution)
			rest = strings.TrimSpace(rest)
			if ok && utf8.RuneCountInString(rest) > 20 {
				return rest, true
			}
			return "", false
		}
		return p, true
	})
	if content == "" {
		return nil, s.missing(url, "paragraphs")
	}
	return s.article(url, title, content, published), nil
}

// parseDate reads "28 oktyabr 2025" or "28 oktyabr" (current year).
// The site shows no time of day.
func (s *Sonxeber) parseDate(text string) *time.Time {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return nil
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	month, ok := sonxeberMonths.lookup(parts[1])
	if !ok {
		return nil
	}
	year := s.today().Year()
	if len(parts) >= 3 {
		if y, err := strconv.Atoi(strings.Trim(parts[2], ",")); err == nil {
			year = y
		}
	}
	return ptr(time.Date(year, month, day, 0, 0, 0, 0, news.Baku))
}

var sonxeberMonths = monthTable{
	"yanvar": time.January, "fevral": time.February, "mart": time.March,
	"aprel": time.April, "may": time.May, "iyun": time.June,
	"iyul": time.July, "avqust": time.August, "sentyabr": time.September,
	"oktyabr": time.October, "noyabr": time.November, "dekabr": time.December,
}
