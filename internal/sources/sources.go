// Package sources implements the per-site adapters that list and extract
// articles from Azerbaijani news sites.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/aznews/internal/news"
)

var (
	// ErrUnavailable means the article page could not be fetched.
	ErrUnavailable = errors.New("page unavailable")
	// ErrExtract means the page was fetched but a required field was missing.
	ErrExtract = errors.New("extract article")
)

// Adapter lists and extracts articles for one site.
type Adapter interface {
	Name() string
	// Categories returns the listing partitions to walk, or nil when the
	// site has a single listing.
	Categories() []string
	// ListArticleURLs returns the article URLs on one listing page. It
	// returns an empty slice on failure or past the last page.
	ListArticleURLs(ctx context.Context, page int, category string) []string
	ScrapeArticle(ctx context.Context, url string) (*news.Article, error)
}

// Fetcher is the subset of fetcher.Fetcher the adapters use.
type Fetcher interface {
	FetchWith(ctx context.Context, url string, extra http.Header) *goquery.Document
}

type Option func(*site)

// WithBaseURL points an adapter at another origin, e.g. a test server.
func WithBaseURL(raw string) Option {
	return func(s *site) {
		if u, err := url.Parse(strings.TrimRight(raw, "/")); err == nil {
			s.base = u
		}
	}
}

// WithClock overrides the clock used for relative dates and missing years.
func WithClock(now func() time.Time) Option {
	return func(s *site) { s.now = now }
}

// site carries what every adapter needs: identity, origin and transport.
type site struct {
	name    string
	base    *url.URL
	fetch   Fetcher
	headers http.Header
	now     func() time.Time
}

func newSite(name, base string, f Fetcher, opts []Option) *site {
	u, err := url.Parse(base)
	if err != nil {
		panic(fmt.Sprintf("sources: bad base url %q: %v", base, err))
	}
	s := &site{name: name, base: u, fetch: f, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *site) Name() string { return s.name }

func (s *site) Categories() []string { return nil }

// url joins a path onto the site origin.
func (s *site) url(path string) string {
	return s.base.String() + "/" + strings.TrimLeft(path, "/")
}

// abs resolves an href found on the site against its origin.
func (s *site) abs(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u := s.base.ResolveReference(ref)
	u.Fragment = ""
	return u.String()
}

// local reports whether u belongs to the site origin.
func (s *site) local(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Host, s.base.Host)
}

func (s *site) page(ctx context.Context, u string) *goquery.Document {
	return s.fetch.FetchWith(ctx, u, s.headers)
}

func (s *site) today() time.Time {
	return s.now().In(news.Baku)
}

func (s *site) article(u, title, content string, published *time.Time) *news.Article {
	return &news.Article{
		Title:         title,
		Content:       content,
		URL:           u,
		PublishedDate: published,
		Source:        s.name,
		Language:      news.DefaultLanguage,
	}
}

func (s *site) unavailable(u string) error {
	return fmt.Errorf("%s: %w: %s", s.name, ErrUnavailable, u)
}

func (s *site) missing(u, what string) error {
	return fmt.Errorf("%s: %w: %s not found: %s", s.name, ErrExtract, what, u)
}

// linkSet collects URLs once each, in discovery order.
type linkSet struct {
	seen map[string]bool
	urls []string
}

func (l *linkSet) add(u string) {
	if u == "" {
		return
	}
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if l.seen[u] {
		return
	}
	l.seen[u] = true
	l.urls = append(l.urls, u)
}

func (l *linkSet) list() []string {
	if l.urls == nil {
		return []string{}
	}
	return l.urls
}

// cleanText collapses all whitespace runs into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// paragraphs joins the <p> texts under sel that are longer than minLen
// runes. keep may rewrite or drop a paragraph.
func paragraphs(sel *goquery.Selection, minLen int, keep func(string) (string, bool)) string {
	var parts []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := cleanText(p.Text())
		if utf8.RuneCountInString(text) <= minLen {
			return
		}
		if keep != nil {
			var ok bool
			if text, ok = keep(text); !ok {
				return
			}
		}
		parts = append(parts, text)
	})
	return strings.Join(parts, "\n\n")
}

func ptr(t time.Time) *time.Time {
	return &t
}

// parseClock reads "HH:MM", returning zeros when malformed.
func parseClock(s string) (int, int) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || h > 23 || m > 59 {
		return 0, 0
	}
	return h, m
}

// monthTable maps the month words one site prints to months. Each adapter
// keeps its own table.
type monthTable map[string]time.Month

func (t monthTable) lookup(s string) (time.Month, bool) {
	m, ok := t[monthKey(s)]
	return m, ok
}

// monthKey normalises a month token for table lookup. The dotted capital
// I is folded by hand since strings.ToLower keeps its combining dot.
func monthKey(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "İ", "i")
	return strings.Trim(strings.ToLower(s), ".,")
}
