// Package news holds the article and per-source statistics types shared by the pipeline.
package news

import (
	"strings"
	"time"
	"unicode/utf8"
)

const DefaultLanguage = "az"

// Baku is the fixed offset the news sites write timestamps in and the
// zone the public digest is dated in.
var Baku = time.FixedZone("AZT", 4*60*60)

// Article is one scraped news item. It is treated as immutable once an
// adapter has produced it.
type Article struct {
	Title         string
	Content       string
	URL           string
	PublishedDate *time.Time
	Source        string
	Language      string
}

// Lang returns the article language, defaulting to Azerbaijani.
func (a Article) Lang() string {
	if a.Language == "" {
		return DefaultLanguage
	}
	return a.Language
}

// Snippet returns the first n runes of the content with whitespace collapsed.
func (a Article) Snippet(n int) string {
	text := strings.Join(strings.Fields(a.Content), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

// SourceStats is the in-memory tally for one source in one run.
type SourceStats struct {
	Name             string
	TotalFound       int // unique listing URLs
	ScrapedOK        int // articles extracted successfully
	SkippedDuplicate int // URLs or articles already known
	Failed           int // extraction failures
}

// New is the number of new articles the source contributed.
func (s SourceStats) New() int {
	return s.ScrapedOK
}

// Totals sums stats across sources.
func Totals(stats []SourceStats) SourceStats {
	var t SourceStats
	for _, s := range stats {
		t.TotalFound += s.TotalFound
		t.ScrapedOK += s.ScrapedOK
		t.SkippedDuplicate += s.SkippedDuplicate
		t.Failed += s.Failed
	}
	return t
}

// SourceGroup is the articles of one source in first-seen order.
type SourceGroup struct {
	Source   string
	Articles []Article
}

// GroupBySource groups articles by source, keeping the order in which
// sources first appear.
func GroupBySource(articles []Article) []SourceGroup {
	index := make(map[string]int)
	var groups []SourceGroup
	for _, a := range articles {
		i, ok := index[a.Source]
		if !ok {
			i = len(groups)
			index[a.Source] = i
			groups = append(groups, SourceGroup{Source: a.Source})
		}
		groups[i].Articles = append(groups[i].Articles, a)
	}
	return groups
}

// CountBySource returns the per-source article counts in first-seen order.
func CountBySource(articles []Article) []SourceStats {
	groups := GroupBySource(articles)
	out := make([]SourceStats, 0, len(groups))
	for _, g := range groups {
		out = append(out, SourceStats{Name: g.Source, ScrapedOK: len(g.Articles)})
	}
	return out
}
