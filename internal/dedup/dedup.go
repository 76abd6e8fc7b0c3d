// Package dedup decides whether an article URL is new to the store.
package dedup

import (
	"context"
	"log/slog"

	"github.com/deusflow/aznews/internal/cache"
	"github.com/deusflow/aznews/internal/logger"
	"github.com/deusflow/aznews/internal/news"
)

// Lookup reports whether an article with url has been persisted.
type Lookup interface {
	ArticleExists(ctx context.Context, url string) (bool, error)
}

// Gate filters known URLs. It never mutates articles.
type Gate struct {
	lookup Lookup
	known  cache.URLs
	log    *slog.Logger
}

// New builds a gate over the store lookup. known may be nil.
func New(lookup Lookup, known cache.URLs) *Gate {
	return &Gate{lookup: lookup, known: known, log: logger.Component("dedup")}
}

// IsNew reports whether url is absent from the store. Lookup errors are
// logged and count as new; the store upserts on url so nothing duplicates.
func (g *Gate) IsNew(ctx context.Context, url string) bool {
	if g.known != nil {
		hit, err := g.known.Has(ctx, url)
		if err != nil {
			g.log.Debug("cache lookup failed", "url", url, "error", err)
		} else if hit {
			return false
		}
	}
	if g.lookup == nil {
		return true
	}

	exists, err := g.lookup.ArticleExists(ctx, url)
	if err != nil {
		g.log.Warn("existence check failed, treating as new", "url", url, "error", err)
		return true
	}
	if exists {
		g.remember(ctx, url)
		return false
	}
	return true
}

// Filter returns the articles whose URLs are new, dropping repeats within
// the slice as well. Each dropped article moves from ScrapedOK to
// SkippedDuplicate on the matching entry of stats.
func (g *Gate) Filter(ctx context.Context, articles []news.Article, stats []news.SourceStats) []news.Article {
	index := make(map[string]int, len(stats))
	for i, s := range stats {
		index[s.Name] = i
	}

	seen := make(map[string]bool, len(articles))
	fresh := make([]news.Article, 0, len(articles))
	for _, a := range articles {
		if seen[a.URL] || !g.IsNew(ctx, a.URL) {
			if i, ok := index[a.Source]; ok {
				stats[i].SkippedDuplicate++
				if stats[i].ScrapedOK > 0 {
					stats[i].ScrapedOK--
				}
			}
			continue
		}
		seen[a.URL] = true
		fresh = append(fresh, a)
	}
	if dropped := len(articles) - len(fresh); dropped > 0 {
		g.log.Info("duplicates removed", "count", dropped, "kept", len(fresh))
	}
	return fresh
}

// Remember records urls as known after they were committed.
func (g *Gate) Remember(ctx context.Context, urls ...string) {
	g.remember(ctx, urls...)
}

func (g *Gate) remember(ctx context.Context, urls ...string) {
	if g.known == nil || len(urls) == 0 {
		return
	}
	if err := g.known.Add(ctx, urls...); err != nil {
		g.log.Debug("cache add failed", "error", err)
	}
}
