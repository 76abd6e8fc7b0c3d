package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/deusflow/aznews/internal/cache"
	"github.com/deusflow/aznews/internal/news"
)

type fakeStore struct {
	mu    sync.Mutex
	known map[string]bool
	err   error
	calls int
}

func (f *fakeStore) ArticleExists(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.known[url], nil
}

func TestIsNew(t *testing.T) {
	t.Parallel()

	store := &fakeStore{known: map[string]bool{"https://apa.az/economy/a-1": true}}
	g := New(store, nil)

	if g.IsNew(context.Background(), "https://apa.az/economy/a-1") {
		t.Error("persisted url reported as new")
	}
	if !g.IsNew(context.Background(), "https://apa.az/economy/a-2") {
		t.Error("unknown url reported as known")
	}
}

func TestLookupErrorCountsAsNew(t *testing.T) {
	t.Parallel()

	g := New(&fakeStore{err: errors.New("connection reset")}, nil)
	if !g.IsNew(context.Background(), "https://oxu.az/iqtisadiyyat/x") {
		t.Error("lookup error should count as new")
	}
}

func TestCacheShortCircuitsStore(t *testing.T) {
	t.Parallel()

	store := &fakeStore{known: map[string]bool{"https://fed.az/a": true}}
	known := cache.NewMemory(time.Hour)
	defer known.Close()
	g := New(store, known)
	ctx := context.Background()

	if g.IsNew(ctx, "https://fed.az/a") {
		t.Fatal("expected duplicate")
	}
	if g.IsNew(ctx, "https://fed.az/a") {
		t.Fatal("expected duplicate")
	}
	if store.calls != 1 {
		t.Errorf("store consulted %d times, want 1", store.calls)
	}

	g.Remember(ctx, "https://fed.az/b")
	if g.IsNew(ctx, "https://fed.az/b") {
		t.Error("remembered url reported as new")
	}
	if store.calls != 1 {
		t.Errorf("store consulted %d times after Remember, want 1", store.calls)
	}
}

func TestFilterCountsDuplicates(t *testing.T) {
	t.Parallel()

	store := &fakeStore{known: map[string]bool{"https://apa.az/1": true}}
	g := New(store, nil)

	articles := []news.Article{
		{URL: "https://apa.az/1", Source: "APA.az"},
		{URL: "https://apa.az/2", Source: "APA.az"},
		{URL: "https://apa.az/2", Source: "APA.az"},
		{URL: "https://fed.az/3", Source: "Fed.az"},
	}
	stats := []news.SourceStats{{Name: "APA.az", ScrapedOK: 3}, {Name: "Fed.az", ScrapedOK: 1}}

	got := g.Filter(context.Background(), articles, stats)
	if len(got) != 2 || got[0].URL != "https://apa.az/2" || got[1].URL != "https://fed.az/3" {
		t.Fatalf("Filter = %+v", got)
	}
	if stats[0].SkippedDuplicate != 2 || stats[0].ScrapedOK != 1 || stats[1].ScrapedOK != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if articles[0].URL != "https://apa.az/1" {
		t.Error("input slice was modified")
	}
}
