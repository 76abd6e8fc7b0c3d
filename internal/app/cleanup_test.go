package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deusflow/aznews/internal/cache"
	"github.com/deusflow/aznews/internal/dedup"
	"github.com/deusflow/aznews/internal/storage"
)

// memStore keeps article URLs per session and deletes them like the
// database does.
type memStore struct {
	sessions [][]string
	err      error
}

func (s *memStore) ArticleExists(_ context.Context, url string) (bool, error) {
	for _, urls := range s.sessions {
		for _, u := range urls {
			if u == url {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *memStore) DeleteLastSessions(_ context.Context, n int) (storage.DeleteResult, error) {
	var res storage.DeleteResult
	if s.err != nil {
		return res, s.err
	}
	for ; n > 0 && len(s.sessions) > 0; n-- {
		last := s.sessions[len(s.sessions)-1]
		s.sessions = s.sessions[:len(s.sessions)-1]
		res.Sessions++
		res.Articles += int64(len(last))
		res.URLs = append(res.URLs, last...)
	}
	return res, nil
}

func TestDeleteSessionsMakesArticlesNewAgain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	old, recent := "https://banker.az/old", "https://banker.az/recent"
	store := &memStore{sessions: [][]string{{old}, {recent}}}
	known := cache.NewMemory(72 * time.Hour)
	defer known.Close()
	gate := dedup.New(store, known)

	gate.Remember(ctx, old, recent)
	if gate.IsNew(ctx, recent) {
		t.Fatal("stored article reported as new before cleanup")
	}

	res, err := DeleteSessions(ctx, store, known, 1)
	if err != nil {
		t.Fatalf("DeleteSessions: %v", err)
	}
	if res.Sessions != 1 || res.Articles != 1 {
		t.Errorf("deleted %d sessions and %d articles, want 1 and 1", res.Sessions, res.Articles)
	}

	if !gate.IsNew(ctx, recent) {
		t.Error("deleted article still reported as duplicate")
	}
	if gate.IsNew(ctx, old) {
		t.Error("article of a kept session reported as new")
	}
}

func TestDeleteSessionsStoreError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	known := cache.NewMemory(time.Hour)
	defer known.Close()
	_ = known.Add(ctx, "https://oxu.az/a")

	store := &memStore{err: errors.New("connection refused")}
	if _, err := DeleteSessions(ctx, store, known, 1); err == nil {
		t.Fatal("expected error")
	}
	if ok, _ := known.Has(ctx, "https://oxu.az/a"); !ok {
		t.Error("cache evicted although nothing was deleted")
	}
}

func TestDeleteSessionsWithoutCache(t *testing.T) {
	t.Parallel()

	store := &memStore{sessions: [][]string{{"https://fed.az/a", "https://fed.az/b"}}}
	res, err := DeleteSessions(context.Background(), store, nil, 3)
	if err != nil {
		t.Fatalf("DeleteSessions: %v", err)
	}
	if res.Sessions != 1 || len(res.URLs) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}
