package app

import (
	"context"

	"github.com/deusflow/aznews/internal/cache"
	"github.com/deusflow/aznews/internal/logger"
	"github.com/deusflow/aznews/internal/storage"
)

// SessionDeleter removes stored sessions with their articles.
type SessionDeleter interface {
	DeleteLastSessions(ctx context.Context, n int) (storage.DeleteResult, error)
}

// DeleteSessions removes the newest n sessions and then evicts the deleted
// article URLs from known, so the next run harvests them again. known may
// be nil. An eviction failure is logged; the rows are already gone.
func DeleteSessions(ctx context.Context, store SessionDeleter, known cache.URLs, n int) (storage.DeleteResult, error) {
	res, err := store.DeleteLastSessions(ctx, n)
	if err != nil {
		return res, err
	}
	if known == nil || len(res.URLs) == 0 {
		return res, nil
	}
	if err := known.Remove(ctx, res.URLs...); err != nil {
		logger.Warn("failed to evict deleted articles from cache, they stay skipped until the entries expire",
			"urls", len(res.URLs), "error", err)
		return res, nil
	}
	logger.Info("evicted deleted articles from cache", "urls", len(res.URLs))
	return res, nil
}
