package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "aznews:url:"

// Redis shares known URLs between processes, e.g. overlapping cron runs.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to a redis:// URL and pings it.
func NewRedis(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return newRedis(ctx, redis.NewClient(opts), ttl)
}

func newRedis(ctx context.Context, rdb *redis.Client, ttl time.Duration) (*Redis, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func (r *Redis) Has(ctx context.Context, url string) (bool, error) {
	n, err := r.rdb.Exists(ctx, redisPrefix+Key(url)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) Add(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}
	pipe := r.rdb.Pipeline()
	for _, u := range urls {
		pipe.Set(ctx, redisPrefix+Key(u), 1, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}
	keys := make([]string, len(urls))
	for i, u := range urls {
		keys[i] = redisPrefix + Key(u)
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
