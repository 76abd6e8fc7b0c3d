// Package cache remembers article URLs already known to the store so the
// deduplication gate can skip a database round trip.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// URLs is a set of known article URLs with expiry.
type URLs interface {
	Has(ctx context.Context, url string) (bool, error)
	Add(ctx context.Context, urls ...string) error
	// Remove forgets urls whose articles were deleted from the store.
	Remove(ctx context.Context, urls ...string) error
}

// Memory is an in-process URLs cache.
type Memory struct {
	mu    sync.RWMutex
	items map[string]time.Time
	ttl   time.Duration
	now   func() time.Time

	stop chan struct{}
	once sync.Once
}

func NewMemory(ttl time.Duration) *Memory {
	c := &Memory{
		items: make(map[string]time.Time),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	// Cleanup expired items every hour
	go c.cleanupLoop(time.Hour)

	return c
}

func (c *Memory) Has(_ context.Context, url string) (bool, error) {
	key := Key(url)

	c.mu.RLock()
	expiresAt, exists := c.items[key]
	c.mu.RUnlock()
	if !exists {
		return false, nil
	}

	if c.now().After(expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (c *Memory) Add(_ context.Context, urls ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	for _, u := range urls {
		c.items[Key(u)] = expiresAt
	}
	return nil
}

func (c *Memory) Remove(_ context.Context, urls ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, u := range urls {
		delete(c.items, Key(u))
	}
	return nil
}

func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup goroutine.
func (c *Memory) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// Key hashes a URL into a fixed-size cache key.
func Key(url string) string {
	h := sha256.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Memory) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *Memory) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, expiresAt := range c.items {
		if now.After(expiresAt) {
			delete(c.items, key)
		}
	}
}
