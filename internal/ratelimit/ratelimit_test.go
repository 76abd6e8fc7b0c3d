package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	err    error
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if c.err != nil {
		return c.err
	}
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestWindowBlocksUntilOldestExpires(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 11, 16, 9, 0, 0, 0, time.UTC)}
	w := NewSlidingWindow(15, time.Minute, clock)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if err := w.Wait(ctx); err != nil {
			t.Fatal(err)
		}
		clock.advance(time.Second)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("slept %v before the window filled", clock.sleeps)
	}

	// 15 calls at t=0..14s, now t=15s: the call at t=0 leaves at t=60s.
	if err := w.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 45*time.Second {
		t.Errorf("sleeps = %v, want [45s]", clock.sleeps)
	}

	stats := w.Stats()
	if stats["total"] != 16 || stats["waits"] != 1 || stats["in_window"] != 15 {
		t.Errorf("stats = %v", stats)
	}
}

func TestWindowFreesAfterExpiry(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 11, 16, 9, 0, 0, 0, time.UTC)}
	w := NewSlidingWindow(2, time.Minute, clock)
	ctx := context.Background()

	_ = w.Wait(ctx)
	_ = w.Wait(ctx)
	clock.advance(time.Minute)
	if err := w.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("unexpected sleeps %v", clock.sleeps)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Now(), err: context.Canceled}
	w := NewSlidingWindow(1, time.Minute, clock)

	_ = w.Wait(context.Background())
	if err := w.Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestUnlimited(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Now()}
	w := NewSlidingWindow(0, time.Minute, clock)
	for i := 0; i < 100; i++ {
		_ = w.Wait(context.Background())
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("unlimited limiter slept %d times", len(clock.sleeps))
	}
}

func TestRealClockCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (realClock{}).Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
