// Package ratelimit throttles calls to the LLM service.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/deusflow/aznews/internal/logger"
)

// Clock abstracts time so the window can be tested without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SlidingWindow allows at most Limit calls in any Window. A caller that
// finds the window full blocks until the oldest call leaves it. One
// instance is shared by every LLM call in the process.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	clock  Clock
	stamps []time.Time
	log    *slog.Logger

	total  int
	waits  int
	waited time.Duration
}

// NewSlidingWindow returns a limiter; limit <= 0 disables throttling and a
// nil clock uses the wall clock.
func NewSlidingWindow(limit int, window time.Duration, clock Clock) *SlidingWindow {
	if clock == nil {
		clock = realClock{}
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		clock:  clock,
		log:    logger.Component("ratelimit"),
	}
}

// PerMinute is NewSlidingWindow(n, time.Minute, nil).
func PerMinute(n int) *SlidingWindow {
	return NewSlidingWindow(n, time.Minute, nil)
}

// Wait blocks until a call may proceed and records it.
func (w *SlidingWindow) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.clock.Now()
		w.prune(now)
		if w.limit <= 0 || len(w.stamps) < w.limit {
			w.stamps = append(w.stamps, now)
			w.total++
			w.mu.Unlock()
			return nil
		}
		delay := w.stamps[0].Add(w.window).Sub(now)
		w.waits++
		w.waited += delay
		w.mu.Unlock()

		w.log.Info("rate limit reached, waiting", "delay", delay.Round(time.Millisecond), "limit", w.limit, "window", w.window)
		if err := w.clock.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// prune drops timestamps that have left the window. Caller holds mu.
func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// Stats returns current limiter statistics
func (w *SlidingWindow) Stats() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(w.clock.Now())
	return map[string]interface{}{
		"limit":     w.limit,
		"window":    w.window.String(),
		"in_window": len(w.stamps),
		"total":     w.total,
		"waits":     w.waits,
		"waited":    w.waited.String(),
	}
}
