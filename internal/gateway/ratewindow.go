package gateway

import (
	"context"
	"sync"
	"time"
)

// safetyMargin is added to the computed wait so a slot is only
// retried once the oldest timestamp has definitely aged out.
const safetyMargin = 50 * time.Millisecond

// RateWindow is a sliding-window rate limiter: at most limit
// acquisitions within any trailing window. Each Gateway instance owns
// its own RateWindow; state is never shared at package scope.
type RateWindow struct {
	mu     sync.Mutex
	stamps []time.Time
	limit  int
	window time.Duration
	clock  Clock
}

// NewRateWindow creates a limiter allowing limit acquisitions per window.
func NewRateWindow(limit int, window time.Duration, clock Clock) *RateWindow {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RateWindow{
		stamps: make([]time.Time, 0, limit),
		limit:  limit,
		window: window,
		clock:  clock,
	}
}

// Acquire blocks until a slot is free, then reserves it. It loops on
// ErrRateExhausted with the wait the window reports, so exhaustion is
// always transient from the caller's point of view.
func (w *RateWindow) Acquire(ctx context.Context) error {
	for {
		wait, err := w.tryAcquire()
		if err == nil {
			return nil
		}

		if err := w.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// tryAcquire reserves a slot if one is free. On failure it returns
// ErrRateExhausted and how long until the oldest timestamp exits the
// window.
func (w *RateWindow) tryAcquire() (time.Duration, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	w.evict(now)

	if len(w.stamps) < w.limit {
		w.stamps = append(w.stamps, now)
		return 0, nil
	}

	wait := w.stamps[0].Add(w.window).Sub(now) + safetyMargin
	return wait, ErrRateExhausted
}

// evict drops timestamps older than the window. Caller holds the lock.
func (w *RateWindow) evict(now time.Time) {
	cutoff := now.Add(-w.window)

	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// InWindow reports how many slots are currently reserved.
func (w *RateWindow) InWindow() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict(w.clock.Now())
	return len(w.stamps)
}
