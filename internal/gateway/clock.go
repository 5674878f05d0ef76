package gateway

import (
	"context"
	"time"
)

// Clock abstracts time so limiter and retry behavior can be tested
// with a virtual clock.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until the context is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the real-time Clock used outside of tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
