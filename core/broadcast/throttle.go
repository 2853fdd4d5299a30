package broadcast

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultThrottleInterval is the pause between two deliveries of the same
// broadcast.
const DefaultThrottleInterval = 150 * time.Millisecond

// Throttle runs tasks one at a time with a minimum pause between the end of
// one task and the start of the next. The first task starts immediately.
// An optional shared limiter additionally spaces tasks across every Throttle
// that holds it.
type Throttle struct {
	sem      *semaphore.Weighted
	interval time.Duration
	shared   *rate.Limiter

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error

	last time.Time
}

// NewThrottle returns a Throttle with the given pause. shared may be nil.
func NewThrottle(interval time.Duration, shared *rate.Limiter) *Throttle {
	if interval < 0 {
		interval = 0
	}
	return &Throttle{
		sem:      semaphore.NewWeighted(1),
		interval: interval,
		shared:   shared,
		now:      time.Now,
		wait:     sleepCtx,
	}
}

// Interval returns the configured pause.
func (t *Throttle) Interval() time.Duration { return t.interval }

// Do waits for the slot and the pause, then runs fn. The error of fn is
// returned unchanged; a context error is returned if ctx ends while waiting,
// in which case fn is not called.
func (t *Throttle) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer t.sem.Release(1)

	if !t.last.IsZero() {
		if d := t.interval - t.now().Sub(t.last); d > 0 {
			if err := t.wait(ctx, d); err != nil {
				return err
			}
		}
	}
	if t.shared != nil {
		if err := t.shared.Wait(ctx); err != nil {
			return err
		}
	}
	defer func() { t.last = t.now() }()
	return fn(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}

// NewSharedLimiter returns a process-wide limiter allowing perSec deliveries
// per second, or nil when perSec is not positive.
func NewSharedLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSec), 1)
}
