package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// pollEvery is how often a held-back job call rechecks for interactive
// callers.
const pollEvery = 50 * time.Millisecond

type backgroundKey struct{}

// Background marks ctx as scheduled-job work. Catalog calls made with it
// yield to interactive ones.
func Background(ctx context.Context) context.Context {
	return context.WithValue(ctx, backgroundKey{}, true)
}

// IsBackground reports whether ctx was marked by Background.
func IsBackground(ctx context.Context) bool {
	v, _ := ctx.Value(backgroundKey{}).(bool)
	return v
}

// Budget is the single upstream rate shared by interactive commands and
// daily jobs. Interactive calls reserve directly. Job calls queue one at a
// time and hold back while an interactive call is waiting, so a fan-out of N
// workers keeps at most one job reservation ahead of a command.
type Budget struct {
	lim         *rate.Limiter
	interactive atomic.Int32
	jobs        sync.Mutex
}

// NewBudget allows rps calls per second with burst 1. rps <= 0 returns nil,
// which never waits.
func NewBudget(rps float64) *Budget {
	if rps <= 0 {
		return nil
	}
	return &Budget{lim: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Wait blocks until ctx may make one upstream call.
func (b *Budget) Wait(ctx context.Context) error {
	if b == nil {
		return nil
	}
	if !IsBackground(ctx) {
		b.interactive.Add(1)
		defer b.interactive.Add(-1)
		return b.lim.Wait(ctx)
	}

	b.jobs.Lock()
	defer b.jobs.Unlock()
	for b.interactive.Load() > 0 {
		t := time.NewTimer(pollEvery)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return b.lim.Wait(ctx)
}

// Interactive returns the number of interactive callers currently waiting.
func (b *Budget) Interactive() int {
	if b == nil {
		return 0
	}
	return int(b.interactive.Load())
}
