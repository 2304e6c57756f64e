// Package pool implements the rate limiter and bounded-concurrency worker pool
// that every ledger-facing engine runs its network calls through.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Limiter spaces successive calls at least a fixed interval apart.
// It is safe for concurrent use:
// the next-allowed-time watermark is reserved and advanced in one step per call.
type Limiter struct {
	interval time.Duration
	lim      *rate.Limiter // nil means unthrottled
}

// NewLimiter produces a Limiter allowing maxRps calls per second,
// spaced ceil(1000/maxRps) milliseconds apart.
// A maxRps of zero or less disables throttling.
func NewLimiter(maxRps int) *Limiter {
	if maxRps <= 0 {
		return &Limiter{}
	}
	ms := (1000 + maxRps - 1) / maxRps
	interval := time.Duration(ms) * time.Millisecond
	return &Limiter{
		interval: interval,
		lim:      rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Interval is the minimum spacing between calls. It is zero for an unthrottled Limiter.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}

// Wait blocks until the caller may issue its call,
// or until ctx is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.lim == nil {
		return ctx.Err()
	}
	return l.lim.Wait(ctx)
}

// Pool runs independent work items with bounded concurrency,
// each one throttled by a shared Limiter.
type Pool struct {
	Limiter     *Limiter
	Concurrency int
}

// New produces a Pool from a speed profile.
func New(p Profile) *Pool {
	return &Pool{
		Limiter:     NewLimiter(p.MaxRps),
		Concurrency: p.MaxConcurrency,
	}
}

// Wait waits on p's Limiter.
// It is for calls made outside Run that still count against the rate.
func (p *Pool) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	return p.Limiter.Wait(ctx)
}

// Run calls f for every index in [0, n).
// It starts min(Concurrency, n) workers that claim indices from a shared cursor;
// each worker waits on the Limiter before every call.
// Calls happen in no particular order.
// The first error cancels the context passed to the remaining calls and is returned.
func (p *Pool) Run(ctx context.Context, n int, f func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}

	workers := 1
	if p != nil && p.Concurrency > 1 {
		workers = p.Concurrency
	}
	if workers > n {
		workers = n
	}

	var lim *Limiter
	if p != nil {
		lim = p.Limiter
	}

	g, ctx := errgroup.WithContext(ctx)

	var cursor int64 = -1
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := int(atomic.AddInt64(&cursor, 1))
				if i >= n {
					return nil
				}
				if err := lim.Wait(ctx); err != nil {
					return err
				}
				if err := f(ctx, i); err != nil {
					return err
				}
			}
		})
	}

	return g.Wait()
}

// ProgressFunc receives the number of completed units out of total.
type ProgressFunc func(done, total int)

// Progress reports completion of a fixed number of units to a ProgressFunc.
// Reports never decrease, even when units complete on concurrent goroutines.
// A nil *Progress, or one with a nil func, discards reports.
type Progress struct {
	mu    sync.Mutex
	done  int
	total int
	f     ProgressFunc
}

// NewProgress produces a Progress for total units.
func NewProgress(total int, f ProgressFunc) *Progress {
	return &Progress{total: total, f: f}
}

// Add marks n more units complete.
func (p *Progress) Add(n int) {
	if p == nil || p.f == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.done += n
	if p.done > p.total {
		p.total = p.done
	}
	p.f(p.done, p.total)
}
