// Package limiter bounds the number of in-flight API calls per client.
package limiter

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter is a counting gate with a fixed number of slots. Waiters are
// admitted in arrival order as slots free. Every Acquire must be paired
// with exactly one Release, including on failure paths.
type Limiter struct {
	sem *semaphore.Weighted
	cap int
}

// New creates a limiter admitting at most max concurrent holders
func New(max int) *Limiter {
	if max < 1 {
		max = 1
	}
	return &Limiter{
		sem: semaphore.NewWeighted(int64(max)),
		cap: max,
	}
}

// Acquire blocks until a slot is free or ctx is done. On error no slot is
// held and Release must not be called.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// TryAcquire grabs a slot without blocking, reporting whether it succeeded
func (l *Limiter) TryAcquire() bool {
	return l.sem.TryAcquire(1)
}

// Release frees one slot and wakes the next waiter, if any
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Cap returns the configured slot count
func (l *Limiter) Cap() int {
	return l.cap
}
