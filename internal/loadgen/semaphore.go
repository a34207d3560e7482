// Package loadgen holds the small pieces of concurrency plumbing used by the
// demo workload generator (cmd/rhmapd).
package loadgen

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Weighted wraps golang.org/x/sync/semaphore.Weighted, additionally tracking
// how much weight is currently available so callers can report on it (a
// plain semaphore.Weighted exposes no such introspection).
type Weighted struct {
	sem           *semaphore.Weighted
	maxWeight     int64
	currentWeight int64
	mu            sync.Mutex
}

// NewWeighted returns a Weighted semaphore that can issue up to maxWeight in
// total at once.
func NewWeighted(maxWeight int64) *Weighted {
	return &Weighted{
		sem:           semaphore.NewWeighted(maxWeight),
		maxWeight:     maxWeight,
		currentWeight: maxWeight,
	}
}

// Acquire blocks until weight is available or ctx is done.
func (w *Weighted) Acquire(ctx context.Context, weight int64) error {
	if err := w.sem.Acquire(ctx, weight); err != nil {
		return err
	}
	w.mu.Lock()
	w.currentWeight -= weight
	w.mu.Unlock()
	return nil
}

// Release returns weight to the semaphore.
func (w *Weighted) Release(weight int64) {
	w.mu.Lock()
	w.currentWeight += weight
	w.mu.Unlock()
	w.sem.Release(weight)
}

// Available returns the currently unissued weight.
func (w *Weighted) Available() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentWeight
}
