// Package gate is the Concurrency Gate: a process-wide bounded semaphore
// admitting at most N one-shot executions at a time, FIFO, cancellable
// while queued.
package gate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

const DefaultCapacity = 3

// Gate bounds concurrent one-shot executions. REPL key injection does
// not go through the Gate; it is a local, synchronous operation.
type Gate struct {
	sem *semaphore.Weighted
}

func New(capacity int) *Gate {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Gate{sem: semaphore.NewWeighted(int64(capacity))}
}

// Acquire blocks, FIFO, until a slot is free or ctx is cancelled. A
// cancellation while queued removes the waiter from the queue without
// side effects (semaphore.Weighted's own cancellation behavior).
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		g.sem.Release(1)
	}, nil
}
