package concurrent

import (
	"context"
	"sync/atomic"
)

const defaultWorkers = 4

// WorkerPool bounds how many functions run at once.
type WorkerPool struct {
	sem      chan struct{}
	inFlight atomic.Int32
}

// NewWorkerPool creates a pool running at most maxWorkers functions at a time.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = defaultWorkers
	}
	return &WorkerPool{sem: make(chan struct{}, maxWorkers)}
}

// Do runs fn once a slot is free. It returns ctx.Err() without running fn if
// ctx ends first.
func (wp *WorkerPool) Do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case wp.sem <- struct{}{}:
		wp.inFlight.Add(1)
		defer func() {
			wp.inFlight.Add(-1)
			<-wp.sem
		}()
		return fn()
	}
}

// Size is the maximum number of concurrent functions.
func (wp *WorkerPool) Size() int { return cap(wp.sem) }

// InFlight reports how many functions are running.
func (wp *WorkerPool) InFlight() int { return int(wp.inFlight.Load()) }
