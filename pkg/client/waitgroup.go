package client

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/hashicorp/go-multierror"
)

// WaitGroupConcurrencyLimit is the maximum number of concurrent operations in one WaitGroup.
const WaitGroupConcurrencyLimit = 8

// Operation is a unit of work scheduled on a WaitGroup or RunGroup.
// It usually wraps one or more dispatched requests.
type Operation func(ctx context.Context) error

// WaitGroup allows running operations concurrently using the Run method
// and waiting until all of them are completed using the Wait method.
//
// An operation starts immediately after calling the Run method.
// If an error occurs, the group does not stop, all operations will run.
// Wait method at the end returns all errors that have occurred, if any.
//
// If you need to schedule operations and run them later,
// or if you want to stop at the first error, use client.RunGroup instead.
type WaitGroup struct {
	ctx context.Context
	wg  *sync.WaitGroup     // wait for all
	sem *semaphore.Weighted // limit concurrency

	lock *sync.Mutex // for err
	err  *multierror.Error
}

// NewWaitGroup creates new WaitGroup.
func NewWaitGroup(ctx context.Context) *WaitGroup {
	return NewWaitGroupWithLimit(ctx, WaitGroupConcurrencyLimit)
}

// NewWaitGroupWithLimit creates new WaitGroup with given concurrent operations limit.
func NewWaitGroupWithLimit(ctx context.Context, limit int64) *WaitGroup {
	return &WaitGroup{ctx: ctx, wg: &sync.WaitGroup{}, sem: semaphore.NewWeighted(limit), lock: &sync.Mutex{}}
}

// Wait for all operations to complete. All errors that have occurred will be returned.
func (g *WaitGroup) Wait() error {
	g.wg.Wait()
	// If there is only one error, then unwrap multierror
	if g.err != nil && len(g.err.Errors) == 1 {
		return g.err.Errors[0]
	}
	return g.err.ErrorOrNil()
}

// Run a concurrent operation.
func (g *WaitGroup) Run(op Operation) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		// Limit number of concurrent operations
		if err := g.sem.Acquire(g.ctx, 1); err != nil {
			// Ctx is done, return
			return
		}
		defer g.sem.Release(1)

		if err := op(g.ctx); err != nil {
			g.lock.Lock()
			defer g.lock.Unlock()
			g.err = multierror.Append(g.err, err)
		}
	}()
}
