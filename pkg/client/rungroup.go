package client

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// RunGroupConcurrencyLimit is the maximum number of concurrent operations in one RunGroup.
const RunGroupConcurrencyLimit = 32

// RunGroup allows scheduling operations by the Add method
// and then running them concurrently by the RunAndWait method.
//
// The group stops when the first error occurs.
// The first error will be returned from the RunAndWait method.
//
// If you need to run operations immediately,
// or if you want to wait and collect all errors, use client.WaitGroup instead.
type RunGroup struct {
	ctx   context.Context
	start chan struct{} // postpone the work until RunAndWait is called
	group *errgroup.Group
	sem   *semaphore.Weighted // limit concurrency
}

// NewRunGroup creates a new RunGroup.
func NewRunGroup(ctx context.Context) *RunGroup {
	return RunGroupWithLimit(ctx, RunGroupConcurrencyLimit)
}

// RunGroupWithLimit creates a new RunGroup with given concurrent operations limit.
func RunGroupWithLimit(ctx context.Context, limit int64) *RunGroup {
	group, ctx := errgroup.WithContext(ctx)
	return &RunGroup{
		ctx:   ctx,
		start: make(chan struct{}),
		group: group,
		sem:   semaphore.NewWeighted(limit),
	}
}

// Add an operation.
// The operation will run on call of the RunAndWait method.
// Additional operations can be added using the Add method (for example from a callback),
// even if RunAndWait has already been called, but is not yet finished.
func (g *RunGroup) Add(op Operation) {
	g.group.Go(func() error {
		// Postpone the work until RunAndWait is called
		<-g.start

		// Limit number of concurrent operations
		if err := g.sem.Acquire(g.ctx, 1); err != nil {
			// Ctx is done, return
			return err
		}
		defer g.sem.Release(1)

		return op(g.ctx)
	})
}

// RunAndWait starts the scheduled operations and waits for the result.
// After the first error the group stops and the error is returned.
//
// Additional operations can be added using the Add method (for example from a callback),
// even if RunAndWait has already been called, but is not yet finished.
func (g *RunGroup) RunAndWait() error {
	close(g.start)
	return g.group.Wait()
}
