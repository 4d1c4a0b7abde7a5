// Package async provides a bounded worker pool for the engine's
// embarrassingly parallel units: grid-search cells and permutation
// runs. Every unit is a pure function of its index, results land in
// pre-sized slots, and aggregation happens only after all units
// settle, so serial and parallel execution produce identical output.
package async

import (
	"context"
	"runtime"
	"sync"
)

// Pool dispatches indexed units of work to a fixed number of workers.
type Pool struct {
	workers int
}

// NewPool creates a pool. A non-positive worker count defaults to the
// number of CPUs.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.workers }

// ForEach runs fn for every index in [0, n) across the pool's workers
// and returns one error slot per index. Cancellation is cooperative:
// once ctx is done no new indices are dispatched and undone slots hold
// ctx.Err(). A failing unit never aborts its siblings; callers exclude
// failed slots from aggregation.
func (p *Pool) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}

	workers := p.workers
	if workers > n {
		workers = n
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				errs[i] = fn(ctx, i)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case indices <- i:
		case <-ctx.Done():
			for j := i; j < n; j++ {
				errs[j] = ctx.Err()
			}
			break feed
		}
	}
	close(indices)
	wg.Wait()
	return errs
}
