package worker

import (
	"context"
	"sync"
)

// Pool runs a bounded number of jobs concurrently
type Pool struct {
	workers int
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Workers returns the pool size
func (p *Pool) Workers() int {
	return p.workers
}

// Each calls fn once per index in [0, n) and waits for all calls to return.
// Indexes not yet started when ctx is canceled are skipped.
func (p *Pool) Each(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}

	jobs := make(chan int, p.workers*2) // Buffered to prevent blocking
	var wg sync.WaitGroup

	workers := min(p.workers, n)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fn(ctx, i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// Map applies fn to every item on p and returns the results in input order
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) R) []R {
	results := make([]R, len(items))
	p.Each(ctx, len(items), func(ctx context.Context, i int) {
		results[i] = fn(ctx, items[i])
	})
	return results
}
