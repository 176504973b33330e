package services

import (
	"context"
	"sync"
)

// indexed carries a result with the position of its input.
type indexed[R any] struct {
	index int
	value R
}

// fanOut runs fn over every item on at most workers goroutines and sends
// each result as soon as it is ready. Every item is processed even after
// ctx is cancelled; fn is expected to check ctx itself. The channel is
// closed once all results have been sent.
func fanOut[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) R) <-chan indexed[R] {
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan int)
	out := make(chan indexed[R], len(items))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out <- indexed[R]{index: i, value: fn(ctx, items[i])}
			}
		}()
	}

	go func() {
		for i := range items {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(out)
	}()

	return out
}

// collectOrdered gathers fanOut results back into input order.
func collectOrdered[R any](n int, results <-chan indexed[R]) []R {
	ordered := make([]R, n)
	for r := range results {
		ordered[r.index] = r.value
	}
	return ordered
}
