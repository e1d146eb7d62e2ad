// Package parallel runs independent per-index jobs on a bounded number of
// goroutines and waits for all of them.
package parallel

import (
	"runtime"
	"sync"
)

// ForEach calls fn(i) for every i in [0, n) using at most workers
// goroutines and returns once every call has returned. workers <= 0 means
// runtime.NumCPU(). A single job, or a single worker, runs on the caller's
// goroutine.
func ForEach(n, workers int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	wg.Wait()
}
