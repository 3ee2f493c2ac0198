package ml

import (
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// DefaultWorkers returns the logical core count reported by the CPU.
func DefaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// ForEach runs body(i) for every i in [0, n) on at most limit goroutines.
// A panic raised by any body is re-raised in the caller once all goroutines have finished.
func ForEach(n, limit int, body func(i int)) {
	if n <= 0 {
		return
	}
	if limit <= 0 {
		limit = DefaultWorkers()
	}
	if limit == 1 || n == 1 {
		for i := 0; i < n; i++ {
			body(i)
		}
		return
	}

	var (
		wg        sync.WaitGroup
		once      sync.Once
		recovered any
	)
	sem := make(chan struct{}, limit)
	wg.Add(n)

	for i := 0; i < n; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { recovered = r })
				}
			}()
			body(i)
		}(i)
	}
	wg.Wait()

	if recovered != nil {
		panic(recovered)
	}
}
