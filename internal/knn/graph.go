package knn

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Graph maps each point index to its neighbor indices, nearest first.
// Entry i is written exactly once, by the worker that claimed index i, and
// the graph is read-only after BuildGraph returns.
type Graph [][]int32

// BuildGraph runs the per-point k-NN queries over a fixed-size worker pool
// and assembles the neighbor graph. workers <= 0 selects runtime.NumCPU().
//
// Each worker claims point indices from a shared atomic counter and writes
// only its own output slot, so the result is independent of scheduling
// order and worker count. A query that fails or comes up short degrades to
// a short (possibly empty) neighbor list for that point; it never aborts
// the batch.
func BuildGraph(ix *Index, k, workers int) Graph {
	n := ix.Len()
	graph := make(Graph, n)
	if n == 0 {
		return graph
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := next.Add(1) - 1
				if i >= int64(n) {
					return
				}
				graph[i] = ix.Nearest(int32(i), k)
			}
		}()
	}
	wg.Wait()

	return graph
}
