package util

import "golang.org/x/sync/errgroup"

// SetWorkerLimit bounds the goroutines g runs at once to workers, or to one when workers is not
// positive, and returns the limit it set.
func SetWorkerLimit(g *errgroup.Group, workers int) int {
	if workers < 1 {
		workers = 1
	}

	g.SetLimit(workers)

	return workers
}
