package photometric

import "golang.org/x/sync/errgroup"

// forEachChunk splits [0, n) into at most workers contiguous chunks and runs
// fn on each concurrently. fn must only write state owned by its range.
func forEachChunk(workers, n int, fn func(lo, hi int)) {
	if workers <= 1 || n <= 1 {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
