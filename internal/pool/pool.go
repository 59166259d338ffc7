// Package pool runs a batch of tasks with a bound on how many are in
// flight at once.
package pool

import "golang.org/x/sync/errgroup"

// Run calls worker once for every input, never with more than limit calls
// running at the same time, and returns the results positionally aligned
// with inputs. A limit below 1 is treated as 1.
//
// Run has no notion of failure: workers are expected to translate their own
// errors into an O value. Every slot is filled exactly once. Cancellation is
// the worker's business, typically through a context it closes over.
func Run[I, O any](inputs []I, limit int, worker func(in I, idx int) O) []O {
	results := make([]O, len(inputs))
	if len(inputs) == 0 {
		return results
	}
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, in := range inputs {
		// Go blocks while limit workers are active.
		g.Go(func() error {
			results[i] = worker(in, i)
			return nil
		})
	}

	_ = g.Wait()
	return results
}
