package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type Job func(ctx context.Context) error

// RunPool executes jobs with at most maxWorkers concurrently. A failing job
// does not cancel the others. Returns all errors in job order.
func RunPool(ctx context.Context, maxWorkers int, jobs []Job) []error {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	results := make([]error, len(jobs))
	var g errgroup.Group
	g.SetLimit(maxWorkers)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = job(ctx)
			return nil
		})
	}
	g.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
