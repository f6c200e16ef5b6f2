package convert

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultJobs is the parallelism used when Batch is given a non-positive
// limit.
const DefaultJobs = 4

// Job is one source and destination pair.
type Job struct {
	Src string
	Dst string
}

// Batch runs jobs with at most limit conversions in flight. Every job runs
// even when another fails; results keep the order of jobs and the error
// joins every failure. Cancelling ctx stops jobs that have not started.
func Batch(ctx context.Context, jobs []Job, limit int, opts Options) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultJobs
	}
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			res, err := File(ctx, job.Src, job.Dst, opts)
			res.Err = err
			results[i] = res
			if err != nil {
				opts.logger().Warn("conversion failed", "src", job.Src, "dst", job.Dst, "error", err)
			}
			return nil
		})
	}
	// Failures are carried in results so that one does not stop the rest;
	// the group only bounds how many run at once.
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Src, r.Err))
		}
	}
	return results, errors.Join(errs...)
}
