package dateprobe

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/always-cache/date-probe/report"
)

// Runner runs independent sessions on a bounded pool of workers. Each
// session owns its own client, so sessions share nothing.
type Runner struct {
	prober      *Prober
	concurrency int
}

func NewRunner(prober *Prober, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{prober: prober, concurrency: concurrency}
}

type job struct {
	index int
	url   string
}

// RunAll probes every url with plan. Results are in the order of urls; the
// slot of a url that was rejected before probing is nil and its error is
// part of the returned error.
func (r *Runner) RunAll(ctx context.Context, urls []string, plan Plan) ([]*report.SessionResult, error) {
	results := make([]*report.SessionResult, len(urls))
	errs := make([]error, len(urls))

	jobs := make(chan job)
	var wg sync.WaitGroup
	workers := r.concurrency
	if workers > len(urls) {
		workers = len(urls)
	}
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := r.prober.Run(ctx, j.url, plan)
				if err != nil {
					errs[j.index] = fmt.Errorf("%s: %w", j.url, err)
				}
				results[j.index] = res
			}
		}()
	}
	for i, url := range urls {
		jobs <- job{index: i, url: url}
	}
	close(jobs)
	wg.Wait()

	return results, multierr.Combine(errs...)
}
