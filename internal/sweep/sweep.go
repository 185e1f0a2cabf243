// Package sweep runs batches of independent simulations in parallel, one per
// seed and parameter combination.
package sweep

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"gridabm/pkg/core"
)

// Job is one run of a sweep.
type Job struct {
	Index  int
	Seed   int64
	Params map[string]string
}

func (j Job) String() string {
	keys := slices.Sorted(maps.Keys(j.Params))
	s := fmt.Sprintf("#%d", j.Index)
	for _, k := range keys {
		s += " " + k + "=" + j.Params[k]
	}
	return s
}

// Expand builds the cartesian product of seeds and grid values over base.
// Seeds vary slowest; grid keys vary in sorted order with the last key
// fastest. An empty seed list runs base's own seed once. Every job's Params
// carries its "seed".
func Expand(base map[string]string, seeds []int64, grid map[string][]string) []Job {
	if len(seeds) == 0 {
		seed, _ := strconv.ParseInt(base["seed"], 10, 64)
		seeds = []int64{seed}
	}
	keys := slices.Sorted(maps.Keys(grid))
	combos := []map[string]string{{}}
	for _, k := range keys {
		var next []map[string]string
		for _, c := range combos {
			for _, v := range grid[k] {
				m := maps.Clone(c)
				m[k] = v
				next = append(next, m)
			}
		}
		combos = next
	}

	jobs := make([]Job, 0, len(seeds)*len(combos))
	for _, seed := range seeds {
		for _, c := range combos {
			params := maps.Clone(base)
			if params == nil {
				params = map[string]string{}
			}
			maps.Copy(params, c)
			params["seed"] = strconv.FormatInt(seed, 10)
			jobs = append(jobs, Job{Index: len(jobs), Seed: seed, Params: params})
		}
	}
	return jobs
}

// Result is a finished job. Err is the run's fatal simulation error, if any;
// the model is kept for result export.
type Result struct {
	Job     Job
	Model   core.Model
	Started time.Time
	Elapsed time.Duration
	Err     error
}

// Run executes jobs with at most workers in flight (workers <= 0 means one
// per job). Each job builds its own model, so instances share nothing but the
// logger in opts. Results come back in job order. A job whose parameters do
// not build a model aborts the sweep; a run that terminates with a fatal
// error does not.
func Run(ctx context.Context, model string, jobs []Job, workers int, opts core.Options) ([]Result, error) {
	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, job := range jobs {
		g.Go(func() error {
			m, err := core.Build(model, job.Params, opts)
			if err != nil {
				return fmt.Errorf("job %v: %w", job, err)
			}
			started := time.Now()
			runErr := m.Sim().Run(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			results[i] = Result{Job: job, Model: m, Started: started, Elapsed: time.Since(started), Err: runErr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
