package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gridabm/internal/sweep"
	"gridabm/pkg/core"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a batch of seeds and parameter combinations in parallel",
		Long: `Expand sweep.seeds x sweep.grid from the run file into independent
runs and execute them on a bounded worker pool. Every run owns its RNG, so
results match sequential runs with the same parameters.

Example run file:
  model: schelling
  steps: 100
  sweep:
    seeds: [1, 2, 3]
    workers: 4
    grid:
      homophily: ["0.3", "0.5", "0.7"]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("workers") {
				cfg.Sweep.Workers, _ = flags.GetInt("workers")
			}
			if flags.Changed("seeds") {
				cfg.Sweep.Seeds, _ = flags.GetInt64Slice("seeds")
			}
			log := newLogger(cfg)

			jobs := sweep.Expand(cfg.ModelParams(), cfg.Sweep.Seeds, cfg.Sweep.Grid)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sweeping %s runs of %s (%d workers)\n",
				humanize.Comma(int64(len(jobs))), cfg.Model, cfg.Sweep.Workers)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			start := time.Now()
			res, err := sweep.Run(ctx, cfg.Model, jobs, cfg.Sweep.Workers, core.Options{Logger: log})
			if err != nil {
				return err
			}
			runs := make([]finished, len(res))
			failed := 0
			for i, r := range res {
				runs[i] = finished{r.Model, r.Started, r.Elapsed}
				sim := r.Model.Sim()
				status := sim.Reason()
				if r.Err != nil {
					failed++
					status = "error: " + r.Err.Error()
				}
				fmt.Fprintf(out, "%-40s %s steps (%s)\n", r.Job, humanize.Comma(int64(sim.Steps())), status)
			}
			fmt.Fprintf(out, "\n%s runs in %s, %d failed\n",
				humanize.Comma(int64(len(res))), time.Since(start).Round(time.Millisecond), failed)

			if err := saveOutputs(ctx, out, cfg, runs); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d runs failed", failed, len(res))
			}
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Int("workers", 0, "Parallel runs (default from run file)")
	cmd.Flags().Int64Slice("seeds", nil, "Seeds to sweep (comma separated)")
	cmd.Flags().String("sqlite", "", "Save every run to this SQLite database")
	cmd.Flags().String("arrow", "", "Write per-run Arrow files, indexed by job")
	cmd.Flags().String("events", "", "Write per-run JSONL events, indexed by job")
	return cmd
}
