package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"gridabm/pkg/core"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one model to termination",
		Long: `Build a model from the run file and flags, run it until its
termination condition holds, and print the final metrics.

Examples:
  abm run --model schelling --set density=0.9 --set homophily=0.4
  abm run --config runs/wolfsheep.yaml --sqlite results.db --arrow out/metrics.arrow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			m, err := core.Build(cfg.Model, cfg.ModelParams(), core.Options{Logger: log})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			started := time.Now()
			runErr := m.Sim().Run(ctx)
			elapsed := time.Since(started)

			out := cmd.OutOrStdout()
			printSummary(out, m, elapsed.Round(time.Millisecond).String())
			// Interrupted runs still save what they recorded.
			if err := saveOutputs(context.WithoutCancel(ctx), out, cfg, []finished{{m, started, elapsed}}); err != nil {
				return err
			}
			return runErr
		},
	}
	addRunFlags(cmd)
	cmd.Flags().String("sqlite", "", "Save the run to this SQLite database")
	cmd.Flags().String("arrow", "", "Write model metrics to this Arrow IPC file")
	cmd.Flags().String("events", "", "Append per-step JSONL events to this file")
	return cmd
}
