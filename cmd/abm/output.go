package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"gridabm/internal/config"
	"gridabm/internal/logging"
	"gridabm/internal/results"
	"gridabm/pkg/core"
)

// finished is a completed model run waiting to be written out.
type finished struct {
	model   core.Model
	started time.Time
	elapsed time.Duration
}

// saveOutputs writes every finished run to the sinks cfg enables. With more
// than one run, Arrow and event files get a job index in their name.
func saveOutputs(ctx context.Context, w io.Writer, cfg *config.RunConfig, runs []finished) error {
	var store *results.Store
	if cfg.Output.SQLite != "" {
		var err error
		if store, err = results.Open(cfg.Output.SQLite); err != nil {
			return err
		}
		defer store.Close()
	}

	for i, f := range runs {
		run := results.NewRun(f.model, f.started, f.elapsed)
		exp := f.model.Sim().Metrics().Export()
		if store != nil {
			if err := store.SaveRun(ctx, run, exp); err != nil {
				return fmt.Errorf("save run %s: %w", run.ID, err)
			}
		}
		if cfg.Output.Arrow != "" {
			path := cfg.Output.Arrow
			if len(runs) > 1 {
				path = indexedPath(path, i)
			}
			if err := writeArrow(w, path, run, exp); err != nil {
				return err
			}
		}
		if cfg.Output.Events != "" {
			path := cfg.Output.Events
			if len(runs) > 1 {
				path = indexedPath(path, i)
			}
			if err := writeEvents(path, run, exp); err != nil {
				return err
			}
		}
	}
	if store != nil {
		fmt.Fprintf(w, "saved %s run(s) to %s\n", humanize.Comma(int64(len(runs))), cfg.Output.SQLite)
	}
	return nil
}

func writeArrow(w io.Writer, path string, run results.Run, exp core.Export) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	meta := map[string]string{
		"run_id": run.ID,
		"model":  run.Model,
		"seed":   strconv.FormatInt(run.Seed, 10),
		"params": run.Params,
		"reason": run.Reason,
	}
	if err := results.WriteModelArrow(f, exp, meta); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if len(exp.Agents) > 0 {
		agentPath := agentTablePath(path)
		af, err := os.Create(agentPath)
		if err != nil {
			return err
		}
		if err := results.WriteAgentArrow(af, exp, meta); err != nil {
			af.Close()
			return err
		}
		if err := af.Close(); err != nil {
			return err
		}
	}
	if info, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "wrote %s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
	}
	return nil
}

// agentTablePath names the agent table next to the model table:
// metrics.arrow becomes metrics.agents.arrow.
func agentTablePath(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + ".agents" + ext
}

func writeEvents(path string, run results.Run, exp core.Export) error {
	log, err := logging.NewEventLog(path)
	if err != nil {
		return err
	}
	defer log.Close()
	for _, rec := range exp.Model {
		event := map[string]any{"run_id": run.ID, "step": rec.Step}
		for i, name := range exp.ModelColumns {
			event[name] = eventValue(rec.Values[i])
		}
		log.Log(event)
	}
	log.Log(map[string]any{
		"run_id": run.ID,
		"model":  run.Model,
		"seed":   run.Seed,
		"steps":  run.Steps,
		"reason": run.Reason,
		"error":  run.Error,
	})
	return nil
}

// eventValue maps values JSON cannot carry to null.
func eventValue(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
