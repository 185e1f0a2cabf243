package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gridabm/internal/config"
	"gridabm/internal/logging"
	"gridabm/pkg/core"
)

// addRunFlags registers the flags shared by run, sweep and serve. Flags
// override the run file.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", "", "Model name (see abm models)")
	cmd.Flags().Int64("seed", 0, "Random seed")
	cmd.Flags().Int("steps", 0, "Step limit")
	cmd.Flags().Int("verify-every", 0, "Cross-check neighbor strategies every N steps")
	cmd.Flags().Int("agent-every", 0, "Record agent snapshots every N steps")
	cmd.Flags().StringArray("set", nil, "Model parameter key=value (repeatable)")
}

// loadRunConfig resolves defaults, the run file, environment and flags, in
// that order.
func loadRunConfig(cmd *cobra.Command) (*config.RunConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model, _ = flags.GetString("model")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("steps") {
		cfg.Steps, _ = flags.GetInt("steps")
	}
	if flags.Changed("verify-every") {
		cfg.VerifyEvery, _ = flags.GetInt("verify-every")
	}
	if flags.Changed("agent-every") {
		cfg.AgentEvery, _ = flags.GetInt("agent-every")
	}
	sets, _ := flags.GetStringArray("set")
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--set %q: want key=value", kv)
		}
		cfg.Params[k] = v
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if flags.Lookup("sqlite") != nil && flags.Changed("sqlite") {
		cfg.Output.SQLite, _ = flags.GetString("sqlite")
	}
	if flags.Lookup("arrow") != nil && flags.Changed("arrow") {
		cfg.Output.Arrow, _ = flags.GetString("arrow")
	}
	if flags.Lookup("events") != nil && flags.Changed("events") {
		cfg.Output.Events, _ = flags.GetString("events")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.RunConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, os.Stderr)
}

// printSummary writes a one-line run summary followed by the latest value of
// every model column.
func printSummary(w io.Writer, m core.Model, elapsed string) {
	sim := m.Sim()
	status := sim.Reason()
	if err := sim.Err(); err != nil {
		status = "error: " + err.Error()
	}
	fmt.Fprintf(w, "%s: %s steps (%s) in %s, %s agents\n",
		m.Name(), humanize.Comma(int64(sim.Steps())), status, elapsed,
		humanize.Comma(int64(sim.Registry().Len())))
	row, ok := sim.Metrics().Latest()
	if !ok {
		return
	}
	for _, name := range sim.Metrics().Columns() {
		v, _ := row.Get(name)
		fmt.Fprintf(w, "  %-14s %s\n", name, humanize.Ftoa(v))
	}
}

// indexedPath inserts a zero-padded job index before the extension:
// out/metrics.arrow becomes out/metrics-007.arrow.
func indexedPath(path string, i int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%03d%s", strings.TrimSuffix(path, ext), i, ext)
}
