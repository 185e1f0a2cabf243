// Package config loads run files for the abm command. A run file names a
// model, its parameters and where results go; environment variables override
// the seed and the log level.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"gridabm/internal/logging"
)

// RunConfig is one run file.
type RunConfig struct {
	// Model is the registered model name.
	Model string `yaml:"model"`

	Seed        int64 `yaml:"seed"`
	Steps       int   `yaml:"steps"`
	VerifyEvery int   `yaml:"verify_every"`
	AgentEvery  int   `yaml:"agent_every"`

	// Params are handed to the model factory as strings.
	Params map[string]string `yaml:"params"`

	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Sweep   SweepConfig   `yaml:"sweep"`
	Serve   ServeConfig   `yaml:"serve"`
}

// OutputConfig selects result sinks. Empty paths disable a sink.
type OutputConfig struct {
	SQLite string `yaml:"sqlite"`
	Arrow  string `yaml:"arrow"`
	Events string `yaml:"events"`
}

// LoggingConfig configures the operational logger.
type LoggingConfig struct {
	// Level is "error", "warn", "info" (default), "debug" or "trace".
	Level string `yaml:"level"`
}

// SweepConfig expands one run into a batch: every seed times every
// combination of Grid values.
type SweepConfig struct {
	Seeds   []int64             `yaml:"seeds"`
	Grid    map[string][]string `yaml:"grid"`
	Workers int                 `yaml:"workers"`
}

// ServeConfig configures the websocket stream.
type ServeConfig struct {
	Addr string  `yaml:"addr"`
	TPS  int    `yaml:"tps"`
	// Idle is how long a finished run stays up before the server exits;
	// zero keeps it up until interrupted.
	Idle time.Duration `yaml:"idle"`
}

// Default returns a schelling run with seed 1.
func Default() *RunConfig {
	return &RunConfig{
		Model:   "schelling",
		Seed:    1,
		Params:  map[string]string{},
		Logging: LoggingConfig{Level: "info"},
		Sweep:   SweepConfig{Workers: 4},
		Serve:   ServeConfig{Addr: ":8080", TPS: 10},
	}
}

// Load reads path on top of Default and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*RunConfig, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads a run file without environment overrides.
func LoadFromFile(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing run file: %w", err)
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *RunConfig) error {
	if v := os.Getenv("GRIDABM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("GRIDABM_SEED: %w", err)
		}
		cfg.Seed = seed
	}
	if v := os.Getenv("GRIDABM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks the fields the loader owns. Model parameters are validated
// by the model factory.
func (c *RunConfig) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("model must be set"))
	}
	if c.Steps < 0 {
		errs = append(errs, fmt.Errorf("steps must be >= 0, got %d", c.Steps))
	}
	if c.VerifyEvery < 0 || c.AgentEvery < 0 {
		errs = append(errs, fmt.Errorf("verify_every and agent_every must be >= 0"))
	}
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace)", c.Logging.Level))
	}
	if c.Sweep.Workers < 0 {
		errs = append(errs, fmt.Errorf("sweep.workers must be >= 0, got %d", c.Sweep.Workers))
	}
	for key, values := range c.Sweep.Grid {
		if len(values) == 0 {
			errs = append(errs, fmt.Errorf("sweep.grid.%s has no values", key))
		}
	}
	if c.Serve.TPS < 0 {
		errs = append(errs, fmt.Errorf("serve.tps must be >= 0, got %d", c.Serve.TPS))
	}
	return errors.Join(errs...)
}

// ModelParams merges the run-level fields into the model parameters. Explicit
// entries in Params win over run-level fields.
func (c *RunConfig) ModelParams() map[string]string {
	out := map[string]string{"seed": strconv.FormatInt(c.Seed, 10)}
	if c.Steps > 0 {
		out["steps"] = strconv.Itoa(c.Steps)
	}
	if c.VerifyEvery > 0 {
		out["verify_every"] = strconv.Itoa(c.VerifyEvery)
	}
	if c.AgentEvery > 0 {
		out["agent_every"] = strconv.Itoa(c.AgentEvery)
	}
	for k, v := range c.Params {
		out[k] = v
	}
	return out
}
