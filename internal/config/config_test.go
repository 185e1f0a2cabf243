package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRunFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Model != "schelling" || cfg.Seed != 1 || cfg.Logging.Level != "info" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeRunFile(t, `
model: wolfsheep
seed: 42
steps: 150
agent_every: 10
params:
  sheep: "80"
  grass_layout: noise
output:
  sqlite: results.db
  arrow: metrics.arrow
logging:
  level: debug
sweep:
  seeds: [1, 2, 3]
  workers: 2
  grid:
    wolves: ["10", "20"]
`)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Model != "wolfsheep" || cfg.Seed != 42 || cfg.Steps != 150 {
		t.Fatalf("run fields = %+v", cfg)
	}
	if cfg.Params["sheep"] != "80" || cfg.Params["grass_layout"] != "noise" {
		t.Fatalf("params = %v", cfg.Params)
	}
	if cfg.Output.SQLite != "results.db" || cfg.Output.Arrow != "metrics.arrow" {
		t.Fatalf("output = %+v", cfg.Output)
	}
	if len(cfg.Sweep.Seeds) != 3 || cfg.Sweep.Workers != 2 || len(cfg.Sweep.Grid["wolves"]) != 2 {
		t.Fatalf("sweep = %+v", cfg.Sweep)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Fatalf("unset section lost its default: %+v", cfg.Serve)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file loaded")
	}
	if _, err := LoadFromFile(writeRunFile(t, "seed: [not, a, number]")); err == nil {
		t.Fatal("malformed file loaded")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeRunFile(t, "seed: 5\nlogging:\n  level: info\n")
	t.Setenv("GRIDABM_SEED", "77")
	t.Setenv("GRIDABM_LOG_LEVEL", "trace")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 77 || cfg.Logging.Level != "trace" {
		t.Fatalf("overrides not applied: seed=%d level=%s", cfg.Seed, cfg.Logging.Level)
	}

	t.Setenv("GRIDABM_SEED", "seven")
	if _, err := Load(""); err == nil {
		t.Fatal("bad GRIDABM_SEED accepted")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"no model", func(c *RunConfig) { c.Model = "" }},
		{"negative steps", func(c *RunConfig) { c.Steps = -1 }},
		{"bad level", func(c *RunConfig) { c.Logging.Level = "loud" }},
		{"negative workers", func(c *RunConfig) { c.Sweep.Workers = -2 }},
		{"empty grid axis", func(c *RunConfig) { c.Sweep.Grid = map[string][]string{"density": nil} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestModelParams(t *testing.T) {
	cfg := Default()
	cfg.Seed = 9
	cfg.Steps = 50
	cfg.Params = map[string]string{"density": "0.7", "steps": "20"}
	got := cfg.ModelParams()
	if got["seed"] != "9" || got["density"] != "0.7" {
		t.Fatalf("params = %v", got)
	}
	if got["steps"] != "20" {
		t.Fatalf("explicit param lost to run field: %v", got)
	}
	if _, ok := got["verify_every"]; ok {
		t.Fatal("unset verify_every leaked into params")
	}
}
