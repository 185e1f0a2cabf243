// Package app hosts the interactive grid viewer.
package app

import (
	"flag"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"gridabm/pkg/core"
)

// Config represents the command-line parameters of the viewer.
type Config struct {
	Model  string
	Scale  int
	TPS    int
	Seed   int64
	Panel  int
	Params map[string]string
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{Model: "schelling", Scale: 12, TPS: 10, Seed: 42, Panel: 240, Params: map[string]string{}}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Model, "model", c.Model, "model to run")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "simulation steps per second")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for simulation reset")
	fs.IntVar(&c.Panel, "panel", c.Panel, "status panel width in pixels, 0 to hide")
	fs.Func("set", "model parameter key=value (repeatable)", func(kv string) error {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return fmt.Errorf("want key=value, got %q", kv)
		}
		c.Params[k] = v
		return nil
	})
}

// Build constructs the configured model with the given seed.
func (c *Config) Build(seed int64, opts core.Options) (core.Model, error) {
	params := maps.Clone(c.Params)
	if params == nil {
		params = map[string]string{}
	}
	params["seed"] = strconv.FormatInt(seed, 10)
	return core.Build(c.Model, params, opts)
}
