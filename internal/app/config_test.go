package app

import (
	"flag"
	"testing"

	_ "gridabm/internal/sims/schelling"
	"gridabm/pkg/core"
)

func TestConfigBind(t *testing.T) {
	cfg := NewConfig()
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	cfg.Bind(fs)
	if err := fs.Parse([]string{"-model", "schelling", "-seed", "7", "-set", "width=16", "-set", "density=0.5"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Seed != 7 || cfg.Params["width"] != "16" || cfg.Params["density"] != "0.5" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if err := fs.Parse([]string{"-set", "novalue"}); err == nil {
		t.Fatal("malformed -set accepted")
	}
}

func TestConfigBuildAppliesSeed(t *testing.T) {
	cfg := NewConfig()
	cfg.Params["width"] = "16"
	m, err := cfg.Build(99, core.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Sim().RNG().Seed() != 99 || m.Sim().Grid().Width() != 16 {
		t.Fatalf("seed=%d width=%d", m.Sim().RNG().Seed(), m.Sim().Grid().Width())
	}
	if _, ok := cfg.Params["seed"]; ok {
		t.Fatal("Build mutated the configured parameters")
	}
}
