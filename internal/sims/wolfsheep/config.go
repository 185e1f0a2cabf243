package wolfsheep

import "gridabm/pkg/core"

// Config holds the tunables of the predator-prey model.
type Config struct {
	Width, Height  int
	Sheep, Wolves  int
	SheepReproduce float64
	WolfReproduce  float64
	SheepGain      float64
	WolfGain       float64
	Grass          bool
	Regrowth       int
	GrassLayout    string
	Steps          int
	Seed           int64
	AgentEvery     int
	VerifyEvery    int
}

// DefaultConfig returns the classic wolf-sheep setup on a 20x20 torus.
func DefaultConfig() Config {
	return Config{
		Width:          20,
		Height:         20,
		Sheep:          100,
		Wolves:         50,
		SheepReproduce: 0.04,
		WolfReproduce:  0.05,
		SheepGain:      4,
		WolfGain:       20,
		Grass:          true,
		Regrowth:       30,
		GrassLayout:    LayoutRandom,
		Steps:          200,
		Seed:           1,
	}
}

// FromMap parses string parameters on top of DefaultConfig.
func FromMap(raw map[string]string) (Config, core.ParameterSnapshot, error) {
	cfg := DefaultConfig()
	p := core.NewParams(raw)

	p.Group("grid", "Torus")
	cfg.Width = p.Int("width", cfg.Width, "grid width")
	cfg.Height = p.Int("height", cfg.Height, "grid height")

	p.Group("animals", "Populations and energy")
	cfg.Sheep = p.Int("sheep", cfg.Sheep, "initial sheep")
	cfg.Wolves = p.Int("wolves", cfg.Wolves, "initial wolves")
	cfg.SheepReproduce = p.Float("sheep_reproduce", cfg.SheepReproduce, "sheep reproduction chance per step")
	cfg.WolfReproduce = p.Float("wolf_reproduce", cfg.WolfReproduce, "wolf reproduction chance per step")
	cfg.SheepGain = p.Float("sheep_gain", cfg.SheepGain, "energy from one grass patch")
	cfg.WolfGain = p.Float("wolf_gain", cfg.WolfGain, "energy from one sheep")

	p.Group("pasture", "Grass")
	cfg.Grass = p.Bool("grass", cfg.Grass, "sheep need grown grass to feed")
	cfg.Regrowth = p.Int("regrowth", cfg.Regrowth, "steps for an eaten patch to regrow")
	cfg.GrassLayout = p.String("grass_layout", cfg.GrassLayout, "initial pasture", LayoutRandom, LayoutNoise)

	p.Group("run", "Run control")
	cfg.Steps = p.Int("steps", cfg.Steps, "step limit")
	cfg.Seed = p.Int64("seed", cfg.Seed, "random seed")
	cfg.AgentEvery = p.Int("agent_every", cfg.AgentEvery, "agent snapshot interval")
	cfg.VerifyEvery = p.Int("verify_every", cfg.VerifyEvery, "cross-check neighbor strategies every N steps")

	p.Check(cfg.Sheep >= 0 && cfg.Wolves >= 0, "sheep/wolves", "must be >= 0")
	p.Check(cfg.SheepReproduce >= 0 && cfg.SheepReproduce <= 1, "sheep_reproduce", "must be in [0,1], got %g", cfg.SheepReproduce)
	p.Check(cfg.WolfReproduce >= 0 && cfg.WolfReproduce <= 1, "wolf_reproduce", "must be in [0,1], got %g", cfg.WolfReproduce)
	p.Check(cfg.Regrowth >= 1, "regrowth", "must be >= 1, got %d", cfg.Regrowth)
	p.Check(cfg.Steps >= 1, "steps", "must be >= 1, got %d", cfg.Steps)
	if err := p.Err(); err != nil {
		return cfg, core.ParameterSnapshot{}, err
	}
	return cfg, p.Snapshot(), nil
}
