package wealth

import "gridabm/pkg/core"

// Config holds the tunables of the wealth-exchange model.
type Config struct {
	Agents        int
	Width, Height int
	Boundary      core.Boundary
	InitialWealth int
	Steps         int
	Seed          int64
	AgentEvery    int
	VerifyEvery   int
}

// DefaultConfig returns the lecture setup: 100 agents with one unit each on a
// 10x10 bounded grid.
func DefaultConfig() Config {
	return Config{
		Agents:        100,
		Width:         10,
		Height:        10,
		Boundary:      core.Bounded,
		InitialWealth: 1,
		Steps:         100,
		Seed:          1,
	}
}

// FromMap parses string parameters on top of DefaultConfig.
func FromMap(raw map[string]string) (Config, core.ParameterSnapshot, error) {
	cfg := DefaultConfig()
	p := core.NewParams(raw)
	p.Group("grid", "Lattice")
	cfg.Width = p.Int("width", cfg.Width, "grid width")
	cfg.Height = p.Int("height", cfg.Height, "grid height")
	boundary := p.String("boundary", cfg.Boundary.String(), "edge policy", "bounded", "toroidal")

	p.Group("economy", "Agents and wealth")
	cfg.Agents = p.Int("agents", cfg.Agents, "number of agents")
	cfg.InitialWealth = p.Int("initial_wealth", cfg.InitialWealth, "starting wealth per agent")

	p.Group("run", "Run control")
	cfg.Steps = p.Int("steps", cfg.Steps, "number of steps")
	cfg.Seed = p.Int64("seed", cfg.Seed, "random seed")
	cfg.AgentEvery = p.Int("agent_every", cfg.AgentEvery, "agent snapshot interval")
	cfg.VerifyEvery = p.Int("verify_every", cfg.VerifyEvery, "cross-check neighbor strategies every N steps")

	p.Check(cfg.Agents >= 0, "agents", "must be >= 0, got %d", cfg.Agents)
	p.Check(cfg.InitialWealth >= 0, "initial_wealth", "must be >= 0, got %d", cfg.InitialWealth)
	p.Check(cfg.Steps >= 1, "steps", "must be >= 1, got %d", cfg.Steps)
	if err := p.Err(); err != nil {
		return cfg, core.ParameterSnapshot{}, err
	}
	cfg.Boundary, _ = core.ParseBoundary(boundary)
	return cfg, p.Snapshot(), nil
}
