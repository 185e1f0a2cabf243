package schelling

import "gridabm/pkg/core"

// Config holds the tunables of the segregation model.
type Config struct {
	Width, Height int
	Density       float64
	Minority      float64
	// Accept is the utility an agent needs to stay put.
	Accept      float64
	AlwaysHappy float64

	Shape    core.Shape
	Radius   int
	Boundary core.Boundary

	Utility  string
	Isolated float64
	// UtilityParams are forwarded to the utility constructor.
	UtilityParams map[string]float64

	Seed        int64
	MaxSteps    int
	VerifyEvery int
	AgentEvery  int
}

// DefaultConfig mirrors the classic lecture setup: a 20x20 torus, 80% full,
// 30% minority, threshold utility at 0.3.
func DefaultConfig() Config {
	return Config{
		Width:         20,
		Height:        20,
		Density:       0.8,
		Minority:      0.3,
		Accept:        0.5,
		Shape:         core.Moore,
		Radius:        1,
		Boundary:      core.Toroidal,
		Utility:       "threshold",
		Isolated:      1,
		Seed:          1,
		MaxSteps:      200,
		UtilityParams: map[string]float64{"homophily": 0.3},
	}
}

// FromMap parses string parameters on top of DefaultConfig.
func FromMap(raw map[string]string) (Config, core.ParameterSnapshot, error) {
	cfg := DefaultConfig()
	p := core.NewParams(raw)

	p.Group("grid", "Lattice and neighborhood")
	cfg.Width = p.Int("width", cfg.Width, "grid width")
	cfg.Height = p.Int("height", cfg.Height, "grid height")
	boundary := p.String("boundary", cfg.Boundary.String(), "edge policy", "bounded", "toroidal")
	shape := p.String("shape", cfg.Shape.String(), "neighborhood shape", "orthogonal", "moore", "extended")
	cfg.Radius = p.Int("radius", cfg.Radius, "neighborhood radius")

	p.Group("population", "Initial population")
	cfg.Density = p.Float("density", cfg.Density, "probability that a cell starts occupied")
	cfg.Minority = p.Float("minority", cfg.Minority, "share of minority agents")
	cfg.AlwaysHappy = p.Float("always_happy", cfg.AlwaysHappy, "share of agents that never move")

	p.Group("utility", "Satisfaction rule")
	cfg.Utility = p.String("utility", cfg.Utility, "utility kind", core.UtilityKinds()...)
	cfg.Isolated = p.Float("isolated", cfg.Isolated, "utility of an agent with no neighbors")
	cfg.Accept = p.Float("accept", cfg.Accept, "utility needed to stay")
	params := map[string]float64{
		"homophily": p.Float("homophily", cfg.UtilityParams["homophily"], "threshold: similar share wanted"),
		"power":     p.Float("power", 2, "quadratic: exponent"),
		"optimal":   p.Float("optimal", 0.5, "peaked: best similar share"),
		"tolerance": p.Float("tolerance", 0.2, "peaked: width of the peak"),
		"midpoint":  p.Float("midpoint", 0.5, "sigmoid: midpoint"),
		"steepness": p.Float("steepness", 10, "sigmoid/exponential: steepness"),
	}
	cfg.UtilityParams = params

	p.Group("run", "Run control")
	cfg.Seed = p.Int64("seed", cfg.Seed, "random seed")
	cfg.MaxSteps = p.Int("steps", cfg.MaxSteps, "step limit, 0 for none")
	cfg.VerifyEvery = p.Int("verify_every", cfg.VerifyEvery, "cross-check neighbor strategies every N steps")
	cfg.AgentEvery = p.Int("agent_every", cfg.AgentEvery, "agent snapshot interval")

	p.Check(cfg.Minority >= 0 && cfg.Minority <= 1, "minority", "must be in [0,1], got %g", cfg.Minority)
	p.Check(cfg.AlwaysHappy >= 0 && cfg.AlwaysHappy <= 1, "always_happy", "must be in [0,1], got %g", cfg.AlwaysHappy)
	p.Check(cfg.MaxSteps >= 0, "steps", "must be >= 0, got %d", cfg.MaxSteps)

	if err := p.Err(); err != nil {
		return cfg, core.ParameterSnapshot{}, err
	}
	// Choices were validated above, so these cannot fail.
	cfg.Boundary, _ = core.ParseBoundary(boundary)
	cfg.Shape, _ = core.ParseShape(shape)
	return cfg, p.Snapshot(), nil
}
