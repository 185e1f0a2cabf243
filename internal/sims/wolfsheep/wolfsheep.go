// Package wolfsheep is the predator-prey model: sheep graze a regrowing
// pasture, wolves hunt sheep, and both lose energy every step, dying when it
// runs out and reproducing by chance.
package wolfsheep

import (
	"gridabm/pkg/core"
)

// Species tags.
const (
	Sheep core.Species = "sheep"
	Wolf  core.Species = "wolf"
)

// AttrEnergy is the energy reserve of an animal.
const AttrEnergy = "energy"

// Cell classes produced by Cells.
const (
	CellBare  uint8 = 0
	CellGrass uint8 = 1
	CellSheep uint8 = 2
	CellWolf  uint8 = 3
)

// Model is a configured predator-prey run.
type Model struct {
	cfg     Config
	params  core.ParameterSnapshot
	sim     *core.Simulation
	pasture *Pasture
}

// New builds the model. Sheep act before wolves within a step and the pasture
// regrows once both have acted.
func New(cfg Config, opts core.Options) (*Model, error) {
	m := &Model{cfg: cfg}
	after := opts.AfterStep
	opts.AfterStep = func(w *core.World) error {
		if m.pasture != nil {
			m.pasture.Tick()
		}
		if after != nil {
			return after(w)
		}
		return nil
	}
	sim, err := core.New(core.Config{
		Width:        cfg.Width,
		Height:       cfg.Height,
		Boundary:     core.Toroidal,
		Capacity:     core.Unlimited,
		Neighborhood: core.NeighborhoodSpec{Shape: core.Orthogonal, Radius: 1},
		Seed:         cfg.Seed,
		Species: []core.SpeciesSpec{
			{Name: Sheep, Behavior: m.sheep, Factory: offspring(cfg.SheepGain)},
			{Name: Wolf, Behavior: m.wolf, Factory: offspring(cfg.WolfGain)},
		},
		Stages: []core.Species{Sheep, Wolf},
		Population: core.Population{Groups: []core.Group{
			{Species: Sheep, Count: cfg.Sheep},
			{Species: Wolf, Count: cfg.Wolves},
		}},
		Until: core.AnyOf(
			core.UntilStep(cfg.Steps),
			core.UntilMetric("extinct", func(r core.Row) bool {
				s, _ := r.Get("sheep")
				w, _ := r.Get("wolves")
				return s == 0 && w == 0
			}),
		),
		Reporters:   m.reporters(),
		AgentEvery:  cfg.AgentEvery,
		AgentAttrs:  []string{AttrEnergy},
		VerifyEvery: cfg.VerifyEvery,
	}, opts)
	if err != nil {
		return nil, err
	}
	m.sim = sim
	if cfg.Grass {
		m.pasture = NewPasture(cfg.Width, cfg.Height, cfg.Regrowth, cfg.GrassLayout, sim.RNG())
	}
	return m, nil
}

// offspring draws initial energy uniformly from [0, 2*gain); a newborn takes
// over the parent's already halved energy.
func offspring(gain float64) core.OffspringFactory {
	return func(rng *core.RNG, parent *core.Agent) core.Attributes {
		if parent != nil {
			return core.Attributes{AttrEnergy: parent.Attrs.Get(AttrEnergy)}
		}
		return core.Attributes{AttrEnergy: rng.Float64() * 2 * gain}
	}
}

func (m *Model) sheep(w *core.World, a *core.Agent) error {
	var safe, grazing []core.Cell
	for _, c := range w.Resolver().Neighbors(a.Cell()) {
		if occupied(w.Grid(), c, Wolf) {
			continue
		}
		safe = append(safe, c)
		if m.pasture != nil && m.pasture.Grown(c) {
			grazing = append(grazing, c)
		}
	}
	if len(grazing) > 0 {
		safe = grazing
	}
	if c, ok := core.Pick(w.RNG(), safe); ok {
		if err := w.Move(a, c); err != nil {
			return err
		}
	}
	a.Attrs.Add(AttrEnergy, -1)
	if m.pasture == nil || m.pasture.Consume(a.Cell()) {
		a.Attrs.Add(AttrEnergy, m.cfg.SheepGain)
	}
	return m.live(w, a, m.cfg.SheepReproduce)
}

func (m *Model) wolf(w *core.World, a *core.Agent) error {
	neighbors := w.Resolver().Neighbors(a.Cell())
	var hunting []core.Cell
	for _, c := range neighbors {
		if occupied(w.Grid(), c, Sheep) {
			hunting = append(hunting, c)
		}
	}
	if len(hunting) == 0 {
		hunting = neighbors
	}
	if c, ok := core.Pick(w.RNG(), hunting); ok {
		if err := w.Move(a, c); err != nil {
			return err
		}
	}
	a.Attrs.Add(AttrEnergy, -1)
	var prey []*core.Agent
	for _, o := range w.Grid().Occupants(a.Cell()) {
		if o.Species() == Sheep {
			prey = append(prey, o)
		}
	}
	if victim, ok := core.Pick(w.RNG(), prey); ok {
		if err := w.Remove(victim); err != nil {
			return err
		}
		a.Attrs.Add(AttrEnergy, m.cfg.WolfGain)
	}
	return m.live(w, a, m.cfg.WolfReproduce)
}

// live applies the end-of-activation outcome shared by both species: an
// animal with negative energy dies, otherwise it may split its energy with an
// offspring on its own cell.
func (m *Model) live(w *core.World, a *core.Agent, reproduce float64) error {
	if a.Attrs.Get(AttrEnergy) < 0 {
		return w.Remove(a)
	}
	if w.RNG().Float64() < reproduce {
		a.Attrs.Set(AttrEnergy, a.Attrs.Get(AttrEnergy)/2)
		if _, err := w.Reproduce(a, a.Cell()); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) reporters() []core.Reporter {
	return []core.Reporter{
		{Name: "sheep", Fn: func(w *core.World) float64 { return float64(w.Registry().CountSpecies(Sheep)) }},
		{Name: "wolves", Fn: func(w *core.World) float64 { return float64(w.Registry().CountSpecies(Wolf)) }},
		{Name: "grass", Fn: func(*core.World) float64 {
			if m.pasture == nil {
				return 0
			}
			return float64(m.pasture.Count())
		}},
	}
}

func (m *Model) Name() string                       { return "wolfsheep" }
func (m *Model) Sim() *core.Simulation              { return m.sim }
func (m *Model) Parameters() core.ParameterSnapshot { return m.params }
func (m *Model) Config() Config                     { return m.cfg }

// Pasture returns the grass layer, or nil when grass is disabled.
func (m *Model) Pasture() *Pasture { return m.pasture }

// Cells marks wolves over sheep over grown grass.
func (m *Model) Cells() []uint8 {
	g := m.sim.Grid()
	out := make([]uint8, g.Len())
	for i := range out {
		c := g.CellAt(i)
		switch {
		case occupied(g, c, Wolf):
			out[i] = CellWolf
		case occupied(g, c, Sheep):
			out[i] = CellSheep
		case m.pasture != nil && m.pasture.Grown(c):
			out[i] = CellGrass
		}
	}
	return out
}

func occupied(g *core.Grid, c core.Cell, s core.Species) bool {
	for _, o := range g.Occupants(c) {
		if o.Species() == s {
			return true
		}
	}
	return false
}

func init() {
	core.Register("wolfsheep", func(raw map[string]string, opts core.Options) (core.Model, error) {
		cfg, snap, err := FromMap(raw)
		if err != nil {
			return nil, err
		}
		m, err := New(cfg, opts)
		if err != nil {
			return nil, err
		}
		m.params = snap
		return m, nil
	})
}
