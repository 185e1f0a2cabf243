// Package wealth implements the random wealth-exchange ("money") model: agents
// wander the grid and hand one unit of wealth to a random cellmate.
package wealth

import (
	"gridabm/internal/measure"
	"gridabm/pkg/core"
)

// Trader is the model's only species.
const Trader core.Species = "trader"

// AttrWealth is the attribute holding an agent's wealth.
const AttrWealth = "wealth"

// Model is a configured wealth-exchange run.
type Model struct {
	cfg    Config
	params core.ParameterSnapshot
	sim    *core.Simulation
}

// New builds the model. Agents share cells freely.
func New(cfg Config, opts core.Options) (*Model, error) {
	m := &Model{cfg: cfg}
	sim, err := core.New(core.Config{
		Width:        cfg.Width,
		Height:       cfg.Height,
		Boundary:     cfg.Boundary,
		Capacity:     core.Unlimited,
		Neighborhood: core.NeighborhoodSpec{Shape: core.Moore, Radius: 1},
		Seed:         cfg.Seed,
		Species:      []core.SpeciesSpec{{Name: Trader, Behavior: trade}},
		Population: core.Population{Groups: []core.Group{{
			Species: Trader,
			Count:   cfg.Agents,
			Attrs: func(*core.RNG) core.Attributes {
				return core.Attributes{AttrWealth: float64(cfg.InitialWealth)}
			},
		}}},
		Until: core.UntilStep(cfg.Steps),
		Reporters: []core.Reporter{
			{Name: "gini", Fn: func(w *core.World) float64 { return measure.Gini(wealths(w)) }},
			{Name: "total_wealth", Fn: func(w *core.World) float64 { return Total(w.Registry()) }},
		},
		AgentEvery:  cfg.AgentEvery,
		AgentAttrs:  []string{AttrWealth},
		VerifyEvery: cfg.VerifyEvery,
	}, opts)
	if err != nil {
		return nil, err
	}
	m.sim = sim
	return m, nil
}

// trade moves the agent to a random neighbor cell, then gives one unit to a
// random cellmate if it has any wealth left.
func trade(w *core.World, a *core.Agent) error {
	if c, ok := core.Pick(w.RNG(), w.Resolver().Neighbors(a.Cell())); ok {
		if err := w.Move(a, c); err != nil {
			return err
		}
	}
	if a.Attrs.Get(AttrWealth) <= 0 {
		return nil
	}
	var mates []*core.Agent
	for _, other := range w.Grid().Occupants(a.Cell()) {
		if other != a {
			mates = append(mates, other)
		}
	}
	other, ok := core.Pick(w.RNG(), mates)
	if !ok {
		return nil
	}
	other.Attrs.Add(AttrWealth, 1)
	a.Attrs.Add(AttrWealth, -1)
	w.MarkChanged()
	return nil
}

func wealths(w *core.World) []float64 {
	live := w.Registry().Live()
	out := make([]float64, len(live))
	for i, a := range live {
		out[i] = a.Attrs.Get(AttrWealth)
	}
	return out
}

// Total sums the wealth of every live agent.
func Total(reg *core.Registry) float64 {
	sum := 0.0
	for _, a := range reg.Live() {
		sum += a.Attrs.Get(AttrWealth)
	}
	return sum
}

func (m *Model) Name() string                       { return "wealth" }
func (m *Model) Sim() *core.Simulation              { return m.sim }
func (m *Model) Parameters() core.ParameterSnapshot { return m.params }

// Cells renders the number of agents per cell, capped at 255.
func (m *Model) Cells() []uint8 {
	g := m.sim.Grid()
	out := make([]uint8, g.Len())
	for i := range out {
		out[i] = uint8(min(g.Count(g.CellAt(i)), 255))
	}
	return out
}

func init() {
	core.Register("wealth", func(raw map[string]string, opts core.Options) (core.Model, error) {
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
