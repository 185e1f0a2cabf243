// Package schelling implements the Schelling segregation model on the kernel:
// unsatisfied agents relocate to a random empty cell until nobody moves.
package schelling

import (
	"errors"

	"gridabm/internal/measure"
	"gridabm/pkg/core"
)

// Resident is the single species of the model; the "color" attribute carries
// the group (0 majority, 1 minority).
const Resident core.Species = "resident"

// Agent attribute keys.
const (
	AttrColor       = "color"
	AttrAlwaysHappy = "always_happy"
	AttrSimilar     = "similar"
	AttrTotal       = "total"
	AttrUtility     = "utility"
	AttrHappy       = "happy"
)

var colors = core.ByAttribute(AttrColor, 2)

// Model is a configured segregation run.
type Model struct {
	cfg    Config
	params core.ParameterSnapshot
	sim    *core.Simulation
}

// New builds the model and surveys the initial population.
func New(cfg Config, opts core.Options) (*Model, error) {
	m := &Model{cfg: cfg}
	isolated := cfg.Isolated
	until := core.UntilQuiescent()
	if cfg.MaxSteps > 0 {
		until = core.AnyOf(until, core.UntilStep(cfg.MaxSteps))
	}
	opts.AfterStep = chain(opts.AfterStep, func(w *core.World) error {
		m.survey(w)
		return nil
	})
	sim, err := core.New(core.Config{
		Width:        cfg.Width,
		Height:       cfg.Height,
		Boundary:     cfg.Boundary,
		Capacity:     1,
		Neighborhood: core.NeighborhoodSpec{Shape: cfg.Shape, Radius: cfg.Radius},
		Utility:      &core.UtilitySpec{Kind: cfg.Utility, Params: cfg.UtilityParams, Isolated: &isolated},
		Seed:         cfg.Seed,
		Species:      []core.SpeciesSpec{{Name: Resident, Behavior: m.relocate}},
		Population: core.Population{
			Density: cfg.Density,
			Groups: []core.Group{
				{Species: Resident, Weight: 1 - cfg.Minority, Attrs: m.resident(0)},
				{Species: Resident, Weight: cfg.Minority, Attrs: m.resident(1)},
			},
		},
		Until:            until,
		Reporters:        m.reporters(),
		AgentEvery:       cfg.AgentEvery,
		AgentAttrs:       []string{AttrColor, AttrSimilar, AttrTotal, AttrUtility, AttrHappy},
		VerifyEvery:      cfg.VerifyEvery,
		VerifyClassifier: &colors,
	}, opts)
	if err != nil {
		return nil, err
	}
	m.sim = sim
	m.survey(sim.World())
	return m, nil
}

func chain(hooks ...func(*core.World) error) func(*core.World) error {
	return func(w *core.World) error {
		for _, h := range hooks {
			if h == nil {
				continue
			}
			if err := h(w); err != nil {
				return err
			}
		}
		return nil
	}
}

func (m *Model) resident(color float64) func(*core.RNG) core.Attributes {
	return func(rng *core.RNG) core.Attributes {
		attrs := core.Attributes{AttrColor: color}
		if m.cfg.AlwaysHappy > 0 && rng.Float64() < m.cfg.AlwaysHappy {
			attrs.Set(AttrAlwaysHappy, 1)
		}
		return attrs
	}
}

// relocate is the per-agent behavior: score the current neighborhood and move
// to a random empty cell when the score is below the acceptance level.
func (m *Model) relocate(w *core.World, a *core.Agent) error {
	if a.Attrs.Get(AttrAlwaysHappy) == 1 {
		return nil
	}
	counts := w.Resolver().Count(a.Cell(), colors)
	color := int(a.Attrs.Get(AttrColor))
	if m.record(w, a, counts[color], counts[0]+counts[1]) {
		return nil
	}
	c, err := w.RandomEmptyCell()
	if errors.Is(err, core.ErrNoCapacity) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := w.Move(a, c); err != nil && !core.Recoverable(err) {
		return err
	}
	return nil
}

// record stores the neighborhood composition on the agent and reports whether
// it is satisfied.
func (m *Model) record(w *core.World, a *core.Agent, similar, total int) bool {
	u := w.Evaluator().Score(similar, total)
	happy := a.Attrs.Get(AttrAlwaysHappy) == 1 || u >= m.cfg.Accept
	a.Attrs.Set(AttrSimilar, float64(similar))
	a.Attrs.Set(AttrTotal, float64(total))
	a.Attrs.Set(AttrUtility, u)
	a.Attrs.Set(AttrHappy, b2f(happy))
	return happy
}

// survey recomputes every agent's composition after the activation pass, in
// one batched full-grid computation once the grid is dense enough.
func (m *Model) survey(w *core.World) {
	field := w.Resolver().Survey(colors, core.StrategyAuto)
	for _, a := range w.Registry().Live() {
		c := a.Cell()
		m.record(w, a, field.Count(c, int(a.Attrs.Get(AttrColor))), field.Total(c))
	}
}

func (m *Model) reporters() []core.Reporter {
	return []core.Reporter{
		{Name: "happy", Fn: func(w *core.World) float64 {
			return float64(countAttr(w, AttrHappy))
		}},
		{Name: "pct_happy", Fn: func(w *core.World) float64 {
			return share(countAttr(w, AttrHappy), w.Registry().Len())
		}},
		{Name: "minority_pct", Fn: func(w *core.World) float64 {
			return share(countAttr(w, AttrColor), w.Registry().Len())
		}},
		{Name: "similarity", Fn: func(w *core.World) float64 {
			var fractions []float64
			for _, a := range w.Registry().Live() {
				if total := a.Attrs.Get(AttrTotal); total > 0 {
					fractions = append(fractions, a.Attrs.Get(AttrSimilar)/total)
				}
			}
			return measure.Mean(fractions)
		}},
		{Name: "morans_i", Fn: func(w *core.World) float64 {
			g := w.Grid()
			return measure.MoransI(g, w.Resolver(), func(c core.Cell) (float64, bool) {
				occ := g.Occupants(c)
				if len(occ) == 0 {
					return 0, false
				}
				return 2*occ[0].Attrs.Get(AttrColor) - 1, true
			})
		}},
	}
}

func countAttr(w *core.World, key string) int {
	n := 0
	for _, a := range w.Registry().Live() {
		if a.Attrs.Get(key) == 1 {
			n++
		}
	}
	return n
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (m *Model) Name() string                       { return "schelling" }
func (m *Model) Sim() *core.Simulation              { return m.sim }
func (m *Model) Parameters() core.ParameterSnapshot { return m.params }
func (m *Model) Config() Config                     { return m.cfg }

// Cells renders empty cells as 0 and residents as 1 + color, with unhappy
// residents offset by 2.
func (m *Model) Cells() []uint8 {
	g := m.sim.Grid()
	out := make([]uint8, g.Len())
	for _, a := range m.sim.Registry().Live() {
		v := 1 + uint8(a.Attrs.Get(AttrColor))
		if a.Attrs.Get(AttrHappy) != 1 {
			v += 2
		}
		out[g.Index(a.Cell())] = v
	}
	return out
}

func init() {
	core.Register("schelling", func(raw map[string]string, opts core.Options) (core.Model, error) {
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
