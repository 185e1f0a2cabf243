package wealth

import (
	"context"
	"slices"
	"testing"

	"gridabm/pkg/core"
)

func TestWealthIsConserved(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agents = 10
	cfg.Steps = 200
	m, err := New(cfg, core.Options{AfterStep: func(w *core.World) error {
		if got := Total(w.Registry()); got != 10 {
			t.Fatalf("step %d: total wealth %g, want 10", w.Step(), got)
		}
		return nil
	}})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Sim().Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i, v := range m.Sim().Metrics().Series("total_wealth") {
		if v != 10 {
			t.Fatalf("record %d total_wealth = %g", i, v)
		}
	}
	for _, a := range m.Sim().Registry().Live() {
		if a.Attrs.Get(AttrWealth) < 0 {
			t.Fatalf("agent %v went negative", a)
		}
	}
}

func TestInequalityGrows(t *testing.T) {
	m, err := New(DefaultConfig(), core.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Sim().Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	gini := m.Sim().Metrics().Series("gini")
	if len(gini) != 101 {
		t.Fatalf("gini series length %d, want 101", len(gini))
	}
	if gini[0] != 0 {
		t.Fatalf("initial gini = %g, want 0 for equal wealth", gini[0])
	}
	if !(gini[len(gini)-1] > 0.2) {
		t.Fatalf("final gini = %g, expected inequality to emerge", gini[len(gini)-1])
	}
}

func TestDeterministic(t *testing.T) {
	series := func() []float64 {
		m, err := core.Build("wealth", map[string]string{"agents": "50", "steps": "40", "seed": "3"}, core.Options{})
		if err != nil {
			t.Fatal(err)
		}
		if err := m.Sim().Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		return m.Sim().Metrics().Series("gini")
	}
	if a, b := series(), series(); !slices.Equal(a, b) {
		t.Fatalf("gini series differ:\n%v\n%v", a, b)
	}
}

func TestCellsCountsAgents(t *testing.T) {
	m, err := New(DefaultConfig(), core.Options{})
	if err != nil {
		t.Fatal(err)
	}
	sum := 0
	for _, v := range m.Cells() {
		sum += int(v)
	}
	if sum != 100 {
		t.Fatalf("cells account for %d agents, want 100", sum)
	}
}
