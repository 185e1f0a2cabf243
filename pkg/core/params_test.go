package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParamsTypedReads(t *testing.T) {
	p := NewParams(map[string]string{"width": "40", "density": "0.7", "wrap": "true", "shape": "Moore"})
	p.Group("grid", "lattice")
	if w := p.Int("width", 10, ""); w != 40 {
		t.Fatalf("width = %d", w)
	}
	if h := p.Int("height", 12, ""); h != 12 {
		t.Fatalf("height default = %d", h)
	}
	if d := p.Float("density", 0.5, ""); d != 0.7 {
		t.Fatalf("density = %g", d)
	}
	if !p.Bool("wrap", false, "") {
		t.Fatal("wrap should be true")
	}
	if s := p.String("shape", "orthogonal", "", "orthogonal", "moore", "extended"); s != "moore" {
		t.Fatalf("shape = %q", s)
	}
	if err := p.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	vals := p.Snapshot().Values()
	if vals["height"] != "12" || vals["density"] != "0.7" || vals["shape"] != "moore" {
		t.Fatalf("snapshot values = %v", vals)
	}
	if g := p.Snapshot().Groups; len(g) != 1 || g[0].Name != "grid" || len(g[0].Params) != 5 {
		t.Fatalf("groups = %+v", g)
	}
}

func TestParamsCollectsEveryError(t *testing.T) {
	p := NewParams(map[string]string{"width": "wide", "mode": "zigzag", "typo": "1"})
	p.Int("width", 10, "")
	p.String("mode", "a", "", "a", "b")
	density := p.Float("density", 2, "")
	p.Check(density <= 1, "density", "must be <= 1, got %g", density)
	err := p.Err()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
	for _, want := range []string{"width", "mode", "density", `unknown parameter "typo"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestFixedStepPacing(t *testing.T) {
	now := time.Unix(0, 0)
	fs := NewFixedStep(10)
	fs.now = func() time.Time { return now }
	if !fs.ShouldStep() {
		t.Fatal("first tick should fire")
	}
	if fs.ShouldStep() {
		t.Fatal("no time passed, should not step")
	}
	now = now.Add(50 * time.Millisecond)
	if fs.ShouldStep() {
		t.Fatal("half a tick should not step")
	}
	now = now.Add(60 * time.Millisecond)
	if !fs.ShouldStep() {
		t.Fatal("a full tick should step")
	}
	now = now.Add(time.Second)
	if !fs.ShouldStep() || !fs.ShouldStep() || fs.ShouldStep() {
		t.Fatal("a long stall should allow at most one catch-up tick")
	}
	if fs.Interval() != 100*time.Millisecond {
		t.Fatalf("interval = %v", fs.Interval())
	}
}

type stubModel struct{ name string }

func (m stubModel) Name() string                  { return m.name }
func (m stubModel) Sim() *Simulation              { return nil }
func (m stubModel) Parameters() ParameterSnapshot { return ParameterSnapshot{} }
func (m stubModel) Cells() []uint8                { return nil }

func TestModelRegistry(t *testing.T) {
	Register("stub-test", func(params map[string]string, _ Options) (Model, error) {
		if params["fail"] != "" {
			return nil, errors.New("refused")
		}
		return stubModel{name: "stub-test"}, nil
	})
	m, err := Build("stub-test", nil, Options{})
	if err != nil || m.Name() != "stub-test" {
		t.Fatalf("Build = %v, %v", m, err)
	}
	if _, err := Build("stub-test", map[string]string{"fail": "1"}, Options{}); err == nil {
		t.Fatal("factory error not propagated")
	}
	if _, err := Build("no-such-model", nil, Options{}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("unknown model err = %v", err)
	}
	found := false
	for _, name := range Models() {
		found = found || name == "stub-test"
	}
	if !found {
		t.Fatal("registered model not listed")
	}
}
