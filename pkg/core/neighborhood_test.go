package core

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestOffsetCounts(t *testing.T) {
	cases := []struct {
		spec NeighborhoodSpec
		want int
	}{
		{NeighborhoodSpec{Orthogonal, 1}, 4},
		{NeighborhoodSpec{Orthogonal, 2}, 12},
		{NeighborhoodSpec{Moore, 1}, 8},
		{NeighborhoodSpec{Moore, 2}, 24},
		{NeighborhoodSpec{Extended, 1}, 24},
		{NeighborhoodSpec{Extended, 2}, 24},
		{NeighborhoodSpec{Extended, 3}, 48},
	}
	for _, tc := range cases {
		if got := len(tc.spec.Offsets()); got != tc.want {
			t.Errorf("%v r=%d: %d offsets, want %d", tc.spec.Shape, tc.spec.Radius, got, tc.want)
		}
	}
}

func TestNeighborhoodSpecValidate(t *testing.T) {
	for _, spec := range []NeighborhoodSpec{{Moore, 0}, {Orthogonal, -1}, {Shape(9), 1}} {
		if err := spec.Validate(); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("%+v: err = %v", spec, err)
		}
	}
	if _, err := ParseShape("hexagonal"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("ParseShape err = %v", err)
	}
}

func TestBoundedTwoByTwoOrthogonal(t *testing.T) {
	g, _ := newTestGrid(t, 2, 2, Bounded, 1)
	r, err := NewResolver(g, NeighborhoodSpec{Orthogonal, 1})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < g.Len(); i++ {
		c := g.CellAt(i)
		if n := r.Neighbors(c); len(n) != 2 {
			t.Fatalf("cell %v has %d neighbors (%v), want 2", c, len(n), n)
		}
	}
}

func TestTorusMooreCorners(t *testing.T) {
	g, _ := newTestGrid(t, 20, 20, Toroidal, 1)
	r, err := NewResolver(g, NeighborhoodSpec{Moore, 1})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < g.Len(); i++ {
		c := g.CellAt(i)
		if n := r.Neighbors(c); len(n) != 8 {
			t.Fatalf("cell %v has %d neighbors, want 8", c, len(n))
		}
	}
	want := []Cell{{19, 19}, {0, 19}, {1, 19}, {19, 0}, {1, 0}, {19, 1}, {0, 1}, {1, 1}}
	if got := r.Neighbors(Cell{0, 0}); !slices.Equal(got, want) {
		t.Fatalf("corner neighbors = %v, want %v", got, want)
	}
}

func TestToroidalFoldingReportsEachCellOnce(t *testing.T) {
	g, _ := newTestGrid(t, 3, 2, Toroidal, 1)
	r, err := NewResolver(g, NeighborhoodSpec{Moore, 2})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < g.Len(); i++ {
		c := g.CellAt(i)
		n := r.Neighbors(c)
		if len(n) != g.Len()-1 {
			t.Fatalf("cell %v: %d neighbors, want %d", c, len(n), g.Len()-1)
		}
		if slices.Contains(n, c) {
			t.Fatalf("cell %v lists itself as a neighbor", c)
		}
	}

	one, _ := newTestGrid(t, 1, 1, Toroidal, 1)
	r1, _ := NewResolver(one, NeighborhoodSpec{Moore, 1})
	if n := r1.Neighbors(Cell{}); len(n) != 0 {
		t.Fatalf("1x1 torus neighbors = %v", n)
	}
}

// populate fills a grid with agents whose "color" attribute spans three classes.
func populate(t *testing.T, g *Grid, reg *Registry, seed int64, density float64) {
	t.Helper()
	rng := NewRNG(seed)
	for i := 0; i < g.Len(); i++ {
		for rng.Float64() < density {
			if _, err := reg.Spawn("a", Attributes{"color": float64(rng.IntN(3))}, g.CellAt(i)); err != nil {
				break
			}
		}
	}
}

func TestStrategyEquivalence(t *testing.T) {
	sizes := [][2]int{{1, 1}, {2, 2}, {3, 3}, {4, 5}, {5, 4}, {7, 6}, {10, 10}, {1, 7}}
	cls := ByAttribute("color", 3)
	for _, size := range sizes {
		for _, boundary := range []Boundary{Bounded, Toroidal} {
			for _, shape := range []Shape{Orthogonal, Moore, Extended} {
				for _, radius := range []int{1, 2} {
					name := fmt.Sprintf("%dx%d/%v/%v/r%d", size[0], size[1], boundary, shape, radius)
					t.Run(name, func(t *testing.T) {
						g, reg := newTestGrid(t, size[0], size[1], boundary, Unlimited)
						populate(t, g, reg, int64(size[0]*31+size[1]), 0.6)
						r, err := NewResolver(g, NeighborhoodSpec{shape, radius})
						if err != nil {
							t.Fatal(err)
						}
						checkEquivalent(t, g, r, cls)
					})
				}
			}
		}
	}
}

func checkEquivalent(t *testing.T, g *Grid, r *Resolver, cls Classifier) {
	t.Helper()
	agg := r.Aggregate(cls)
	direct := r.Survey(cls, StrategyDirect)
	for i := 0; i < g.Len(); i++ {
		c := g.CellAt(i)
		want := r.Count(c, cls)
		if got := agg.At(c); !slices.Equal(got, want) {
			t.Fatalf("cell %v: aggregate %v, direct %v", c, got, want)
		}
		if got := direct.At(c); !slices.Equal(got, want) {
			t.Fatalf("cell %v: direct survey %v, direct count %v", c, got, want)
		}

		// The aggregate footprint of a single-cell indicator is the set of
		// cells that count c as a neighbor.
		layer := make([]int, g.Len())
		layer[i] = 1
		footprint := r.Accumulate(layer)
		var fromAgg []Cell
		for j, v := range footprint {
			if v > 1 {
				t.Fatalf("cell %v counted %d times by %v", c, v, g.CellAt(j))
			}
			if v == 1 {
				fromAgg = append(fromAgg, g.CellAt(j))
			}
		}
		fromDirect := r.Neighbors(c)
		slices.SortFunc(fromDirect, func(a, b Cell) int { return g.Index(a) - g.Index(b) })
		if !slices.Equal(fromAgg, fromDirect) {
			t.Fatalf("cell %v: aggregate set %v, direct set %v", c, fromAgg, fromDirect)
		}
	}
	if err := r.Verify(cls); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestSurveyAutoMatchesDirect(t *testing.T) {
	g, reg := newTestGrid(t, 12, 9, Toroidal, 1)
	populate(t, g, reg, 5, 0.8)
	r, _ := NewResolver(g, NeighborhoodSpec{Moore, 1})
	cls := ByAttribute("color", 3)
	auto := r.Survey(cls, StrategyAuto)
	for i := 0; i < g.Len(); i++ {
		c := g.CellAt(i)
		if !slices.Equal(auto.At(c), r.Count(c, cls)) {
			t.Fatalf("auto survey mismatch at %v", c)
		}
		total := 0
		for _, v := range r.Count(c, cls) {
			total += v
		}
		if auto.Total(c) != total {
			t.Fatalf("Total(%v) = %d, want %d", c, auto.Total(c), total)
		}
	}
}

func TestClassifiers(t *testing.T) {
	g, reg := newTestGrid(t, 3, 1, Bounded, 1)
	reg.Spawn("sheep", nil, Cell{0, 0})
	reg.Spawn("wolf", nil, Cell{2, 0})
	r, _ := NewResolver(g, NeighborhoodSpec{Moore, 2})
	counts := r.Count(Cell{1, 0}, BySpecies("wolf", "sheep"))
	if !slices.Equal(counts, []int{1, 1}) {
		t.Fatalf("species counts = %v", counts)
	}
	if n := r.Count(Cell{0, 0}, Everyone()); n[0] != 1 {
		t.Fatalf("everyone count around (0,0) = %v", n)
	}
	if occ := r.Occupants(Cell{1, 0}); len(occ) != 2 {
		t.Fatalf("neighbor occupants = %v", occ)
	}
}

func TestVerifyComparesNeighborSets(t *testing.T) {
	g, _ := newTestGrid(t, 6, 6, Toroidal, 1)
	r, err := NewResolver(g, NeighborhoodSpec{Moore, 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Verify(Everyone()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	// Same neighbor count everywhere and no agents to count, but the direct
	// sets no longer match the box kernel.
	r.offsets = slices.Clone(r.offsets)
	r.offsets[0] = Cell{X: 0, Y: -2}
	if err := r.Verify(Everyone()); !errors.Is(err, ErrConsistency) {
		t.Fatalf("Verify err = %v, want ErrConsistency", err)
	}
}
