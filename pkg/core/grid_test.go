package core

import (
	"errors"
	"testing"
)

func newTestGrid(t *testing.T, w, h int, b Boundary, capacity int) (*Grid, *Registry) {
	t.Helper()
	g, err := NewGrid(w, h, b, capacity)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g, NewRegistry(g)
}

func TestGridRejectsBadDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 5}, {5, 0}, {-1, 3}} {
		if _, err := NewGrid(dims[0], dims[1], Bounded, 1); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("NewGrid(%v) err = %v, want ErrConfiguration", dims, err)
		}
	}
	if _, err := NewGrid(3, 3, Bounded, -1); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("negative capacity err = %v", err)
	}
}

func TestGridPlaceCapacity(t *testing.T) {
	g, reg := newTestGrid(t, 3, 3, Bounded, 1)
	a, err := reg.Spawn("a", nil, Cell{1, 1})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if _, err := reg.Spawn("b", nil, Cell{1, 1}); !errors.Is(err, ErrCapacity) {
		t.Fatalf("second spawn err = %v, want ErrCapacity", err)
	}
	if reg.Len() != 1 || g.Population() != 1 {
		t.Fatalf("failed spawn left state behind: registry=%d grid=%d", reg.Len(), g.Population())
	}
	if a.Cell() != (Cell{1, 1}) || g.Count(Cell{1, 1}) != 1 {
		t.Fatalf("agent cell %v, occupancy %d", a.Cell(), g.Count(Cell{1, 1}))
	}
	if g.FreeCells() != 8 {
		t.Fatalf("free cells = %d, want 8", g.FreeCells())
	}
}

func TestGridMoveFullTargetLeavesState(t *testing.T) {
	g, reg := newTestGrid(t, 2, 1, Bounded, 1)
	a, _ := reg.Spawn("a", nil, Cell{0, 0})
	b, _ := reg.Spawn("a", nil, Cell{1, 0})
	if err := g.move(a, Cell{1, 0}); !errors.Is(err, ErrCapacity) {
		t.Fatalf("move err = %v, want ErrCapacity", err)
	}
	if a.Cell() != (Cell{0, 0}) || b.Cell() != (Cell{1, 0}) {
		t.Fatalf("rejected move changed cells: a=%v b=%v", a.Cell(), b.Cell())
	}
	if occ := g.Occupants(Cell{0, 0}); len(occ) != 1 || occ[0] != a {
		t.Fatalf("occupants of (0,0) = %v", occ)
	}
	if _, err := g.RandomEmptyCell(NewRNG(1)); !errors.Is(err, ErrNoCapacity) {
		t.Fatalf("RandomEmptyCell on full grid err = %v", err)
	}
}

func TestGridMoveAndRemove(t *testing.T) {
	g, reg := newTestGrid(t, 4, 4, Toroidal, 2)
	a, _ := reg.Spawn("a", nil, Cell{0, 0})
	b, _ := reg.Spawn("a", nil, Cell{0, 0})
	if !g.IsFull(Cell{0, 0}) {
		t.Fatal("cell with two agents at capacity 2 should be full")
	}
	if err := g.move(a, Cell{3, 3}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if g.IsFull(Cell{0, 0}) || g.Count(Cell{3, 3}) != 1 {
		t.Fatal("occupancy not updated after move")
	}
	if occ := g.Occupants(Cell{0, 0}); len(occ) != 1 || occ[0] != b {
		t.Fatalf("remaining occupant = %v", occ)
	}
	if err := reg.Kill(b); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if err := g.remove(b); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second remove err = %v, want ErrInvalidState", err)
	}
	if err := g.move(b, Cell{1, 1}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("move of removed agent err = %v", err)
	}
	if err := reg.Kill(b); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double kill err = %v", err)
	}
	if g.Population() != 1 || reg.Len() != 1 {
		t.Fatalf("population grid=%d registry=%d", g.Population(), reg.Len())
	}
}

func TestGridDirectAddressing(t *testing.T) {
	g, _ := newTestGrid(t, 5, 4, Bounded, 1)
	if _, err := g.Cell(5, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("bounded Cell(5,0) err = %v", err)
	}
	if _, err := g.Cell(-1, 2); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("bounded Cell(-1,2) err = %v", err)
	}
	if _, ok := g.Resolve(-1, 0); ok {
		t.Fatal("bounded Resolve should exclude (-1,0)")
	}

	tor, _ := newTestGrid(t, 5, 4, Toroidal, 1)
	c, err := tor.Cell(-1, 9)
	if err != nil || c != (Cell{4, 1}) {
		t.Fatalf("toroidal Cell(-1,9) = %v, %v", c, err)
	}
}

func TestRandomEmptyCellUniformSupport(t *testing.T) {
	g, reg := newTestGrid(t, 3, 1, Bounded, 1)
	if _, err := reg.Spawn("a", nil, Cell{1, 0}); err != nil {
		t.Fatal(err)
	}
	rng := NewRNG(9)
	seen := map[Cell]int{}
	for i := 0; i < 200; i++ {
		c, err := g.RandomEmptyCell(rng)
		if err != nil {
			t.Fatal(err)
		}
		seen[c]++
	}
	if seen[Cell{1, 0}] != 0 || seen[Cell{0, 0}] == 0 || seen[Cell{2, 0}] == 0 {
		t.Fatalf("unexpected draws %v", seen)
	}
}

func TestUnlimitedCapacityNeverFills(t *testing.T) {
	g, reg := newTestGrid(t, 1, 1, Toroidal, Unlimited)
	for i := 0; i < 10; i++ {
		if _, err := reg.Spawn("a", Attributes{"wealth": 1}, Cell{0, 0}); err != nil {
			t.Fatalf("spawn %d: %v", i, err)
		}
	}
	if g.IsFull(Cell{0, 0}) || g.FreeCells() != 1 || g.Count(Cell{0, 0}) != 10 {
		t.Fatalf("unlimited cell: full=%v free=%d count=%d", g.IsFull(Cell{0, 0}), g.FreeCells(), g.Count(Cell{0, 0}))
	}
}
