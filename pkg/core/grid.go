package core

import (
	"fmt"
	"slices"
	"strings"
)

// Cell is an integer coordinate on a Grid.
type Cell struct {
	X, Y int
}

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Boundary selects how coordinates beyond the grid edges are treated.
type Boundary uint8

const (
	// Bounded grids have hard edges: neighbor offsets leaving the grid are
	// dropped and direct addressing outside it fails.
	Bounded Boundary = iota
	// Toroidal grids wrap opposite edges.
	Toroidal
)

func (b Boundary) String() string {
	switch b {
	case Bounded:
		return "bounded"
	case Toroidal:
		return "toroidal"
	default:
		return fmt.Sprintf("boundary(%d)", uint8(b))
	}
}

// ParseBoundary accepts "bounded" (or "fill") and "toroidal" (or "torus", "wrap").
func ParseBoundary(s string) (Boundary, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bounded", "fill":
		return Bounded, nil
	case "toroidal", "torus", "wrap":
		return Toroidal, nil
	default:
		return 0, configError("unknown boundary %q", s)
	}
}

// Unlimited disables the per-cell occupancy limit.
const Unlimited = 0

// OccupancyObserver is notified after every successful grid mutation.
type OccupancyObserver interface {
	Placed(a *Agent, c Cell)
	Moved(a *Agent, from, to Cell)
	Removed(a *Agent, c Cell)
}

// Grid owns the cell to agent occupancy of a fixed width×height lattice. It is
// the only writer of an agent's cell binding; its mutations are reached through
// Registry and World only, so a placed agent is always registered.
type Grid struct {
	w, h     int
	boundary Boundary
	capacity int

	cells [][]*Agent
	// free holds the indices of cells with spare capacity; freePos maps a
	// cell index to its position in free, or -1.
	free    []int
	freePos []int
	agents  int

	observers []OccupancyObserver
}

// NewGrid allocates an empty grid. capacity is the per-cell limit, or Unlimited.
func NewGrid(w, h int, boundary Boundary, capacity int) (*Grid, error) {
	if w <= 0 || h <= 0 {
		return nil, configError("grid dimensions must be positive, got %dx%d", w, h)
	}
	if boundary != Bounded && boundary != Toroidal {
		return nil, configError("unknown boundary %d", boundary)
	}
	if capacity < 0 {
		return nil, configError("capacity must be >= 1 or Unlimited, got %d", capacity)
	}
	n := w * h
	g := &Grid{
		w:        w,
		h:        h,
		boundary: boundary,
		capacity: capacity,
		cells:    make([][]*Agent, n),
		free:     make([]int, n),
		freePos:  make([]int, n),
	}
	for i := range n {
		g.free[i] = i
		g.freePos[i] = i
	}
	return g, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.w }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.h }

// Boundary returns the edge policy.
func (g *Grid) Boundary() Boundary { return g.boundary }

// Capacity returns the per-cell agent limit, or Unlimited.
func (g *Grid) Capacity() int { return g.capacity }

// Len returns the number of cells.
func (g *Grid) Len() int { return g.w * g.h }

// Population returns the number of placed agents.
func (g *Grid) Population() int { return g.agents }

// Index returns the row-major index of c. c must be inside the grid.
func (g *Grid) Index(c Cell) int { return c.Y*g.w + c.X }

// CellAt is the inverse of Index.
func (g *Grid) CellAt(i int) Cell { return Cell{X: i % g.w, Y: i / g.w} }

// Contains reports whether c lies inside [0,W)×[0,H).
func (g *Grid) Contains(c Cell) bool {
	return c.X >= 0 && c.X < g.w && c.Y >= 0 && c.Y < g.h
}

// Wrap applies toroidal wrapping to the provided coordinates.
func (g *Grid) Wrap(x, y int) (int, int) {
	x = (x%g.w + g.w) % g.w
	y = (y%g.h + g.h) % g.h
	return x, y
}

// Cell addresses a cell directly. Toroidal grids wrap any coordinate; bounded
// grids reject coordinates outside the lattice with ErrOutOfBounds.
func (g *Grid) Cell(x, y int) (Cell, error) {
	if g.boundary == Toroidal {
		x, y = g.Wrap(x, y)
		return Cell{X: x, Y: y}, nil
	}
	c := Cell{X: x, Y: y}
	if !g.Contains(c) {
		return Cell{}, fmt.Errorf("%w: %v on %dx%d grid", ErrOutOfBounds, c, g.w, g.h)
	}
	return c, nil
}

// Resolve maps a neighbor coordinate onto the grid. ok is false when a
// bounded grid excludes it.
func (g *Grid) Resolve(x, y int) (Cell, bool) {
	if g.boundary == Toroidal {
		x, y = g.Wrap(x, y)
		return Cell{X: x, Y: y}, true
	}
	c := Cell{X: x, Y: y}
	return c, g.Contains(c)
}

// Occupants returns a copy of the agents bound to c.
func (g *Grid) Occupants(c Cell) []*Agent {
	if !g.Contains(c) {
		return nil
	}
	return slices.Clone(g.cells[g.Index(c)])
}

// Count returns the number of agents bound to c.
func (g *Grid) Count(c Cell) int {
	if !g.Contains(c) {
		return 0
	}
	return len(g.cells[g.Index(c)])
}

// IsFull reports whether c has no spare capacity. Unlimited cells never fill;
// cells outside the grid are always full.
func (g *Grid) IsFull(c Cell) bool {
	if !g.Contains(c) {
		return true
	}
	return g.fullAt(g.Index(c))
}

// FreeCells returns the number of cells with spare capacity.
func (g *Grid) FreeCells() int { return len(g.free) }

// Observe registers o for mutation notifications.
func (g *Grid) Observe(o OccupancyObserver) {
	if o != nil {
		g.observers = append(g.observers, o)
	}
}

// place binds an unbound live agent to c. Only the registry places agents.
func (g *Grid) place(a *Agent, c Cell) error {
	if a == nil || !a.alive {
		return fmt.Errorf("%w: place of a removed agent", ErrInvalidState)
	}
	if a.bound {
		return fmt.Errorf("%w: agent %d already placed at %v", ErrInvalidState, a.id, a.cell)
	}
	if !g.Contains(c) {
		return fmt.Errorf("%w: place at %v", ErrOutOfBounds, c)
	}
	idx := g.Index(c)
	if g.fullAt(idx) {
		return fmt.Errorf("%w: %v holds %d", ErrCapacity, c, len(g.cells[idx]))
	}
	g.attach(a, idx)
	g.agents++
	for _, o := range g.observers {
		o.Placed(a, c)
	}
	return nil
}

// move rebinds a placed agent to c. A full target leaves all state unchanged
// and returns ErrCapacity. Moving onto the current cell is a no-op.
func (g *Grid) move(a *Agent, c Cell) error {
	if a == nil || !a.alive || !a.bound {
		return fmt.Errorf("%w: move of a removed agent", ErrInvalidState)
	}
	if !g.Contains(c) {
		return fmt.Errorf("%w: move to %v", ErrOutOfBounds, c)
	}
	from := a.cell
	if from == c {
		return nil
	}
	idx := g.Index(c)
	if g.fullAt(idx) {
		return fmt.Errorf("%w: %v holds %d", ErrCapacity, c, len(g.cells[idx]))
	}
	g.detach(a)
	g.attach(a, idx)
	for _, o := range g.observers {
		o.Moved(a, from, c)
	}
	return nil
}

// remove unbinds a placed agent from its cell. Only the registry removes agents.
func (g *Grid) remove(a *Agent) error {
	if a == nil || !a.bound {
		return fmt.Errorf("%w: remove of an unplaced agent", ErrInvalidState)
	}
	c := a.cell
	g.detach(a)
	g.agents--
	for _, o := range g.observers {
		o.Removed(a, c)
	}
	return nil
}

// RandomEmptyCell returns a uniformly chosen cell with spare capacity, or
// ErrNoCapacity when every cell is full.
func (g *Grid) RandomEmptyCell(rng *RNG) (Cell, error) {
	if len(g.free) == 0 {
		return Cell{}, ErrNoCapacity
	}
	return g.CellAt(g.free[rng.IntN(len(g.free))]), nil
}

func (g *Grid) fullAt(idx int) bool {
	return g.capacity != Unlimited && len(g.cells[idx]) >= g.capacity
}

func (g *Grid) attach(a *Agent, idx int) {
	a.slot = len(g.cells[idx])
	g.cells[idx] = append(g.cells[idx], a)
	a.cell = g.CellAt(idx)
	a.bound = true
	if g.fullAt(idx) {
		g.dropFree(idx)
	}
}

func (g *Grid) detach(a *Agent) {
	idx := g.Index(a.cell)
	occ := g.cells[idx]
	last := len(occ) - 1
	occ[a.slot] = occ[last]
	occ[a.slot].slot = a.slot
	occ[last] = nil
	g.cells[idx] = occ[:last]
	a.bound = false
	if !g.fullAt(idx) {
		g.addFree(idx)
	}
}

func (g *Grid) addFree(idx int) {
	if g.freePos[idx] >= 0 {
		return
	}
	g.freePos[idx] = len(g.free)
	g.free = append(g.free, idx)
}

func (g *Grid) dropFree(idx int) {
	pos := g.freePos[idx]
	if pos < 0 {
		return
	}
	last := len(g.free) - 1
	moved := g.free[last]
	g.free[pos] = moved
	g.freePos[moved] = pos
	g.free = g.free[:last]
	g.freePos[idx] = -1
}
