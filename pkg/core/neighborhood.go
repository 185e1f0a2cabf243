package core

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Shape selects the neighborhood geometry.
type Shape uint8

const (
	// Orthogonal (von Neumann): cells at Manhattan distance 1..r.
	Orthogonal Shape = iota
	// Moore: cells at Chebyshev distance 1..r.
	Moore
	// Extended: cells at Chebyshev distance 1..max(r, 2). Radius 1 is widened
	// to 2, so the smallest extended neighborhood is the 24 cells of the 5×5
	// block; larger radii behave like Moore.
	Extended
)

func (s Shape) String() string {
	switch s {
	case Orthogonal:
		return "orthogonal"
	case Moore:
		return "moore"
	case Extended:
		return "extended"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// ParseShape accepts the shape names plus the common aliases.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "orthogonal", "von_neumann", "vonneumann", "von-neumann":
		return Orthogonal, nil
	case "moore":
		return Moore, nil
	case "extended", "extended_moore":
		return Extended, nil
	default:
		return 0, configError("unknown neighborhood shape %q", s)
	}
}

// NeighborhoodSpec is the immutable (shape, radius) pair defining neighbors.
type NeighborhoodSpec struct {
	Shape  Shape
	Radius int
}

// Validate rejects unknown shapes and radii below 1.
func (s NeighborhoodSpec) Validate() error {
	if s.Shape > Extended {
		return configError("unknown neighborhood shape %d", s.Shape)
	}
	if s.Radius < 1 {
		return configError("neighborhood radius must be >= 1, got %d", s.Radius)
	}
	return nil
}

// Reach is the Chebyshev extent of the kernel: Radius, except that Extended
// never reaches less than 2.
func (s NeighborhoodSpec) Reach() int {
	if s.Shape == Extended && s.Radius < 2 {
		return 2
	}
	return s.Radius
}

func (s NeighborhoodSpec) includes(dx, dy int) bool {
	if dx == 0 && dy == 0 {
		return false
	}
	if s.Shape == Orthogonal {
		return abs(dx)+abs(dy) <= s.Radius
	}
	return true
}

var offsetCache sync.Map // NeighborhoodSpec -> []Cell

// Offsets returns the relative neighbor offsets for s in row-major order. The
// list is computed once per spec.
func (s NeighborhoodSpec) Offsets() []Cell {
	return slices.Clone(s.offsets())
}

func (s NeighborhoodSpec) offsets() []Cell {
	if v, ok := offsetCache.Load(s); ok {
		return v.([]Cell)
	}
	r := s.Reach()
	var out []Cell
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if s.includes(dx, dy) {
				out = append(out, Cell{X: dx, Y: dy})
			}
		}
	}
	v, _ := offsetCache.LoadOrStore(s, out)
	return v.([]Cell)
}

// Classifier maps agents onto count classes [0, Classes). Agents mapped to a
// negative class are ignored.
type Classifier struct {
	Classes int
	Of      func(a *Agent) int
}

// Everyone counts every agent in a single class.
func Everyone() Classifier {
	return Classifier{Classes: 1, Of: func(*Agent) int { return 0 }}
}

// ByAttribute classes agents by the integer value of an attribute.
func ByAttribute(key string, classes int) Classifier {
	return Classifier{Classes: classes, Of: func(a *Agent) int {
		v := int(a.Attrs.Get(key))
		if v < 0 || v >= classes {
			return -1
		}
		return v
	}}
}

// BySpecies gives each listed species its own class, in argument order.
func BySpecies(species ...Species) Classifier {
	idx := make(map[Species]int, len(species))
	for i, s := range species {
		idx[s] = i
	}
	return Classifier{Classes: len(species), Of: func(a *Agent) int {
		if i, ok := idx[a.species]; ok {
			return i
		}
		return -1
	}}
}

// Strategy selects how a full-grid survey is computed.
type Strategy uint8

const (
	// StrategyAuto uses the aggregate strategy once the population reaches
	// half the cell count.
	StrategyAuto Strategy = iota
	// StrategyDirect enumerates offsets per cell.
	StrategyDirect
	// StrategyAggregate accumulates indicator layers over the whole grid.
	StrategyAggregate
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyAggregate:
		return "aggregate"
	default:
		return "auto"
	}
}

// Field holds per-cell, per-class neighbor counts for a whole grid.
type Field struct {
	W, H    int
	Classes int
	counts  []int
}

func newField(w, h, classes int) *Field {
	return &Field{W: w, H: h, Classes: classes, counts: make([]int, w*h*classes)}
}

// At returns a copy of the class counts around c.
func (f *Field) At(c Cell) []int {
	i := (c.Y*f.W + c.X) * f.Classes
	return slices.Clone(f.counts[i : i+f.Classes])
}

// Count returns the neighbor count of one class around c.
func (f *Field) Count(c Cell, class int) int {
	return f.counts[(c.Y*f.W+c.X)*f.Classes+class]
}

// Total returns the neighbor count over all classes around c.
func (f *Field) Total(c Cell) int {
	i := (c.Y*f.W + c.X) * f.Classes
	n := 0
	for _, v := range f.counts[i : i+f.Classes] {
		n += v
	}
	return n
}

// Resolver answers neighbor queries for one grid and one NeighborhoodSpec.
type Resolver struct {
	grid *Grid
	spec NeighborhoodSpec
	// offsets are the cached spec offsets. On toroidal grids offsets that
	// coincide modulo the grid extent are folded into one and the origin is
	// dropped, so every neighbor cell is reported once.
	offsets []Cell
	folded  bool
}

// NewResolver validates spec and binds it to g.
func NewResolver(g *Grid, spec NeighborhoodSpec) (*Resolver, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	r := &Resolver{grid: g, spec: spec, offsets: spec.offsets()}
	if g.boundary == Toroidal {
		r.fold()
	}
	return r, nil
}

func (r *Resolver) fold() {
	w, h := r.grid.w, r.grid.h
	seen := make(map[Cell]bool, len(r.offsets))
	out := make([]Cell, 0, len(r.offsets))
	for _, o := range r.offsets {
		key := Cell{X: (o.X%w + w) % w, Y: (o.Y%h + h) % h}
		if key == (Cell{}) || seen[key] {
			r.folded = true
			continue
		}
		seen[key] = true
		out = append(out, o)
	}
	if r.folded {
		r.offsets = out
	}
}

// Spec returns the neighborhood the resolver was built with.
func (r *Resolver) Spec() NeighborhoodSpec { return r.spec }

// Neighbors returns the neighbor cells of c in offset order.
func (r *Resolver) Neighbors(c Cell) []Cell {
	return r.AppendNeighbors(make([]Cell, 0, len(r.offsets)), c)
}

// AppendNeighbors appends the neighbor cells of c to dst.
func (r *Resolver) AppendNeighbors(dst []Cell, c Cell) []Cell {
	for _, o := range r.offsets {
		if n, ok := r.grid.Resolve(c.X+o.X, c.Y+o.Y); ok {
			dst = append(dst, n)
		}
	}
	return dst
}

// Occupants returns every agent bound to a neighbor cell of c.
func (r *Resolver) Occupants(c Cell) []*Agent {
	var out []*Agent
	for _, o := range r.offsets {
		if n, ok := r.grid.Resolve(c.X+o.X, c.Y+o.Y); ok {
			out = append(out, r.grid.cells[r.grid.Index(n)]...)
		}
	}
	return out
}

// Count returns per-class agent counts over the neighbor cells of c.
func (r *Resolver) Count(c Cell, cls Classifier) []int {
	counts := make([]int, cls.Classes)
	r.countInto(counts, c, cls)
	return counts
}

func (r *Resolver) countInto(counts []int, c Cell, cls Classifier) {
	for _, o := range r.offsets {
		n, ok := r.grid.Resolve(c.X+o.X, c.Y+o.Y)
		if !ok {
			continue
		}
		for _, a := range r.grid.cells[r.grid.Index(n)] {
			if k := cls.Of(a); k >= 0 && k < cls.Classes {
				counts[k]++
			}
		}
	}
}

// Survey computes neighbor counts for every cell with the chosen strategy.
func (r *Resolver) Survey(cls Classifier, strategy Strategy) *Field {
	if strategy == StrategyAuto {
		strategy = StrategyDirect
		if 2*r.grid.agents >= r.grid.Len() {
			strategy = StrategyAggregate
		}
	}
	if strategy == StrategyAggregate {
		return r.Aggregate(cls)
	}
	return r.direct(cls)
}

func (r *Resolver) direct(cls Classifier) *Field {
	g := r.grid
	f := newField(g.w, g.h, cls.Classes)
	for i := range g.Len() {
		base := i * cls.Classes
		r.countInto(f.counts[base:base+cls.Classes], g.CellAt(i), cls)
	}
	return f
}

// Aggregate computes neighbor counts for every cell in one batched pass: one
// indicator layer per class, accumulated with the neighborhood kernel.
func (r *Resolver) Aggregate(cls Classifier) *Field {
	g := r.grid
	n := g.Len()
	layers := make([][]int, cls.Classes)
	for k := range layers {
		layers[k] = make([]int, n)
	}
	for i, occ := range g.cells {
		for _, a := range occ {
			if k := cls.Of(a); k >= 0 && k < cls.Classes {
				layers[k][i]++
			}
		}
	}
	f := newField(g.w, g.h, cls.Classes)
	for k, layer := range layers {
		sums := r.Accumulate(layer)
		for i, v := range sums {
			f.counts[i*cls.Classes+k] = v
		}
	}
	return f
}

// Accumulate returns, for every cell, the sum of layer over that cell's
// neighbors. layer is indexed like the grid.
func (r *Resolver) Accumulate(layer []int) []int {
	switch {
	case r.folded:
		return r.scatter(layer)
	case r.spec.Shape == Orthogonal && r.spec.Radius == 1:
		return r.fourTap(layer)
	case r.spec.Shape == Orthogonal:
		return r.scatter(layer)
	default:
		return r.boxSum(layer)
	}
}

// at reads layer with the boundary policy applied; excluded cells read as 0.
func (r *Resolver) at(layer []int, x, y int) int {
	c, ok := r.grid.Resolve(x, y)
	if !ok {
		return 0
	}
	return layer[r.grid.Index(c)]
}

// boxSum computes square-kernel sums with separable running sums: a row pass
// then a column pass, minus the origin.
func (r *Resolver) boxSum(layer []int) []int {
	w, h := r.grid.w, r.grid.h
	rad := r.spec.Reach()
	rows := make([]int, w*h)
	for y := range h {
		sum := 0
		for dx := -rad; dx <= rad; dx++ {
			sum += r.at(layer, dx, y)
		}
		for x := range w {
			rows[y*w+x] = sum
			sum += r.at(layer, x+rad+1, y) - r.at(layer, x-rad, y)
		}
	}
	out := make([]int, w*h)
	for x := range w {
		sum := 0
		for dy := -rad; dy <= rad; dy++ {
			sum += r.at(rows, x, dy)
		}
		for y := range h {
			out[y*w+x] = sum - layer[y*w+x]
			sum += r.at(rows, x, y+rad+1) - r.at(rows, x, y-rad)
		}
	}
	return out
}

func (r *Resolver) fourTap(layer []int) []int {
	w, h := r.grid.w, r.grid.h
	out := make([]int, w*h)
	for y := range h {
		for x := range w {
			out[y*w+x] = r.at(layer, x-1, y) + r.at(layer, x+1, y) +
				r.at(layer, x, y-1) + r.at(layer, x, y+1)
		}
	}
	return out
}

// scatter adds every non-empty cell into the cells that count it as a
// neighbor. Handles kernels that fold on small toroidal grids and diamonds.
func (r *Resolver) scatter(layer []int) []int {
	g := r.grid
	out := make([]int, g.Len())
	for i, v := range layer {
		if v == 0 {
			continue
		}
		src := g.CellAt(i)
		for _, o := range r.offsets {
			if t, ok := g.Resolve(src.X-o.X, src.Y-o.Y); ok {
				out[g.Index(t)] += v
			}
		}
	}
	return out
}

// Verify recomputes neighbor counts with both strategies and compares them
// cell by cell. It then checks that the strategies agree on neighbor sets: the
// aggregate footprint of every single cell must be exactly the cells that list
// it as a direct neighbor. The set check costs O(cells²). A mismatch returns
// ErrConsistency.
func (r *Resolver) Verify(cls Classifier) error {
	g := r.grid
	direct := r.direct(cls)
	agg := r.Aggregate(cls)
	for i, want := range direct.counts {
		if got := agg.counts[i]; got != want {
			c := g.CellAt(i / cls.Classes)
			return fmt.Errorf("%w: cell %v class %d direct=%d aggregate=%d",
				ErrConsistency, c, i%cls.Classes, want, got)
		}
	}

	n := g.Len()
	// seenBy[c] lists the cells whose direct neighbor set contains c.
	seenBy := make([][]int, n)
	buf := make([]Cell, 0, len(r.offsets))
	for t := range n {
		buf = r.AppendNeighbors(buf[:0], g.CellAt(t))
		for _, c := range buf {
			ci := g.Index(c)
			seenBy[ci] = append(seenBy[ci], t)
		}
	}
	layer := make([]int, n)
	want := make([]int, n)
	for c := range n {
		layer[c] = 1
		got := r.Accumulate(layer)
		layer[c] = 0
		for _, t := range seenBy[c] {
			want[t]++
		}
		for t := range n {
			if got[t] != want[t] {
				return fmt.Errorf("%w: cell %v counts %v %d times directly, %d aggregate",
					ErrConsistency, g.CellAt(t), g.CellAt(c), want[t], got[t])
			}
		}
		for _, t := range seenBy[c] {
			want[t] = 0
		}
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
