package core

import (
	"fmt"
	"maps"
	"slices"
)

// Species tags an agent with the behavior and offspring factory it uses.
type Species string

// Attributes is an agent's mutable attribute bag.
type Attributes map[string]float64

// Get returns the value for key, or 0 when unset.
func (a Attributes) Get(key string) float64 { return a[key] }

// Set stores v under key.
func (a Attributes) Set(key string, v float64) { a[key] = v }

// Add increments key by d and returns the new value.
func (a Attributes) Add(key string, d float64) float64 {
	a[key] += d
	return a[key]
}

// Has reports whether key is set.
func (a Attributes) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return Attributes{}
	}
	return maps.Clone(a)
}

// Agent is a registry-owned record: identity, species tag, attribute bag and a
// lookup-only reference to the cell the grid has bound it to.
type Agent struct {
	id      uint64
	species Species
	Attrs   Attributes

	cell  Cell
	slot  int
	bound bool
	alive bool
}

// ID returns the agent's registry identity.
func (a *Agent) ID() uint64 { return a.id }

// Species returns the agent's species tag.
func (a *Agent) Species() Species { return a.species }

// Cell returns the agent's current cell. It is meaningless once the agent has
// been removed.
func (a *Agent) Cell() Cell { return a.cell }

// Alive reports whether the agent is still registered and placed.
func (a *Agent) Alive() bool { return a.alive }

func (a *Agent) String() string {
	return fmt.Sprintf("%s#%d@%v", a.species, a.id, a.cell)
}

// Registry owns agent identity and keeps registry membership and grid
// placement in lockstep: an agent is either in both or in neither.
type Registry struct {
	grid   *Grid
	nextID uint64
	// agents is in spawn order and may hold dead entries until compaction.
	agents []*Agent
	byID   map[uint64]*Agent
	dead   int
	// guard sees every Spawn and Kill error so a simulation can record
	// invalid-state errors as fatal even when the caller drops them.
	guard func(error) error
}

// NewRegistry binds a registry to the grid it places agents on.
func NewRegistry(g *Grid) *Registry {
	return &Registry{grid: g, nextID: 1, byID: make(map[uint64]*Agent)}
}

// Spawn creates an agent and places it at c. On error nothing is registered.
func (r *Registry) Spawn(species Species, attrs Attributes, c Cell) (*Agent, error) {
	if attrs == nil {
		attrs = Attributes{}
	}
	a := &Agent{id: r.nextID, species: species, Attrs: attrs, alive: true}
	if err := r.grid.place(a, c); err != nil {
		return nil, r.check(err)
	}
	r.nextID++
	r.agents = append(r.agents, a)
	r.byID[a.id] = a
	return a, nil
}

// Kill removes a from the grid and the registry.
func (r *Registry) Kill(a *Agent) error {
	if a == nil || !a.alive {
		return r.check(fmt.Errorf("%w: agent already removed", ErrInvalidState))
	}
	if err := r.grid.remove(a); err != nil {
		return r.check(err)
	}
	a.alive = false
	delete(r.byID, a.id)
	r.dead++
	if r.dead > 32 && r.dead*2 > len(r.agents) {
		r.compact()
	}
	return nil
}

func (r *Registry) check(err error) error {
	if r.guard != nil {
		return r.guard(err)
	}
	return err
}

// Get looks up a live agent by id.
func (r *Registry) Get(id uint64) (*Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Len returns the number of live agents.
func (r *Registry) Len() int { return len(r.byID) }

// Live returns the live agents in spawn order.
func (r *Registry) Live() []*Agent {
	r.compact()
	return slices.Clone(r.agents)
}

// BySpecies returns the live agents of one species in spawn order.
func (r *Registry) BySpecies(s Species) []*Agent {
	var out []*Agent
	for _, a := range r.agents {
		if a.alive && a.species == s {
			out = append(out, a)
		}
	}
	return out
}

// CountSpecies returns the number of live agents of one species.
func (r *Registry) CountSpecies(s Species) int {
	n := 0
	for _, a := range r.agents {
		if a.alive && a.species == s {
			n++
		}
	}
	return n
}

func (r *Registry) compact() {
	if r.dead == 0 {
		return
	}
	r.agents = slices.DeleteFunc(r.agents, func(a *Agent) bool { return !a.alive })
	r.dead = 0
}
