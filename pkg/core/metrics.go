package core

import "slices"

// Built-in model-level columns, recorded ahead of model reporters.
var BuiltinColumns = []string{"population", "activated", "relocations", "births", "deaths", "changes"}

// Reporter computes one model-level scalar after every completed step.
type Reporter struct {
	Name string
	Fn   func(w *World) float64
}

// ModelRecord is one model-level snapshot; Values follow the column order.
type ModelRecord struct {
	Step   int
	Values []float64
}

// AgentRecord is one agent-level snapshot.
type AgentRecord struct {
	Step    int
	Agent   uint64
	Species Species
	X, Y    int
	Values  []float64
}

// Export is a detached copy of everything a Collector has recorded.
type Export struct {
	ModelColumns []string
	Model        []ModelRecord
	AgentColumns []string
	Agents       []AgentRecord
}

// Row is a read-only view of a model record addressed by column name.
type Row struct {
	Step    int
	columns []string
	values  []float64
}

// Get returns the value of a named column.
func (r Row) Get(name string) (float64, bool) {
	i := slices.Index(r.columns, name)
	if i < 0 || i >= len(r.values) {
		return 0, false
	}
	return r.values[i], true
}

// StepCounters are the per-step tallies behind the built-in columns.
type StepCounters struct {
	Activated   int
	Relocations int
	Births      int
	Deaths      int
	Marked      int
}

// Changes is the total number of state changes in the step.
func (c StepCounters) Changes() int {
	return c.Relocations + c.Births + c.Deaths + c.Marked
}

// Collector is the append-only metrics log of one simulation. Records are
// never modified after they are appended.
type Collector struct {
	reporters  []Reporter
	columns    []string
	agentEvery int
	agentAttrs []string
	model      []ModelRecord
	agents     []AgentRecord
}

func newCollector(reporters []Reporter, agentEvery int, agentAttrs []string) *Collector {
	cols := slices.Clone(BuiltinColumns)
	for _, r := range reporters {
		cols = append(cols, r.Name)
	}
	return &Collector{
		reporters:  slices.Clone(reporters),
		columns:    cols,
		agentEvery: agentEvery,
		agentAttrs: slices.Clone(agentAttrs),
	}
}

// Columns returns the model-level column names.
func (c *Collector) Columns() []string { return slices.Clone(c.columns) }

// Len returns the number of model records.
func (c *Collector) Len() int { return len(c.model) }

// Latest returns the newest model record.
func (c *Collector) Latest() (Row, bool) {
	if len(c.model) == 0 {
		return Row{}, false
	}
	rec := c.model[len(c.model)-1]
	return Row{Step: rec.Step, columns: c.columns, values: rec.Values}, true
}

// Series returns one column across every recorded step.
func (c *Collector) Series(name string) []float64 {
	i := slices.Index(c.columns, name)
	if i < 0 {
		return nil
	}
	out := make([]float64, len(c.model))
	for j, rec := range c.model {
		out[j] = rec.Values[i]
	}
	return out
}

// Export returns a deep copy of the model and agent sequences.
func (c *Collector) Export() Export {
	out := Export{
		ModelColumns: slices.Clone(c.columns),
		Model:        make([]ModelRecord, len(c.model)),
		AgentColumns: slices.Clone(c.agentAttrs),
		Agents:       make([]AgentRecord, len(c.agents)),
	}
	for i, rec := range c.model {
		out.Model[i] = ModelRecord{Step: rec.Step, Values: slices.Clone(rec.Values)}
	}
	for i, rec := range c.agents {
		rec.Values = slices.Clone(rec.Values)
		out.Agents[i] = rec
	}
	return out
}

func (c *Collector) sample(w *World, step int, counters StepCounters) {
	values := make([]float64, 0, len(c.columns))
	values = append(values,
		float64(w.sim.registry.Len()),
		float64(counters.Activated),
		float64(counters.Relocations),
		float64(counters.Births),
		float64(counters.Deaths),
		float64(counters.Changes()),
	)
	for _, r := range c.reporters {
		values = append(values, r.Fn(w))
	}
	c.model = append(c.model, ModelRecord{Step: step, Values: values})

	if c.agentEvery <= 0 || step%c.agentEvery != 0 {
		return
	}
	for _, a := range w.sim.registry.Live() {
		rec := AgentRecord{
			Step:    step,
			Agent:   a.id,
			Species: a.species,
			X:       a.cell.X,
			Y:       a.cell.Y,
			Values:  make([]float64, len(c.agentAttrs)),
		}
		for i, key := range c.agentAttrs {
			rec.Values[i] = a.Attrs.Get(key)
		}
		c.agents = append(c.agents, rec)
	}
}
