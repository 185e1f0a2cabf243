package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
)

// State is the simulation lifecycle state.
type State uint8

const (
	Initialized State = iota
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Behavior is the per-agent hook invoked once per activation. A returned error
// aborts the run; capacity rejections should be handled inside the hook.
type Behavior func(w *World, a *Agent) error

// OffspringFactory builds the attribute bag of a new agent. parent is nil for
// agents created without one.
type OffspringFactory func(rng *RNG, parent *Agent) Attributes

// SpeciesSpec registers the behavior and offspring factory for a species tag.
type SpeciesSpec struct {
	Name     Species
	Behavior Behavior
	Factory  OffspringFactory
}

// Group describes one slice of the initial population.
type Group struct {
	Species Species
	// Count agents are placed on uniformly random cells with free capacity.
	Count int
	// Weight is the group's share of density-placed agents.
	Weight float64
	// Attrs overrides the species factory for initial agents.
	Attrs func(rng *RNG) Attributes
}

// Population is the initial population spec. Density places one agent on each
// cell with that probability, visiting cells in row-major order; Count groups
// are placed afterwards.
type Population struct {
	Density float64
	Groups  []Group
}

// Config holds every construction parameter of a simulation.
type Config struct {
	Width, Height int
	Boundary      Boundary
	// Capacity is the per-cell agent limit; Unlimited allows any number.
	Capacity     int
	Neighborhood NeighborhoodSpec
	// Utility is optional; nil leaves World.Evaluator nil.
	Utility *UtilitySpec
	Seed    int64

	Species    []SpeciesSpec
	Stages     []Species
	Population Population

	// Until is the termination predicate; nil means UntilQuiescent.
	Until Predicate

	Reporters  []Reporter
	AgentEvery int
	AgentAttrs []string

	// VerifyEvery > 0 cross-checks both neighborhood strategies after every
	// VerifyEvery steps using VerifyClassifier (Everyone when unset).
	VerifyEvery      int
	VerifyClassifier *Classifier
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, configError("grid dimensions must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.Boundary != Bounded && c.Boundary != Toroidal {
		errs = append(errs, configError("unknown boundary %d", c.Boundary))
	}
	if c.Capacity < 0 {
		errs = append(errs, configError("capacity must be >= 1 or Unlimited, got %d", c.Capacity))
	}
	errs = append(errs, c.Neighborhood.Validate())

	species := make(map[Species]bool, len(c.Species))
	for _, s := range c.Species {
		switch {
		case s.Name == "":
			errs = append(errs, configError("species name must not be empty"))
		case species[s.Name]:
			errs = append(errs, configError("species %q registered twice", s.Name))
		}
		species[s.Name] = true
	}
	staged := make(map[Species]bool, len(c.Stages))
	for _, s := range c.Stages {
		if !species[s] {
			errs = append(errs, configError("stage species %q is not registered", s))
		}
		if staged[s] {
			errs = append(errs, configError("stage species %q listed twice", s))
		}
		staged[s] = true
	}

	p := c.Population
	if p.Density < 0 || p.Density > 1 || math.IsNaN(p.Density) {
		errs = append(errs, configError("density must be in [0,1], got %g", p.Density))
	}
	weight := 0.0
	for _, g := range p.Groups {
		if !species[g.Species] {
			errs = append(errs, configError("population species %q is not registered", g.Species))
		}
		if g.Count < 0 || g.Weight < 0 {
			errs = append(errs, configError("population group %q has negative count or weight", g.Species))
		}
		weight += g.Weight
	}
	if p.Density > 0 && weight <= 0 {
		errs = append(errs, configError("density %g needs at least one weighted group", p.Density))
	}

	names := slices.Clone(BuiltinColumns)
	for _, r := range c.Reporters {
		if r.Name == "" || r.Fn == nil {
			errs = append(errs, configError("reporter needs a name and a function"))
			continue
		}
		if slices.Contains(names, r.Name) {
			errs = append(errs, configError("duplicate metric column %q", r.Name))
		}
		names = append(names, r.Name)
	}
	if c.AgentEvery < 0 {
		errs = append(errs, configError("agent snapshot interval must be >= 0, got %d", c.AgentEvery))
	}
	if c.VerifyEvery < 0 {
		errs = append(errs, configError("verify interval must be >= 0, got %d", c.VerifyEvery))
	}
	if c.VerifyClassifier != nil && (c.VerifyClassifier.Classes <= 0 || c.VerifyClassifier.Of == nil) {
		errs = append(errs, configError("verify classifier needs classes and a function"))
	}
	return errors.Join(errs...)
}

// Options carries collaborators that are not part of the model definition.
type Options struct {
	// Logger receives step and lifecycle logs; nil discards them.
	Logger *slog.Logger
	// BeforeStep and AfterStep run inside every step around the activation
	// pass. An error aborts the run.
	BeforeStep func(w *World) error
	AfterStep  func(w *World) error
}

// Simulation is one exclusively owned simulation instance.
type Simulation struct {
	cfg       Config
	opts      Options
	log       *slog.Logger
	rng       *RNG
	grid      *Grid
	resolver  *Resolver
	evaluator *Evaluator
	registry  *Registry
	scheduler *Scheduler
	metrics   *Collector
	species   map[Species]SpeciesSpec
	world     *World
	until     Predicate
	verifyCls Classifier

	state    State
	step     int
	counters StepCounters
	inStep   bool
	fatal    error
	err      error
	reason   string
}

// New validates cfg and builds a simulation with its initial population. On
// error no simulation is returned.
func New(cfg Config, opts Options) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grid, err := NewGrid(cfg.Width, cfg.Height, cfg.Boundary, cfg.Capacity)
	if err != nil {
		return nil, err
	}
	resolver, err := NewResolver(grid, cfg.Neighborhood)
	if err != nil {
		return nil, err
	}
	var eval *Evaluator
	if cfg.Utility != nil {
		if eval, err = cfg.Utility.Build(); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rng := NewRNG(cfg.Seed)
	registry := NewRegistry(grid)
	s := &Simulation{
		cfg:       cfg,
		opts:      opts,
		log:       logger,
		rng:       rng,
		grid:      grid,
		resolver:  resolver,
		evaluator: eval,
		registry:  registry,
		scheduler: NewScheduler(rng, registry, cfg.Stages...),
		metrics:   newCollector(cfg.Reporters, cfg.AgentEvery, cfg.AgentAttrs),
		species:   make(map[Species]SpeciesSpec, len(cfg.Species)),
		until:     cfg.Until,
		verifyCls: Everyone(),
	}
	for _, sp := range cfg.Species {
		s.species[sp.Name] = sp
	}
	if s.until == nil {
		s.until = UntilQuiescent()
	}
	if cfg.VerifyClassifier != nil {
		s.verifyCls = *cfg.VerifyClassifier
	}
	s.world = &World{sim: s}
	if err := s.populate(); err != nil {
		return nil, err
	}
	registry.guard = s.guard
	grid.Observe(s)
	return s, nil
}

func (s *Simulation) populate() error {
	p := s.cfg.Population
	var weighted []Group
	total := 0.0
	for _, g := range p.Groups {
		if g.Weight > 0 {
			weighted = append(weighted, g)
			total += g.Weight
		}
	}
	if p.Density > 0 {
		for i := range s.grid.Len() {
			if s.rng.Float64() >= p.Density {
				continue
			}
			g := weighted[len(weighted)-1]
			pick := s.rng.Float64() * total
			for _, cand := range weighted {
				if pick < cand.Weight {
					g = cand
					break
				}
				pick -= cand.Weight
			}
			if _, err := s.registry.Spawn(g.Species, s.initialAttrs(g), s.grid.CellAt(i)); err != nil {
				return fmt.Errorf("initial population: %w", err)
			}
		}
	}
	for _, g := range p.Groups {
		for range g.Count {
			c, err := s.grid.RandomEmptyCell(s.rng)
			if err != nil {
				return configError("initial population of %q exceeds grid capacity", g.Species)
			}
			if _, err := s.registry.Spawn(g.Species, s.initialAttrs(g), c); err != nil {
				return fmt.Errorf("initial population: %w", err)
			}
		}
	}
	return nil
}

func (s *Simulation) initialAttrs(g Group) Attributes {
	if g.Attrs != nil {
		return g.Attrs(s.rng)
	}
	if f := s.species[g.Species].Factory; f != nil {
		return f(s.rng, nil)
	}
	return Attributes{}
}

// State returns the lifecycle state.
func (s *Simulation) State() State { return s.state }

// Steps returns the number of completed steps.
func (s *Simulation) Steps() int { return s.step }

// Err returns the fatal error that aborted the run, if any.
func (s *Simulation) Err() error { return s.err }

// Reason returns why the run terminated, or "" while it is still running.
func (s *Simulation) Reason() string { return s.reason }

// Metrics returns the step-ordered metrics log.
func (s *Simulation) Metrics() *Collector { return s.metrics }

// Grid returns the occupancy grid. Its mutations are not exported.
func (s *Simulation) Grid() *Grid { return s.grid }

// Resolver returns the neighborhood resolver bound to the grid.
func (s *Simulation) Resolver() *Resolver { return s.resolver }

// Registry returns the agent registry.
func (s *Simulation) Registry() *Registry { return s.registry }

// RNG returns the simulation's only random stream.
func (s *Simulation) RNG() *RNG { return s.rng }

// Evaluator returns the configured utility evaluator, or nil.
func (s *Simulation) Evaluator() *Evaluator { return s.evaluator }

// World returns the view handed to behavior hooks.
func (s *Simulation) World() *World { return s.world }

// Config returns the construction parameters.
func (s *Simulation) Config() Config { return s.cfg }

// Counters returns the counters of the latest step.
func (s *Simulation) Counters() StepCounters { return s.counters }

// Logger returns the injected logger.
func (s *Simulation) Logger() *slog.Logger { return s.log }

// Step advances the simulation by one step. The first call records the step-0
// snapshot; a simulation with no agents terminates right there. Stepping a
// terminated simulation returns ErrInvalidState.
func (s *Simulation) Step(ctx context.Context) error {
	switch s.state {
	case Terminated:
		return fmt.Errorf("%w: simulation terminated (%s)", ErrInvalidState, s.reason)
	case Initialized:
		s.state = Running
		s.metrics.sample(s.world, 0, StepCounters{})
		if s.registry.Len() == 0 {
			s.terminate("empty")
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.step++
	s.counters = StepCounters{}
	s.inStep = true
	err := s.runStep()
	s.inStep = false
	if err == nil {
		err = s.fatal
	}
	if err != nil {
		return s.abort(err)
	}

	if n := s.cfg.VerifyEvery; n > 0 && s.step%n == 0 {
		if err := s.resolver.Verify(s.verifyCls); err != nil {
			return s.abort(err)
		}
	}
	s.metrics.sample(s.world, s.step, s.counters)
	s.log.Debug("step complete",
		"step", s.step,
		"activated", s.counters.Activated,
		"relocations", s.counters.Relocations,
		"births", s.counters.Births,
		"deaths", s.counters.Deaths,
	)

	if done, reason := s.until(s); done {
		s.terminate(reason)
	}
	return nil
}

func (s *Simulation) runStep() error {
	if s.opts.BeforeStep != nil {
		if err := s.opts.BeforeStep(s.world); err != nil {
			return fmt.Errorf("before step %d: %w", s.step, err)
		}
	}
	for _, a := range s.scheduler.Order() {
		if !a.alive {
			continue
		}
		s.counters.Activated++
		behave := s.species[a.species].Behavior
		if behave == nil {
			continue
		}
		if err := behave(s.world, a); err != nil {
			return fmt.Errorf("step %d agent %v: %w", s.step, a, err)
		}
		if s.fatal != nil {
			return s.fatal
		}
	}
	if s.opts.AfterStep != nil {
		if err := s.opts.AfterStep(s.world); err != nil {
			return fmt.Errorf("after step %d: %w", s.step, err)
		}
	}
	return nil
}

// Run steps until termination or until ctx is done. Cancellation is only
// observed between steps.
func (s *Simulation) Run(ctx context.Context) error {
	for s.state != Terminated {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
	return s.err
}

func (s *Simulation) terminate(reason string) {
	s.state = Terminated
	s.reason = reason
	s.log.Info("simulation terminated", "step", s.step, "reason", reason)
}

func (s *Simulation) abort(err error) error {
	s.err = err
	s.state = Terminated
	s.reason = "error"
	s.log.Error("simulation aborted", "step", s.step, "err", err)
	return err
}

// guard records invalid-state errors as fatal even when the hook drops them.
func (s *Simulation) guard(err error) error {
	if err != nil && s.inStep && s.fatal == nil && errors.Is(err, ErrInvalidState) {
		s.fatal = err
	}
	return err
}

// Placed counts births for the step counters.
func (s *Simulation) Placed(*Agent, Cell) {
	if s.inStep {
		s.counters.Births++
	}
}

// Moved counts relocations for the step counters.
func (s *Simulation) Moved(*Agent, Cell, Cell) {
	if s.inStep {
		s.counters.Relocations++
	}
}

// Removed counts deaths for the step counters.
func (s *Simulation) Removed(*Agent, Cell) {
	if s.inStep {
		s.counters.Deaths++
	}
}

// World is the behavior hooks' view of a running simulation.
type World struct {
	sim *Simulation
}

// Step returns the index of the step being evaluated.
func (w *World) Step() int { return w.sim.step }

// RNG returns the simulation's random stream.
func (w *World) RNG() *RNG { return w.sim.rng }

// Grid returns the occupancy grid for reading; agents move only through World.
func (w *World) Grid() *Grid { return w.sim.grid }

// Resolver returns the neighborhood resolver.
func (w *World) Resolver() *Resolver { return w.sim.resolver }

// Registry returns the agent registry. Its Spawn and Kill report invalid
// handles to the simulation the same way World does.
func (w *World) Registry() *Registry { return w.sim.registry }

// Evaluator returns the configured utility evaluator, or nil.
func (w *World) Evaluator() *Evaluator { return w.sim.evaluator }

// Metrics returns the metrics log recorded so far.
func (w *World) Metrics() *Collector { return w.sim.metrics }

// Logger returns the simulation logger.
func (w *World) Logger() *slog.Logger { return w.sim.log }

// Move relocates a to c. ErrCapacity leaves state unchanged.
func (w *World) Move(a *Agent, c Cell) error {
	return w.sim.guard(w.sim.grid.move(a, c))
}

// Remove unbinds a from the grid and deregisters it.
func (w *World) Remove(a *Agent) error {
	return w.sim.registry.Kill(a)
}

// Spawn registers and places a new agent. attrs nil uses the species factory.
func (w *World) Spawn(species Species, attrs Attributes, c Cell) (*Agent, error) {
	spec, ok := w.sim.species[species]
	if !ok {
		return nil, w.sim.guard(fmt.Errorf("%w: unknown species %q", ErrInvalidState, species))
	}
	if attrs == nil && spec.Factory != nil {
		attrs = spec.Factory(w.sim.rng, nil)
	}
	return w.sim.registry.Spawn(species, attrs, c)
}

// Reproduce spawns an offspring of parent's species at c, with attributes
// from the species factory or, without one, a copy of the parent's.
func (w *World) Reproduce(parent *Agent, c Cell) (*Agent, error) {
	if parent == nil || !parent.alive {
		return nil, w.sim.guard(fmt.Errorf("%w: reproduce from a removed agent", ErrInvalidState))
	}
	var attrs Attributes
	if f := w.sim.species[parent.species].Factory; f != nil {
		attrs = f(w.sim.rng, parent)
	} else {
		attrs = parent.Attrs.Clone()
	}
	return w.Spawn(parent.species, attrs, c)
}

// RandomEmptyCell draws a cell with free capacity from the simulation RNG.
func (w *World) RandomEmptyCell() (Cell, error) {
	return w.sim.grid.RandomEmptyCell(w.sim.rng)
}

// MarkChanged records a state change that did not move an agent, so that
// quiescence detection sees it.
func (w *World) MarkChanged() {
	w.sim.counters.Marked++
}

// Predicate decides after each completed step whether the run is over.
type Predicate func(s *Simulation) (done bool, reason string)

// UntilQuiescent stops after a step with no relocations, births, deaths or
// marked changes.
func UntilQuiescent() Predicate {
	return func(s *Simulation) (bool, string) {
		return s.counters.Changes() == 0, "quiescent"
	}
}

// UntilStep stops once n steps have completed.
func UntilStep(n int) Predicate {
	return func(s *Simulation) (bool, string) {
		return s.step >= n, "max steps"
	}
}

// UntilMetric stops when fn accepts the latest model record.
func UntilMetric(reason string, fn func(Row) bool) Predicate {
	return func(s *Simulation) (bool, string) {
		row, ok := s.metrics.Latest()
		return ok && fn(row), reason
	}
}

// AnyOf stops when any predicate does, reporting the first one's reason.
func AnyOf(ps ...Predicate) Predicate {
	return func(s *Simulation) (bool, string) {
		for _, p := range ps {
			if done, reason := p(s); done {
				return true, reason
			}
		}
		return false, ""
	}
}
