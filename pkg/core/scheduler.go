package core

// Scheduler produces the per-step activation order from the registry's live
// set and the simulation RNG.
type Scheduler struct {
	rng    *RNG
	reg    *Registry
	stages []Species
}

// NewScheduler builds a scheduler. With no stages every live agent is
// shuffled together. With stages each listed species is shuffled and
// activated as its own group, in stage order; species not listed follow in a
// final shuffled group.
func NewScheduler(rng *RNG, reg *Registry, stages ...Species) *Scheduler {
	return &Scheduler{rng: rng, reg: reg, stages: stages}
}

// Order returns a fresh activation order containing every live agent once.
func (s *Scheduler) Order() []*Agent {
	live := s.reg.Live()
	if len(s.stages) == 0 {
		s.shuffle(live)
		return live
	}
	groups := make(map[Species][]*Agent, len(s.stages))
	staged := make(map[Species]bool, len(s.stages))
	for _, sp := range s.stages {
		staged[sp] = true
	}
	var rest []*Agent
	for _, a := range live {
		if staged[a.species] {
			groups[a.species] = append(groups[a.species], a)
		} else {
			rest = append(rest, a)
		}
	}
	order := make([]*Agent, 0, len(live))
	for _, sp := range s.stages {
		g := groups[sp]
		s.shuffle(g)
		order = append(order, g...)
	}
	s.shuffle(rest)
	return append(order, rest...)
}

func (s *Scheduler) shuffle(agents []*Agent) {
	s.rng.Shuffle(len(agents), func(i, j int) { agents[i], agents[j] = agents[j], agents[i] })
}
