// Package ui draws the viewer's side panel.
package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"gridabm/pkg/core"
)

// StatusLines renders the panel text for m: a title, the run state, the
// latest model metrics and the resolved parameters.
func StatusLines(m core.Model, paused bool, tps int) []string {
	sim := m.Sim()
	state := sim.State().String()
	if sim.Reason() != "" {
		state += " (" + sim.Reason() + ")"
	}
	if paused && sim.State() != core.Terminated {
		state = "paused"
	}
	lines := []string{
		strings.ToUpper(m.Name()),
		fmt.Sprintf("step %s  %s", humanize.Comma(int64(sim.Steps())), state),
		fmt.Sprintf("seed %d  %d tps", sim.RNG().Seed(), tps),
	}
	if err := sim.Err(); err != nil {
		lines = append(lines, "error: "+err.Error())
	}

	if row, ok := sim.Metrics().Latest(); ok {
		lines = append(lines, "", "metrics")
		for _, name := range sim.Metrics().Columns() {
			v, _ := row.Get(name)
			lines = append(lines, fmt.Sprintf("  %-13s %s", name, humanize.FtoaWithDigits(v, 3)))
		}
	}

	for _, g := range m.Parameters().Groups {
		lines = append(lines, "", g.Name)
		for _, p := range g.Params {
			lines = append(lines, fmt.Sprintf("  %-13s %s", p.Key, p.Value))
		}
	}
	return lines
}

// Keys lists the viewer key bindings for the panel footer.
var Keys = []string{
	"space pause  n step",
	"r reset  s reseed",
	"+/- speed  q quit",
}
