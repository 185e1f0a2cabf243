// Package stream publishes per-step frames of a running model to browser
// clients over websocket.
package stream

import (
	"math"
	"strconv"

	"gridabm/pkg/core"
)

// Value is a metric value that encodes NaN and infinities as JSON null.
type Value float64

func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// Frame is one published snapshot. Cells holds one class byte per grid cell
// in row-major order and is base64 encoded on the wire.
type Frame struct {
	Model   string   `json:"model"`
	Step    int      `json:"step"`
	State   string   `json:"state"`
	Reason  string   `json:"reason,omitempty"`
	Columns []string `json:"columns"`
	Values  []Value  `json:"values"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Cells   []uint8  `json:"cells"`
}

// FrameOf captures the current state of m.
func FrameOf(m core.Model) Frame {
	sim := m.Sim()
	f := Frame{
		Model:   m.Name(),
		Step:    sim.Steps(),
		State:   sim.State().String(),
		Reason:  sim.Reason(),
		Columns: sim.Metrics().Columns(),
		Width:   sim.Grid().Width(),
		Height:  sim.Grid().Height(),
		Cells:   m.Cells(),
	}
	if row, ok := sim.Metrics().Latest(); ok {
		for _, name := range f.Columns {
			v, _ := row.Get(name)
			f.Values = append(f.Values, Value(v))
		}
	}
	return f
}
