package wolfsheep

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"gridabm/pkg/core"
)

// Pasture is the grass resource layer: one patch per cell, either fully grown
// or counting down to regrowth.
type Pasture struct {
	w, h      int
	regrowth  int
	grown     []bool
	countdown []int
}

// Layout names accepted by NewPasture.
const (
	LayoutRandom = "random"
	LayoutNoise  = "noise"
)

// NewPasture seeds a pasture. With LayoutRandom each patch starts grown with
// probability 1/2; with LayoutNoise grown patches follow a simplex noise field
// so the initial pasture forms clumps. Patches that start eaten get a random
// countdown in [0, regrowth).
func NewPasture(w, h, regrowth int, layout string, rng *core.RNG) *Pasture {
	p := &Pasture{
		w:         w,
		h:         h,
		regrowth:  regrowth,
		grown:     make([]bool, w*h),
		countdown: make([]int, w*h),
	}
	var noise opensimplex.Noise
	if layout == LayoutNoise {
		noise = opensimplex.NewNormalized(rng.Source().Int64())
	}
	const scale = 0.15
	for i := range p.grown {
		if noise != nil {
			x, y := float64(i%w), float64(i/w)
			p.grown[i] = noise.Eval2(x*scale, y*scale) >= 0.5
		} else {
			p.grown[i] = rng.Bool()
		}
		if !p.grown[i] {
			p.countdown[i] = rng.IntN(regrowth)
		}
	}
	return p
}

func (p *Pasture) index(c core.Cell) int { return c.Y*p.w + c.X }

// Grown reports whether the patch at c can be eaten.
func (p *Pasture) Grown(c core.Cell) bool { return p.grown[p.index(c)] }

// Countdown returns the steps left until the patch at c regrows.
func (p *Pasture) Countdown(c core.Cell) int { return p.countdown[p.index(c)] }

// Consume eats the patch at c. It reports false and changes nothing when the
// patch is not grown; otherwise the patch becomes eaten and its countdown is
// reset to the full regrowth time.
func (p *Pasture) Consume(c core.Cell) bool {
	i := p.index(c)
	if !p.grown[i] {
		return false
	}
	p.grown[i] = false
	p.countdown[i] = p.regrowth
	return true
}

// Tick advances regrowth by one step: every eaten patch counts down and
// becomes grown when the countdown reaches zero.
func (p *Pasture) Tick() {
	for i, g := range p.grown {
		if g {
			continue
		}
		p.countdown[i]--
		if p.countdown[i] <= 0 {
			p.grown[i] = true
			p.countdown[i] = 0
		}
	}
}

// Count returns the number of grown patches.
func (p *Pasture) Count() int {
	n := 0
	for _, g := range p.grown {
		if g {
			n++
		}
	}
	return n
}
