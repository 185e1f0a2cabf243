// Package measure holds aggregate statistics computed by model reporters.
package measure

import (
	"math"
	"slices"

	"gridabm/pkg/core"
)

// Gini returns the Gini coefficient of values using the Lorenz-curve form
// 1 + 1/N - 2B. It returns 0 for an empty set or a zero total.
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	x := slices.Clone(values)
	slices.Sort(x)
	total := 0.0
	for _, v := range x {
		total += v
	}
	if total == 0 {
		return 0
	}
	b := 0.0
	for i, v := range x {
		b += v * float64(n-i)
	}
	b /= float64(n) * total
	return 1 + 1/float64(n) - 2*b
}

// Mean returns the arithmetic mean, or NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MoransI returns global Moran's I over the cells for which value reports ok,
// using binary weights between resolver neighbors. Cells without a value are
// excluded both as centers and as neighbors. It returns NaN when fewer than
// two cells have values, when all values are equal, or when no valued cell
// has a valued neighbor.
func MoransI(g *core.Grid, r *core.Resolver, value func(core.Cell) (float64, bool)) float64 {
	n := g.Len()
	z := make([]float64, n)
	valid := make([]bool, n)
	count := 0
	sum := 0.0
	for i := range n {
		v, ok := value(g.CellAt(i))
		if !ok {
			continue
		}
		z[i], valid[i] = v, true
		count++
		sum += v
	}
	if count < 2 {
		return math.NaN()
	}
	mean := sum / float64(count)
	denom := 0.0
	for i := range n {
		if valid[i] {
			z[i] -= mean
			denom += z[i] * z[i]
		}
	}
	if denom == 0 {
		return math.NaN()
	}

	var (
		weights float64
		num     float64
		buf     []core.Cell
	)
	for i := range n {
		if !valid[i] {
			continue
		}
		buf = r.AppendNeighbors(buf[:0], g.CellAt(i))
		for _, c := range buf {
			j := g.Index(c)
			if !valid[j] {
				continue
			}
			weights++
			num += z[i] * z[j]
		}
	}
	if weights == 0 {
		return math.NaN()
	}
	return float64(count) / weights * (num / denom)
}
