package core

import (
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
)

// Utility scores a local neighbor composition. Score is only called with
// total > 0; the zero-neighbor case is handled by Evaluator.
type Utility interface {
	Score(similar, total int) float64
}

// Threshold scores 1 when the similar fraction reaches Homophily, else 0.
type Threshold struct {
	Homophily float64
}

// Score implements Utility.
func (u Threshold) Score(similar, total int) float64 {
	if float64(similar)/float64(total) >= u.Homophily {
		return 1
	}
	return 0
}

// Linear scores the similar fraction.
type Linear struct{}

// Score implements Utility.
func (Linear) Score(similar, total int) float64 {
	return float64(similar) / float64(total)
}

// Quadratic scores the similar fraction raised to Power. A zero Power means 2.
type Quadratic struct {
	Power float64
}

// Score implements Utility.
func (u Quadratic) Score(similar, total int) float64 {
	p := u.Power
	if p == 0 {
		p = 2
	}
	return math.Pow(float64(similar)/float64(total), p)
}

// Peaked is a Gaussian bump centered on Optimal with width Tolerance.
type Peaked struct {
	Optimal   float64
	Tolerance float64
}

// Score implements Utility.
func (u Peaked) Score(similar, total int) float64 {
	d := float64(similar)/float64(total) - u.Optimal
	return math.Exp(-(d * d) / (2 * u.Tolerance * u.Tolerance))
}

// Sigmoid is a logistic curve over the similar fraction.
type Sigmoid struct {
	Midpoint  float64
	Steepness float64
}

// Score implements Utility.
func (u Sigmoid) Score(similar, total int) float64 {
	f := float64(similar) / float64(total)
	return 1 / (1 + math.Exp(-u.Steepness*(f-u.Midpoint)))
}

// Step is a piecewise-constant utility: LowValue below Low, MidValue below
// High, HighValue otherwise.
type Step struct {
	Low, High                     float64
	LowValue, MidValue, HighValue float64
}

// Score implements Utility.
func (u Step) Score(similar, total int) float64 {
	f := float64(similar) / float64(total)
	switch {
	case f < u.Low:
		return u.LowValue
	case f < u.High:
		return u.MidValue
	default:
		return u.HighValue
	}
}

// Exponential rises from 0 to 1 with curvature Steepness.
type Exponential struct {
	Steepness float64
}

// Score implements Utility.
func (u Exponential) Score(similar, total int) float64 {
	f := float64(similar) / float64(total)
	return (math.Exp(u.Steepness*f) - 1) / (math.Exp(u.Steepness) - 1)
}

// Custom adapts a plain function.
type Custom func(similar, total int) float64

// Score implements Utility.
func (u Custom) Score(similar, total int) float64 { return u(similar, total) }

// Evaluator pairs a Utility with the explicitly configured score for agents
// that have no neighbors at all.
type Evaluator struct {
	Utility  Utility
	Isolated float64
}

// Score returns Isolated when total is 0 and the utility's score otherwise.
func (e *Evaluator) Score(similar, total int) float64 {
	if total <= 0 {
		return e.Isolated
	}
	return e.Utility.Score(similar, total)
}

// UtilitySpec is the declarative form of an Evaluator.
type UtilitySpec struct {
	Kind   string
	Params map[string]float64
	// Isolated is the score for zero-neighbor agents. It has no default.
	Isolated *float64
}

// Build validates the spec and returns its Evaluator.
func (s UtilitySpec) Build() (*Evaluator, error) {
	u, err := NewUtility(s.Kind, s.Params)
	if s.Isolated == nil {
		err = errors.Join(err, configError("utility %q: isolated score must be set explicitly", s.Kind))
	}
	if err != nil {
		return nil, err
	}
	return &Evaluator{Utility: u, Isolated: *s.Isolated}, nil
}

// UtilityConstructor builds a Utility from numeric parameters.
type UtilityConstructor func(params map[string]float64) (Utility, error)

var (
	utilityMu    sync.RWMutex
	utilityKinds = map[string]UtilityConstructor{
		"threshold":   newThreshold,
		"linear":      func(map[string]float64) (Utility, error) { return Linear{}, nil },
		"quadratic":   newQuadratic,
		"peaked":      newPeaked,
		"sigmoid":     newSigmoid,
		"step":        newStep,
		"exponential": newExponential,
	}
)

// RegisterUtility adds a utility kind. Registering an existing kind replaces it.
func RegisterUtility(kind string, ctor UtilityConstructor) {
	if kind == "" || ctor == nil {
		return
	}
	utilityMu.Lock()
	defer utilityMu.Unlock()
	utilityKinds[strings.ToLower(kind)] = ctor
}

// UtilityKinds lists the registered kinds in sorted order.
func UtilityKinds() []string {
	utilityMu.RLock()
	defer utilityMu.RUnlock()
	out := make([]string, 0, len(utilityKinds))
	for k := range utilityKinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewUtility resolves kind from the registry.
func NewUtility(kind string, params map[string]float64) (Utility, error) {
	utilityMu.RLock()
	ctor, ok := utilityKinds[strings.ToLower(kind)]
	utilityMu.RUnlock()
	if !ok {
		return nil, configError("unknown utility %q (have %s)", kind, strings.Join(UtilityKinds(), ", "))
	}
	return ctor(params)
}

func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

func unit(name string, v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return configError("%s must be in [0,1], got %g", name, v)
	}
	return nil
}

func positive(name string, v float64) error {
	if !(v > 0) {
		return configError("%s must be > 0, got %g", name, v)
	}
	return nil
}

func newThreshold(p map[string]float64) (Utility, error) {
	u := Threshold{Homophily: param(p, "homophily", 0.5)}
	if err := unit("homophily", u.Homophily); err != nil {
		return nil, err
	}
	return u, nil
}

func newQuadratic(p map[string]float64) (Utility, error) {
	u := Quadratic{Power: param(p, "power", 2)}
	if err := positive("power", u.Power); err != nil {
		return nil, err
	}
	return u, nil
}

func newPeaked(p map[string]float64) (Utility, error) {
	u := Peaked{Optimal: param(p, "optimal", 0.5), Tolerance: param(p, "tolerance", 0.2)}
	if err := errors.Join(unit("optimal", u.Optimal), positive("tolerance", u.Tolerance)); err != nil {
		return nil, err
	}
	return u, nil
}

func newSigmoid(p map[string]float64) (Utility, error) {
	u := Sigmoid{Midpoint: param(p, "midpoint", 0.5), Steepness: param(p, "steepness", 10)}
	if err := errors.Join(unit("midpoint", u.Midpoint), positive("steepness", u.Steepness)); err != nil {
		return nil, err
	}
	return u, nil
}

func newStep(p map[string]float64) (Utility, error) {
	u := Step{
		Low:       param(p, "low", 0.3),
		High:      param(p, "high", 0.7),
		LowValue:  param(p, "low_value", 0),
		MidValue:  param(p, "mid_value", 0.5),
		HighValue: param(p, "high_value", 1),
	}
	err := errors.Join(unit("low", u.Low), unit("high", u.High))
	if err == nil && u.Low > u.High {
		err = configError("low (%g) must not exceed high (%g)", u.Low, u.High)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func newExponential(p map[string]float64) (Utility, error) {
	u := Exponential{Steepness: param(p, "steepness", 2)}
	if err := positive("steepness", u.Steepness); err != nil {
		return nil, err
	}
	return u, nil
}
