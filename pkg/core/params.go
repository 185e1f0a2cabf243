package core

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// ParamType enumerates supported parameter value kinds.
type ParamType string

const (
	// ParamTypeInt denotes integer-valued parameters.
	ParamTypeInt ParamType = "int"
	// ParamTypeFloat denotes floating-point parameters.
	ParamTypeFloat ParamType = "float"
	// ParamTypeBool denotes boolean parameters.
	ParamTypeBool ParamType = "bool"
	// ParamTypeString denotes enumerated or free-form text parameters.
	ParamTypeString ParamType = "string"
)

// Parameter describes a single tunable value exposed by a model.
type Parameter struct {
	Key         string
	Type        ParamType
	Value       string
	Description string
}

// ParameterGroup clusters related parameters for presentation purposes.
type ParameterGroup struct {
	Name    string
	Params  []Parameter
	Summary string
}

// ParameterSnapshot captures the resolved tunables of a model.
type ParameterSnapshot struct {
	Groups []ParameterGroup
}

// Values flattens the snapshot into key/value pairs.
func (s ParameterSnapshot) Values() map[string]string {
	out := make(map[string]string)
	for _, g := range s.Groups {
		for _, p := range g.Params {
			out[p.Key] = p.Value
		}
	}
	return out
}

// Params reads typed values out of a string map, recording every read so the
// resolved set can be reported and unknown keys rejected.
type Params struct {
	raw    map[string]string
	used   map[string]bool
	errs   []error
	groups []ParameterGroup
}

// NewParams wraps raw. raw is not modified.
func NewParams(raw map[string]string) *Params {
	return &Params{raw: raw, used: make(map[string]bool)}
}

// Group starts a new presentation group for the parameters read after it.
func (p *Params) Group(name, summary string) {
	p.groups = append(p.groups, ParameterGroup{Name: name, Summary: summary})
}

func (p *Params) lookup(key string) (string, bool) {
	p.used[key] = true
	v, ok := p.raw[key]
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func (p *Params) record(key string, typ ParamType, value, desc string) {
	if len(p.groups) == 0 {
		p.Group("general", "")
	}
	g := &p.groups[len(p.groups)-1]
	g.Params = append(g.Params, Parameter{Key: key, Type: typ, Value: value, Description: desc})
}

func (p *Params) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%w: parameter %s=%q: %v", ErrConfiguration, key, value, err))
}

// Int reads an integer parameter.
func (p *Params) Int(key string, def int, desc string) int {
	v := def
	if s, ok := p.lookup(key); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			p.fail(key, s, err)
		} else {
			v = n
		}
	}
	p.record(key, ParamTypeInt, strconv.Itoa(v), desc)
	return v
}

// Int64 reads a 64-bit integer parameter such as a seed.
func (p *Params) Int64(key string, def int64, desc string) int64 {
	v := def
	if s, ok := p.lookup(key); ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			p.fail(key, s, err)
		} else {
			v = n
		}
	}
	p.record(key, ParamTypeInt, strconv.FormatInt(v, 10), desc)
	return v
}

// Float reads a floating-point parameter.
func (p *Params) Float(key string, def float64, desc string) float64 {
	v := def
	if s, ok := p.lookup(key); ok {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			p.fail(key, s, err)
		} else {
			v = f
		}
	}
	p.record(key, ParamTypeFloat, strconv.FormatFloat(v, 'g', -1, 64), desc)
	return v
}

// Bool reads a boolean parameter.
func (p *Params) Bool(key string, def bool, desc string) bool {
	v := def
	if s, ok := p.lookup(key); ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			p.fail(key, s, err)
		} else {
			v = b
		}
	}
	p.record(key, ParamTypeBool, strconv.FormatBool(v), desc)
	return v
}

// String reads a text parameter. A non-empty choices list restricts values.
func (p *Params) String(key, def, desc string, choices ...string) string {
	v := def
	if s, ok := p.lookup(key); ok {
		v = strings.ToLower(s)
	}
	if len(choices) > 0 && !slices.Contains(choices, v) {
		p.fail(key, v, fmt.Errorf("want one of %s", strings.Join(choices, ", ")))
	}
	p.record(key, ParamTypeString, v, desc)
	return v
}

// Check records a range violation for an already-read value.
func (p *Params) Check(ok bool, key string, format string, args ...any) {
	if !ok {
		p.errs = append(p.errs, fmt.Errorf("%w: parameter %s %s", ErrConfiguration, key, fmt.Sprintf(format, args...)))
	}
}

// Err joins every parse and range error plus one error per unknown key.
func (p *Params) Err() error {
	var unknown []string
	for k := range p.raw {
		if !p.used[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	errs := slices.Clone(p.errs)
	for _, k := range unknown {
		errs = append(errs, fmt.Errorf("%w: unknown parameter %q", ErrConfiguration, k))
	}
	return errors.Join(errs...)
}

// Snapshot returns the resolved parameters in read order.
func (p *Params) Snapshot() ParameterSnapshot {
	groups := make([]ParameterGroup, len(p.groups))
	for i, g := range p.groups {
		g.Params = slices.Clone(g.Params)
		groups[i] = g
	}
	return ParameterSnapshot{Groups: groups}
}
