package core

import (
	"fmt"
	"sort"
	"sync"
)

// Model is a runnable domain model built on a Simulation. Outer tooling (the
// CLI, the websocket stream, the viewer) only sees this contract.
type Model interface {
	Name() string
	Sim() *Simulation
	Parameters() ParameterSnapshot
	// Cells fills one byte per grid cell in row-major order: 0 for an empty
	// cell, otherwise a model-defined class used for rendering.
	Cells() []uint8
}

// Factory constructs a Model from string parameters. Unknown keys and
// unparsable values are configuration errors. opts carries the logger and
// any extra step hooks of the caller.
type Factory func(params map[string]string, opts Options) (Model, error)

var (
	modelsMu sync.RWMutex
	models   = map[string]Factory{}
)

// Register adds a model factory under the provided name.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	modelsMu.Lock()
	defer modelsMu.Unlock()
	models[name] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	modelsMu.RLock()
	f, ok := models[name]
	modelsMu.RUnlock()
	if !ok {
		return nil, configError("unknown model %q", name)
	}
	return f, nil
}

// Models returns the registered model names in sorted order.
func Models() []string {
	modelsMu.RLock()
	defer modelsMu.RUnlock()
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build looks up name and constructs the model.
func Build(name string, params map[string]string, opts Options) (Model, error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	m, err := f(params, opts)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	return m, nil
}
