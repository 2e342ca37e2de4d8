package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/forcegraph/internal/dynamo"
)

var registry = map[string]func(retention float64) dynamo.Integrator{
	"rk4":   func(r float64) dynamo.Integrator { return &RK4{Retention: r} },
	"euler": func(r float64) dynamo.Integrator { return &Euler{Retention: r} },
}

// New returns a fresh integrator by name. A non-positive retention selects
// DefaultRetention.
func New(name string, retention float64) (dynamo.Integrator, error) {
	mk, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s (available: %v)", name, Names())
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return mk(retention), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
