// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web runs every
// component's Migrations(), calls Init(deps) once the shared resources are
// ready, and finally mounts Routes() under “/<name>”.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Initializer receives the shared resources.  cmd/web calls Init(deps) once,
// after migrations and before Routes().
type Initializer interface {
	Init(Deps) error
}

// Component contract.
//
// Migrations() may return nil if the component has no schema changes.
// Routes() should mount BOTH page and API endpoints, e.g:
//
//	r := chi.NewRouter()
//	r.Get("/{form}", getStart)
//	r.Route("/api", func(api chi.Router) { ... })
//	return r
type Component interface {
	Name() string
	Routes() chi.Router
	Migrations() []string
	Initializer
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name, so migrations and
// mounts happen in a stable order.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
