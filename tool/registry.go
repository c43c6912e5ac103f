package tool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/puntini/puntini/logging"
	"github.com/puntini/puntini/model"
)

// Dependencies carries what extractor constructors need at build time.
type Dependencies struct {
	Model  model.Model
	Logger logging.Logger
}

// Constructor builds one extractor from shared dependencies.
type Constructor func(deps Dependencies) Extractor

// Registry maps extractor names to constructors. Registration happens at
// startup; Build assembles the configured subset. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a constructor under name. Duplicate names are an error so a
// misconfigured startup fails loudly instead of shadowing a tool.
func (r *Registry) Register(name string, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[name]; exists {
		return fmt.Errorf("extractor %q already registered", name)
	}
	r.ctors[name] = ctor
	return nil
}

// Names returns the registered extractor names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates the named extractors in the given order. An unknown name
// is a configuration error.
func (r *Registry) Build(enabled []string, deps Dependencies) ([]Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	extractors := make([]Extractor, 0, len(enabled))
	for _, name := range enabled {
		ctor, ok := r.ctors[name]
		if !ok {
			return nil, fmt.Errorf("unknown extractor %q (registered: %v)", name, r.namesLocked())
		}
		extractors = append(extractors, ctor(deps))
	}
	return extractors, nil
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry pre-populated with the built-in
// extractors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for name, ctor := range builtins {
		// Registration over a fresh registry cannot collide.
		_ = r.Register(name, ctor)
	}
	return r
}
