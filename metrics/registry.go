package metrics

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds metrics keyed by name. Metrics are created on first
// access, so callers never check for nil. A name belongs to one metric
// kind for the lifetime of the registry.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]any
}

// DefaultRegistry holds the emulator metrics declared in standard.go.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]any)}
}

// Counter returns the Counter registered under name, creating it if needed.
func (r *Registry) Counter(name string) *Counter {
	return lookup(r, name, func() *Counter { return new(Counter) })
}

// Gauge returns the Gauge registered under name, creating it if needed.
func (r *Registry) Gauge(name string) *Gauge {
	return lookup(r, name, func() *Gauge { return new(Gauge) })
}

// Histogram returns the Histogram registered under name, creating it if
// needed.
func (r *Registry) Histogram(name string) *Histogram {
	return lookup(r, name, func() *Histogram { return new(Histogram) })
}

// lookup is the get-or-create path shared by the typed accessors. It panics
// if name is already registered as another kind, which is a programming
// error.
func lookup[M any](r *Registry, name string, create func() M) M {
	r.mu.RLock()
	m, ok := r.metrics[name]
	r.mu.RUnlock()
	if !ok {
		r.mu.Lock()
		if m, ok = r.metrics[name]; !ok {
			m = create()
			r.metrics[name] = m
		}
		r.mu.Unlock()
	}
	typed, ok := m.(M)
	if !ok {
		panic(fmt.Sprintf("metrics: %q already registered as %T", name, m))
	}
	return typed
}

// get returns the metric registered under name, or nil.
func (r *Registry) get(name string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

// Names returns the names of every registered metric in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Reset zeroes every metric in place. Handles obtained earlier stay valid.
func (r *Registry) Reset() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.metrics {
		switch m := m.(type) {
		case *Counter:
			m.reset()
		case *Gauge:
			m.reset()
		case *Histogram:
			m.reset()
		}
	}
}
