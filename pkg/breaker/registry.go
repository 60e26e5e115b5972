package breaker

import "sync"

// Registry hands out one Breaker per named external dependency so failures in
// one dependency do not trip another.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	opts     []Option
}

// NewRegistry creates a breaker registry. The options are applied to every
// breaker the registry creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		opts:     opts,
	}
}

// Get returns the breaker for name, creating it on first use. Extra options
// override the registry defaults for that breaker only.
func (r *Registry) Get(name string, opts ...Option) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}

	combined := make([]Option, 0, len(r.opts)+len(opts))
	combined = append(combined, r.opts...)
	combined = append(combined, opts...)

	b := New(name, combined...)
	r.breakers[name] = b
	return b
}

// Snapshots returns diagnostic views of every registered breaker
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snaps := make([]Snapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		snaps = append(snaps, b.Snapshot())
	}
	return snaps
}
