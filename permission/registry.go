package permission

import (
	"errors"
	"sort"
	"sync"
)

// Registry maps operation names to their permission requirement. It is
// filled at startup, frozen, and then only read.
type Registry struct {
	mu     sync.RWMutex
	ops    map[string]Requirement
	frozen bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Requirement)}
}

// Register binds operation to the pairs that satisfy it. At least one pair
// is required. Must be called before [Registry.Freeze].
func (r *Registry) Register(operation string, anyOf ...Permission) error {
	req, err := newRequirement(anyOf)
	if err != nil {
		return err
	}
	return r.put(operation, req)
}

// RegisterOpen marks operation as available to any authenticated caller.
func (r *Registry) RegisterOpen(operation string) error {
	return r.put(operation, Requirement{open: true})
}

func (r *Registry) put(operation string, req Requirement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("registry frozen")
	}
	if operation == "" {
		return errors.New("operation name cannot be empty")
	}
	if _, exists := r.ops[operation]; exists {
		return errors.New("operation already registered: " + operation)
	}

	r.ops[operation] = req
	return nil
}

// Lookup returns the requirement for operation, or false if it was never
// registered.
func (r *Registry) Lookup(operation string) (Requirement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.ops[operation]
	return req, ok
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Operations returns the registered operation names in sorted order.
func (r *Registry) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.ops))
	for op := range r.ops {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of registered operations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}
