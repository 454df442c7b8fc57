package script

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds named operations.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds an operation. Names are unique.
func (r *Registry) Register(op Operation) error {
	if op.Name == "" {
		return fmt.Errorf("operation name is empty")
	}
	if op.Template == "" {
		return fmt.Errorf("operation %q has an empty template", op.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[op.Name]; exists {
		return fmt.Errorf("operation %q already registered", op.Name)
	}
	r.ops[op.Name] = op
	return nil
}

// Get returns the operation with the given name.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns all registered operation names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a snapshot of every registered operation, ordered by name.
func (r *Registry) All() []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}

// Render looks up name and renders it with args.
func (r *Registry) Render(name string, args map[string]any) (string, error) {
	op, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown operation %q", name)
	}
	return op.Render(args)
}
