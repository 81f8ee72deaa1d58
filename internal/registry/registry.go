// Package registry maps the task type names used in pipeline manifests to
// the compiled Go factories that build them.
//
// During application startup the registry is populated by the built-in task
// modules (and any caller-provided ones), then the manifest loader resolves
// every node's declared type against it. An unknown type is caught at load
// time, not mid-run.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/taskgrid/internal/task"
)

// Factory builds a task instance from a manifest's argument map.
type Factory func(args map[string]any) (task.Task, error)

// Module is the interface task packages implement to self-register.
type Module interface {
	Register(r *Registry)
}

// Registry holds the task factories for a single application instance.
type Registry struct {
	factories map[string]Factory
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under a task type name. Registration happens during
// program wiring, so a duplicate name is a programming error and panics.
func (r *Registry) Register(name string, f Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("task factory with name '%s' already registered", name))
	}
	slog.Debug("Registering task factory.", "name", name)
	r.factories[name] = f
}

// Install registers every given module's factories.
func (r *Registry) Install(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// Build resolves a task type name and constructs a task from the given
// arguments.
func (r *Registry) Build(name string, args map[string]any) (task.Task, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown task type %q (registered: %v)", name, r.Names())
	}
	t, err := f(args)
	if err != nil {
		return nil, fmt.Errorf("building task of type %q: %w", name, err)
	}
	return t, nil
}

// Names returns the registered task type names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
