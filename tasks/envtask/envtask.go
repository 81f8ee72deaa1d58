// Package envtask provides the built-in 'env' task: it reads process
// environment variables into a map, ignoring its input.
package envtask

import (
	"context"
	"os"
	"strings"

	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the factory with the engine.
func (Module) Register(r *registry.Registry) {
	r.Register("env", New)
}

// New builds an env task. Recognized arguments: "prefix" (string, keeps only
// variables whose name starts with it; the prefix is stripped from the key).
func New(args map[string]any) (task.Task, error) {
	prefix, _ := args["prefix"].(string)
	return task.NewFunc("env", func(context.Context, task.Input) (any, error) {
		out := make(map[string]any)
		for _, e := range os.Environ() {
			pair := strings.SplitN(e, "=", 2)
			if len(pair) != 2 {
				continue
			}
			name, value := pair[0], pair[1]
			if prefix != "" {
				if !strings.HasPrefix(name, prefix) {
					continue
				}
				name = strings.TrimPrefix(name, prefix)
			}
			out[name] = value
		}
		return out, nil
	}), nil
}
