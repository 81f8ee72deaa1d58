// Package printtask provides the built-in 'print' task: it logs its input
// and passes it through unchanged, useful as a pipeline probe.
package printtask

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/taskgrid/internal/event"
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the factory with the engine.
func (Module) Register(r *registry.Registry) {
	r.Register("print", New)
}

// New builds a print task. Recognized arguments: "label" (string, prefixed
// to every line).
func New(args map[string]any) (task.Task, error) {
	label, _ := args["label"].(string)
	return task.NewFunc("print", func(_ context.Context, in task.Input) (any, error) {
		for _, line := range render(in.Value) {
			if label != "" {
				line = label + ": " + line
			}
			in.Send(event.Log("info", line))
		}
		return in.Value, nil
	}), nil
}

// render formats a value as one line per map entry, with sorted keys for
// consistent output, or a single line for anything else.
func render(v any) []string {
	m, ok := v.(map[string]any)
	if !ok {
		return []string{fmt.Sprintf("%v", v)}
	}
	if len(m) == 0 {
		return []string{"(empty)"}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s = %v", k, m[k]))
	}
	return lines
}
