// Package task defines the contract for a single executable unit of work.
//
// A Task is a named unit that accepts one input value, may stream progress
// events while it runs, and terminates with exactly one result or an error.
// Cancellation is requested through the context passed to Run; a task that
// observes cancellation should abort its work and return the context error.
package task

import (
	"context"

	"github.com/vk/taskgrid/internal/event"
	"github.com/vk/taskgrid/internal/schema"
)

// Input carries everything a task receives for one invocation.
type Input struct {
	// Value is the assembled input value for this node: the raw graph input
	// for an entry node, a single upstream result, an ordered fan-in slice,
	// or a keyed map for multi-slot nodes.
	Value any

	// Shared is the opaque caller-supplied context value forwarded unchanged
	// to every node in the run. Tasks must treat it as read-only.
	Shared any

	// Emit publishes a progress event. It may be nil when a task is driven
	// outside an executor; use Send for nil-safe emission.
	Emit func(event.Event)
}

// Send publishes a progress event, tolerating a nil Emit.
func (in Input) Send(ev event.Event) {
	if in.Emit != nil {
		in.Emit(ev)
	}
}

// Task is a named unit of work executed by a graph node.
type Task interface {
	// Name identifies the task for logging and diagnostics.
	Name() string

	// Run executes the unit. It may call in.Send any number of times before
	// returning, and must return promptly with ctx.Err() once ctx is done.
	Run(ctx context.Context, in Input) (any, error)
}

// Typed is optionally implemented by tasks that declare structural type
// descriptors for their input and output. Either method may return nil,
// which disables static checking for that side.
type Typed interface {
	InputType() *schema.Type
	OutputType() *schema.Type
}

// Func adapts a plain function into a Task.
type Func struct {
	name string
	fn   func(ctx context.Context, in Input) (any, error)
}

// NewFunc wraps fn as a named Task.
func NewFunc(name string, fn func(ctx context.Context, in Input) (any, error)) *Func {
	return &Func{name: name, fn: fn}
}

// Name implements Task.
func (f *Func) Name() string { return f.name }

// Run implements Task.
func (f *Func) Run(ctx context.Context, in Input) (any, error) {
	return f.fn(ctx, in)
}
