// Package executor runs a validated pipeline graph: it decides which nodes
// are ready, executes them sequentially or with bounded parallelism, wires
// multi-input/multi-output data between them, forwards their progress events
// and assembles the final result.
//
// Execution state is seeded from, and flushed back into, a snapshot after
// every node transition, so a failed or interrupted run can be resumed with
// the same snapshot without re-running completed nodes.
package executor

import (
	"context"
	"fmt"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/event"
	"github.com/vk/taskgrid/internal/graph"
	"github.com/vk/taskgrid/internal/snapshot"
)

const (
	defaultWorkers = 4
	// defaultEventBuffer bounds the per-node event channel so a chatty task
	// cannot outrun the consumer without backpressure.
	defaultEventBuffer = 64
)

// Options configures an Executor.
type Options struct {
	// Parallel launches every ready node (up to Workers) together instead of
	// executing one node at a time in topological order.
	Parallel bool
	// Workers caps the number of concurrently running nodes in parallel mode.
	Workers int
	// EventBuffer sizes each node's progress-event channel.
	EventBuffer int
}

// Executor drives runs of one graph.
type Executor struct {
	graph *graph.Graph
	opts  Options
}

// New creates an executor for the given graph.
func New(g *graph.Graph, opts Options) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	return &Executor{graph: g, opts: opts}
}

// RunContext carries the per-run collaborators: the resumable snapshot and
// the opaque shared value forwarded to every node. Both are optional; a nil
// snapshot means a fresh one is created and owned for this single run.
type RunContext struct {
	Snapshot *snapshot.Snapshot
	Shared   any
}

// Run is one in-flight or finished execution. Consume it by ranging over
// Events until the channel closes and then calling Wait, or by calling Wait
// directly, which discards unread events.
type Run struct {
	events chan event.Event
	result any
	err    error
}

// Events returns the ordered stream of progress events. The channel is
// closed after the terminal event.
func (r *Run) Events() <-chan event.Event { return r.events }

// Wait blocks until the run finishes and returns its result. Unread events
// are drained and discarded.
func (r *Run) Wait() (any, error) {
	for range r.events {
	}
	return r.result, r.err
}

// Invoke starts an execution and returns immediately. Progress events become
// available on Run.Events as nodes execute.
func (e *Executor) Invoke(ctx context.Context, input any, rc *RunContext) *Run {
	run := &Run{events: make(chan event.Event, e.opts.EventBuffer)}
	go func() {
		run.result, run.err = e.run(ctx, input, rc, func(ev event.Event) {
			run.events <- ev
		})
		close(run.events)
	}()
	return run
}

// Execute is the convenience form of Invoke that discards progress events
// and returns only the terminal result.
func (e *Executor) Execute(ctx context.Context, input any, rc *RunContext) (any, error) {
	return e.Invoke(ctx, input, rc).Wait()
}

// run is the top of one execution: preflight validation, state hydration,
// scheduling, output assembly and the terminal event.
func (e *Executor) run(ctx context.Context, input any, rc *RunContext, emit func(event.Event)) (any, error) {
	logger := ctxlog.FromContext(ctx).With("graph", e.graph.Name())

	if rc == nil {
		rc = &RunContext{}
	}
	snap := rc.Snapshot
	if snap == nil {
		snap = snapshot.New()
	}
	snap.Init()

	st := &runState{
		exec:   e,
		g:      e.graph,
		snap:   snap,
		input:  input,
		shared: rc.Shared,
		emit:   emit,
	}

	result, err := e.dispatch(ctx, st)
	if err != nil {
		logger.Error("run failed", "error", err)
		st.emitTerminal(event.TypeGraphFailed, err)
		return nil, err
	}

	logger.Info("run completed",
		"completed", len(snap.Completed), "failed", len(snap.Failed))
	st.emitTerminal(event.TypeGraphCompleted, nil)
	return result, nil
}

func (e *Executor) dispatch(ctx context.Context, st *runState) (any, error) {
	if err := e.graph.Executable(); err != nil {
		return nil, err
	}
	if err := e.graph.Validate(); err != nil {
		return nil, err
	}

	var err error
	if e.opts.Parallel {
		err = e.runParallel(ctx, st)
	} else {
		err = e.runSequential(ctx, st)
	}
	if err != nil {
		return nil, err
	}
	return st.assembleOutput()
}

// assembleOutput composes the final result from the exit nodes: a single
// exit node's result directly, or a keyed object for several. An exit node
// that failed or never ran fails assembly, with the two cases distinguished.
func (st *runState) assembleOutput() (any, error) {
	exits := st.g.ExitNodes()
	for _, id := range exits {
		if st.snap.Completed[id] {
			continue
		}
		if st.snap.Failed[id] {
			return nil, fmt.Errorf("%w: exit node %q failed: %s", ErrExitIncomplete, id, st.snap.Errors[id])
		}
		return nil, fmt.Errorf("%w: exit node %q never ran", ErrExitIncomplete, id)
	}

	if len(exits) == 1 {
		return st.snap.Results[exits[0]], nil
	}
	out := make(map[string]any, len(exits))
	for _, id := range exits {
		out[id] = st.snap.Results[id]
	}
	return out, nil
}
