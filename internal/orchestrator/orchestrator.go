// Package orchestrator repeatedly runs one graph against one snapshot,
// letting a caller-supplied hook grow the graph between passes.
//
// This is the only place the graph shape may change after initial
// construction: the executor never mutates the graph, and the shared snapshot
// makes every later pass skip the nodes completed by earlier ones.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/event"
	"github.com/vk/taskgrid/internal/executor"
	"github.com/vk/taskgrid/internal/graph"
	"github.com/vk/taskgrid/internal/snapshot"
)

// Update is the view handed to the hook after each completed pass. Graph and
// Snapshot may be mutated; the executor is not running while the hook is.
type Update struct {
	Graph    *graph.Graph
	Snapshot *snapshot.Snapshot
	Input    any
	Output   any
	Shared   any
}

// Hook inspects a finished pass and reports whether the graph changed and
// another pass is needed. Returning an error stops the loop.
type Hook func(ctx context.Context, u Update) (bool, error)

// Options configures a Loop.
type Options struct {
	// Executor is passed through to every pass's executor.
	Executor executor.Options
	// Hook runs after each successful pass. Nil means a single pass.
	Hook Hook
	// Observe, when set, receives every progress event of every pass.
	Observe func(event.Event)
	// MaxPasses bounds how many times the hook may request another pass;
	// zero means no bound.
	MaxPasses int
}

// Loop wraps one graph plus one snapshot.
type Loop struct {
	g    *graph.Graph
	snap *snapshot.Snapshot
	opts Options
}

// New creates a loop over the given graph and snapshot. A nil snapshot gets a
// fresh one, retained across passes.
func New(g *graph.Graph, snap *snapshot.Snapshot, opts Options) *Loop {
	if snap == nil {
		snap = snapshot.New()
	}
	return &Loop{g: g, snap: snap, opts: opts}
}

// Snapshot returns the loop's snapshot, for persistence between runs.
func (l *Loop) Snapshot() *snapshot.Snapshot { return l.snap }

// Run executes passes until the hook reports no further change, returning the
// last pass's output. A pass error propagates immediately; the snapshot keeps
// whatever completed before it.
func (l *Loop) Run(ctx context.Context, input, shared any) (any, error) {
	logger := ctxlog.FromContext(ctx).With("graph", l.g.Name())

	for pass := 1; ; pass++ {
		output, err := l.runPass(ctx, input, shared)
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", pass, err)
		}

		if l.opts.Hook == nil {
			return output, nil
		}
		again, err := l.opts.Hook(ctx, Update{
			Graph:    l.g,
			Snapshot: l.snap,
			Input:    input,
			Output:   output,
			Shared:   shared,
		})
		if err != nil {
			return nil, fmt.Errorf("pass %d: update hook: %w", pass, err)
		}
		if !again {
			return output, nil
		}
		if l.opts.MaxPasses > 0 && pass >= l.opts.MaxPasses {
			return nil, fmt.Errorf("update hook still requesting changes after %d passes", pass)
		}
		logger.Info("graph updated, running another pass", "pass", pass+1)
	}
}

func (l *Loop) runPass(ctx context.Context, input, shared any) (any, error) {
	ex := executor.New(l.g, l.opts.Executor)
	run := ex.Invoke(ctx, input, &executor.RunContext{Snapshot: l.snap, Shared: shared})
	for ev := range run.Events() {
		if l.opts.Observe != nil {
			l.opts.Observe(ev)
		}
	}
	return run.Wait()
}
