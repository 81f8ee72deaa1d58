package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vk/taskgrid/internal/event"
	"github.com/vk/taskgrid/internal/graph"
	"github.com/vk/taskgrid/internal/snapshot"
	"github.com/vk/taskgrid/internal/task"
)

// runState is the live in-memory view of one run. Its snapshot is mutated
// only by the scheduling control loop between node completions; concurrently
// running node tasks only ever see their own assembled input and the shared
// read-only context value.
type runState struct {
	exec   *Executor
	g      *graph.Graph
	snap   *snapshot.Snapshot
	input  any
	shared any
	emit   func(event.Event)
}

// nodeDone is one node's terminal outcome, delivered to the control loop.
type nodeDone struct {
	node   *graph.Node
	result any
	err    error
}

// sourceSatisfied reports whether a dependency no longer blocks its
// consumers: it completed, or it failed but was declared optional (its
// consumers then receive a nil value in its place).
func (st *runState) sourceSatisfied(depID string) bool {
	if st.snap.Completed[depID] {
		return true
	}
	if st.snap.Failed[depID] {
		if dep, ok := st.g.Node(depID); ok && dep.Optional {
			return true
		}
	}
	return false
}

// requiredDepFailed returns the id of a failed non-optional upstream
// dependency, if the node has one.
func (st *runState) requiredDepFailed(n *graph.Node) (string, bool) {
	for _, depID := range st.g.Dependencies(n.ID) {
		if !st.snap.Failed[depID] {
			continue
		}
		if dep, ok := st.g.Node(depID); ok && dep.Optional {
			continue
		}
		return depID, true
	}
	return "", false
}

// ready reports whether a node can execute now. An entry node with the
// single implicit input slot is ready as soon as it hasn't run; every other
// node needs each of its input slots mapped to a satisfied producer.
func (st *runState) ready(n *graph.Node) bool {
	if st.snap.Done(n.ID) {
		return false
	}
	if st.g.IsEntry(n.ID) && len(n.Inputs) == 1 {
		return true
	}
	if len(n.Inputs) > 1 {
		for _, slot := range n.Inputs {
			src, ok := n.InputMappings[slot]
			if !ok || !st.sourceSatisfied(src.NodeID) {
				return false
			}
		}
		return true
	}
	for _, depID := range st.g.Dependencies(n.ID) {
		if !st.sourceSatisfied(depID) {
			return false
		}
	}
	return true
}

// propagateDependencyFailures fails every pending node whose required
// upstream already failed, without invoking its task, and cascades until a
// fixpoint. Synthesized failures never abort the run themselves: the
// upstream failure already applied the abort policy.
func (st *runState) propagateDependencyFailures() {
	for changed := true; changed; {
		changed = false
		for _, n := range st.g.Nodes() {
			if st.snap.Done(n.ID) {
				continue
			}
			depID, failed := st.requiredDepFailed(n)
			if !failed {
				continue
			}
			err := fmt.Errorf("%w: upstream node %q", ErrDependencyFailed, depID)
			st.snap.MarkFailed(n.ID, err)
			st.emitNode(event.TypeNodeFailed, n, err)
			changed = true
		}
	}
}

func (st *runState) pendingCount() int {
	pending := 0
	for _, n := range st.g.Nodes() {
		if !st.snap.Done(n.ID) {
			pending++
		}
	}
	return pending
}

// emitNode publishes an executor-originated bracketing event for one node.
func (st *runState) emitNode(t event.Type, n *graph.Node, err error) {
	ev := event.New(t)
	ev.NodeID = n.ID
	ev.Graph = st.g.Name()
	if err != nil {
		ev.Error = err.Error()
	}
	st.emit(ev)
}

// emitTerminal publishes the run's terminal event with the whole-run summary.
func (st *runState) emitTerminal(t event.Type, err error) {
	ev := event.New(t)
	ev.Graph = st.g.Name()
	ev.CompletedNodes = st.snap.CompletedIDs()
	ev.FailedNodes = st.snap.FailedIDs()
	if err != nil {
		ev.Error = err.Error()
	}
	st.emit(ev)
}

// runNode assembles a node's input and executes its task. It must be called
// from the control loop: input assembly reads the snapshot maps.
func (st *runState) runNode(ctx context.Context, n *graph.Node) (any, error) {
	in, err := st.assembleInput(n)
	if err != nil {
		return nil, err
	}
	return st.executeNode(ctx, n, in)
}

// executeNode invokes one node's task with its already-assembled input and
// forwards the task's own events, tagged with the node id and graph name, in
// the order the task produced them. It is safe to call from a worker
// goroutine: it never touches the snapshot, whose maps belong to the control
// loop alone.
func (st *runState) executeNode(ctx context.Context, n *graph.Node, in any) (any, error) {
	events := make(chan event.Event, st.exec.opts.EventBuffer)
	type outcome struct {
		result any
		err    error
	}
	resultCh := make(chan outcome, 1)

	go func() {
		result, err := n.Task.Run(ctx, task.Input{
			Value:  in,
			Shared: st.shared,
			Emit:   func(ev event.Event) { events <- ev },
		})
		close(events)
		resultCh <- outcome{result: result, err: err}
	}()

	for ev := range events {
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		ev.NodeID = n.ID
		ev.Graph = st.g.Name()
		st.emit(ev)
	}
	out := <-resultCh

	if out.err != nil && (errors.Is(out.err, context.Canceled) || errors.Is(out.err, context.DeadlineExceeded)) {
		return nil, fmt.Errorf("%w: %v", ErrAborted, out.err)
	}
	return out.result, out.err
}

// processDone records a node's outcome in the snapshot, emits the matching
// bracketing event and applies the abort policy. A non-nil return aborts the
// whole run with that error.
func (st *runState) processDone(d nodeDone) error {
	if d.err == nil {
		d.err = st.recordSuccess(d.node, d.result)
		if d.err == nil {
			return nil
		}
	}

	st.snap.MarkFailed(d.node.ID, d.err)
	st.emitNode(event.TypeNodeFailed, d.node, d.err)

	if errors.Is(d.err, ErrAborted) {
		// Cancellation terminates the run regardless of policy.
		return fmt.Errorf("node %q: %w", d.node.ID, d.err)
	}
	if d.node.Optional || st.g.ContinueOnError() {
		return nil
	}
	return fmt.Errorf("%w: %q: %w", ErrNodeFailed, d.node.ID, d.err)
}

// recordSuccess stores a node's result, splitting a multi-output result into
// its named slots. A declared slot absent from the result object is a hard
// error and fails the node.
func (st *runState) recordSuccess(n *graph.Node, result any) error {
	if n.MultiOutput() {
		obj, ok := result.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: node %q declares outputs %v but returned %T",
				ErrMissingOutput, n.ID, n.Outputs, result)
		}
		for _, slot := range n.Outputs {
			v, ok := obj[slot]
			if !ok {
				return fmt.Errorf("%w: node %q returned no value for output %q",
					ErrMissingOutput, n.ID, slot)
			}
			st.snap.SetNamedOutput(n.ID, slot, v)
		}
	}
	st.snap.MarkCompleted(n.ID, result)
	st.emitNode(event.TypeNodeCompleted, n, nil)
	return nil
}

// deadlockError builds the diagnostic for a stuck run: every pending node
// with precisely which input it is waiting on and why.
func (st *runState) deadlockError() error {
	var stuck []string
	for _, n := range st.g.Nodes() {
		if st.snap.Done(n.ID) {
			continue
		}
		var waits []string
		for _, slot := range n.Inputs {
			src, ok := n.InputMappings[slot]
			if !ok {
				if edges := st.g.EdgesInto(n.ID, slot); len(edges) == 0 {
					waits = append(waits, fmt.Sprintf("input %q has no mapped producer", slot))
				}
				continue
			}
			switch {
			case st.sourceSatisfied(src.NodeID):
				// Slot is fine; something else blocks the node.
			case st.snap.Failed[src.NodeID]:
				waits = append(waits, fmt.Sprintf("input %q waits on failed node %q", slot, src.NodeID))
			default:
				waits = append(waits, fmt.Sprintf("input %q waits on node %q which never became ready", slot, src.NodeID))
			}
		}
		if len(waits) == 0 {
			waits = append(waits, "no unmet input found")
		}
		stuck = append(stuck, fmt.Sprintf("node %q: %s", n.ID, strings.Join(waits, ", ")))
	}
	return fmt.Errorf("%w: %s", ErrDeadlock, strings.Join(stuck, "; "))
}
