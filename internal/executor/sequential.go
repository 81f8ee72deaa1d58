package executor

import (
	"context"
	"fmt"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/event"
	"github.com/vk/taskgrid/internal/graph"
)

// runSequential executes nodes strictly one at a time in a topological order
// computed up front: entry nodes first, then a dependency-respecting
// traversal. Cancellation is checked before each node.
func (e *Executor) runSequential(ctx context.Context, st *runState) error {
	logger := ctxlog.FromContext(ctx)

	order := topologicalOrder(st.g)
	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrAborted, err)
		}

		n, _ := st.g.Node(id)
		if st.snap.Done(id) {
			continue
		}

		st.propagateDependencyFailures()
		if st.snap.Done(id) {
			continue
		}
		if !st.ready(n) {
			// Left pending; surfaces in the deadlock check below.
			logger.Debug("node not ready in sequential order", "nodeID", id)
			continue
		}

		st.emitNode(event.TypeNodeStarting, n, nil)
		result, err := st.runNode(ctx, n)
		if abort := st.processDone(nodeDone{node: n, result: result, err: err}); abort != nil {
			return abort
		}
	}

	st.propagateDependencyFailures()
	if st.pendingCount() > 0 {
		return st.deadlockError()
	}
	return nil
}

// topologicalOrder runs Kahn's algorithm over the dependency arcs, seeding
// the queue with the declared entry nodes first and then any other node
// without dependencies, both in declaration order. Nodes a cycle or an
// unmapped input keeps unreachable are appended at the end so the caller's
// deadlock check can name them.
func topologicalOrder(g *graph.Graph) []string {
	indegree := make(map[string]int)
	dependents := make(map[string][]string)
	for _, n := range g.Nodes() {
		deps := g.Dependencies(n.ID)
		indegree[n.ID] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], n.ID)
		}
	}

	var queue []string
	queued := make(map[string]bool)
	for _, id := range g.EntryNodes() {
		if !queued[id] {
			queue = append(queue, id)
			queued[id] = true
		}
	}
	for _, n := range g.Nodes() {
		if indegree[n.ID] == 0 && !queued[n.ID] {
			queue = append(queue, n.ID)
			queued[n.ID] = true
		}
	}

	var order []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 && !queued[dep] {
				queue = append(queue, dep)
				queued[dep] = true
			}
		}
	}

	for _, n := range g.Nodes() {
		if !queued[n.ID] {
			order = append(order, n.ID)
		}
	}
	return order
}
