package executor

import (
	"context"
	"fmt"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/event"
	"github.com/vk/taskgrid/internal/graph"
)

// runParallel is the work-conserving greedy scheduler: every currently-ready
// node is launched, up to the worker ceiling, and the loop re-evaluates
// readiness after each single completion rather than waiting for a whole
// batch, so a newly-unblocked node starts as soon as a slot frees.
//
// The control loop is the only goroutine that touches the snapshot; node
// goroutines communicate exclusively through the done channel.
func (e *Executor) runParallel(ctx context.Context, st *runState) error {
	logger := ctxlog.FromContext(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	doneCh := make(chan nodeDone)
	inFlight := 0
	launched := make(map[string]bool)

	for {
		st.propagateDependencyFailures()

		if runCtx.Err() == nil {
			for _, n := range st.g.Nodes() {
				if inFlight >= e.opts.Workers {
					break
				}
				if launched[n.ID] || !st.ready(n) {
					continue
				}
				launched[n.ID] = true
				st.emitNode(event.TypeNodeStarting, n, nil)

				// Input assembly reads the snapshot maps, so it happens here
				// on the control loop, never in the worker goroutine.
				in, err := st.assembleInput(n)
				if err != nil {
					if abort := st.processDone(nodeDone{node: n, err: err}); abort != nil {
						cancel()
						st.drainInFlight(doneCh, inFlight)
						return abort
					}
					continue
				}

				inFlight++
				logger.Debug("launching node", "nodeID", n.ID, "inFlight", inFlight)
				go func(n *graph.Node, in any) {
					result, err := st.executeNode(runCtx, n, in)
					doneCh <- nodeDone{node: n, result: result, err: err}
				}(n, in)
			}
		}

		if inFlight == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrAborted, err)
			}
			if st.pendingCount() == 0 {
				return nil
			}
			return st.deadlockError()
		}

		d := <-doneCh
		inFlight--
		if abort := st.processDone(d); abort != nil {
			cancel()
			st.drainInFlight(doneCh, inFlight)
			return abort
		}
	}
}

// drainInFlight waits out the remaining node goroutines after an abort so no
// event is emitted past the terminal one, recording their outcomes for a
// later resume.
func (st *runState) drainInFlight(doneCh <-chan nodeDone, inFlight int) {
	for ; inFlight > 0; inFlight-- {
		d := <-doneCh
		if d.err == nil {
			// The node beat the cancellation; keep its result.
			d.err = st.recordSuccess(d.node, d.result)
			if d.err == nil {
				continue
			}
		}
		st.snap.MarkFailed(d.node.ID, d.err)
		st.emitNode(event.TypeNodeFailed, d.node, d.err)
	}
}
