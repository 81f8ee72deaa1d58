package executor

import (
	"fmt"

	"github.com/vk/taskgrid/internal/graph"
)

// assembleInput builds the value a node's task receives:
//
//   - an entry node receives the raw graph input;
//   - a single-slot node receives its sole producer's output directly, or an
//     ordered slice of all producer outputs when several edges fan into the
//     slot;
//   - a multi-slot node receives a keyed map built from its input mappings,
//     with each edge's transform applied to the raw value first.
func (st *runState) assembleInput(n *graph.Node) (any, error) {
	if st.g.IsEntry(n.ID) && len(n.Inputs) == 1 {
		return st.input, nil
	}

	if len(n.Inputs) == 1 {
		slot := n.Inputs[0]
		edges := st.g.EdgesInto(n.ID, slot)
		switch len(edges) {
		case 0:
			if src, ok := n.InputMappings[slot]; ok {
				return st.producerValue(src), nil
			}
			return nil, nil
		case 1:
			return st.resolveEdge(edges[0]), nil
		default:
			values := make([]any, 0, len(edges))
			for _, e := range edges {
				values = append(values, st.resolveEdge(e))
			}
			return values, nil
		}
	}

	out := make(map[string]any, len(n.Inputs))
	for _, slot := range n.Inputs {
		src, ok := n.InputMappings[slot]
		if !ok {
			return nil, fmt.Errorf("node %q: input %q has no mapped producer", n.ID, slot)
		}
		v := st.producerValue(src)
		if t := st.transformFor(n, slot, src); t != nil {
			v = t(v)
		}
		out[slot] = v
	}
	return out, nil
}

// resolveEdge fetches the producer value for one edge and applies its
// transform.
func (st *runState) resolveEdge(e graph.Edge) any {
	v := st.producerValue(graph.Source{NodeID: e.From, Slot: e.FromOutput})
	if e.Transform != nil {
		v = e.Transform(v)
	}
	return v
}

// producerValue reads a producer's recorded value: the named sub-output for
// a multi-output node, the whole result otherwise. A failed optional
// producer yields nil, standing in for the omitted node.
func (st *runState) producerValue(src graph.Source) any {
	if prod, ok := st.g.Node(src.NodeID); ok && prod.MultiOutput() {
		v, _ := st.snap.NamedOutput(src.NodeID, src.Slot)
		return v
	}
	return st.snap.Results[src.NodeID]
}

// transformFor finds the transform of the edge backing a slot's current
// mapping. The mapping records only the producer, so the edge list is
// consulted; with several matching edges the most recent wins, consistent
// with last-connection-wins mappings.
func (st *runState) transformFor(n *graph.Node, slot string, src graph.Source) graph.Transform {
	edges := st.g.EdgesInto(n.ID, slot)
	for i := len(edges) - 1; i >= 0; i-- {
		if edges[i].From == src.NodeID && edges[i].FromOutput == src.Slot {
			return edges[i].Transform
		}
	}
	return nil
}
