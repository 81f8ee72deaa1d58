package graph

// Description is an immutable summary of a graph's shape for introspection
// and logging. It is never consulted for execution decisions.
type Description struct {
	Name            string            `json:"name"`
	ContinueOnError bool              `json:"continue_on_error,omitempty"`
	Nodes           []NodeDescription `json:"nodes"`
	Edges           []EdgeDescription `json:"edges"`
	Entry           []string          `json:"entry"`
	Exit            []string          `json:"exit"`
}

// NodeDescription summarizes one node.
type NodeDescription struct {
	ID            string            `json:"id"`
	Task          string            `json:"task"`
	Inputs        []string          `json:"inputs"`
	Outputs       []string          `json:"outputs"`
	Optional      bool              `json:"optional,omitempty"`
	InputMappings map[string]Source `json:"input_mappings,omitempty"`
}

// EdgeDescription summarizes one edge.
type EdgeDescription struct {
	From       string `json:"from"`
	FromOutput string `json:"from_output"`
	To         string `json:"to"`
	ToInput    string `json:"to_input"`
	Transform  bool   `json:"transform,omitempty"`
}

// Describe returns a snapshot of the graph's current shape.
func (g *Graph) Describe() Description {
	d := Description{
		Name:            g.name,
		ContinueOnError: g.continueOnError,
		Entry:           append([]string(nil), g.entry...),
		Exit:            append([]string(nil), g.exit...),
	}
	for _, id := range g.order {
		n := g.nodes[id]
		nd := NodeDescription{
			ID:       n.ID,
			Task:     n.Task.Name(),
			Inputs:   append([]string(nil), n.Inputs...),
			Outputs:  append([]string(nil), n.Outputs...),
			Optional: n.Optional,
		}
		if len(n.InputMappings) > 0 {
			nd.InputMappings = make(map[string]Source, len(n.InputMappings))
			for slot, src := range n.InputMappings {
				nd.InputMappings[slot] = src
			}
		}
		d.Nodes = append(d.Nodes, nd)
	}
	for _, e := range g.edges {
		d.Edges = append(d.Edges, EdgeDescription{
			From:       e.From,
			FromOutput: e.FromOutput,
			To:         e.To,
			ToInput:    e.ToInput,
			Transform:  e.Transform != nil,
		})
	}
	return d
}
