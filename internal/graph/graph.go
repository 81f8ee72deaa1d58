// Package graph implements the pipeline graph model: node and edge storage,
// entry and exit node sets, input-slot bookkeeping and structural validation.
//
// A graph is built incrementally (add node, connect, set entry/exit nodes)
// and becomes executable once it has at least one node, one entry node and
// one exit node. Connections are type-checked against the endpoints' declared
// schema descriptors as they are added: proven incompatibilities fail the
// Connect call, while reduced-confidence conditions are logged as warnings on
// the graph's diagnostic logger and never block construction.
package graph

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/vk/taskgrid/internal/schema"
	"github.com/vk/taskgrid/internal/task"
)

const (
	// DefaultInputSlot is the implicit input slot of a node that declares none.
	DefaultInputSlot = "input"
	// DefaultOutputSlot is the implicit output slot of a node that declares none.
	DefaultOutputSlot = "output"
)

// Source identifies the producing side of an input mapping.
type Source struct {
	NodeID string `json:"node_id"`
	Slot   string `json:"slot"`
}

// Transform rewrites a value as it travels along an edge, before it is
// assigned to the target slot.
type Transform func(any) any

// Node is a graph-declared wrapper around one task, with named input and
// output slots.
type Node struct {
	ID       string
	Task     task.Task
	Inputs   []string
	Outputs  []string
	Optional bool

	// InputTypes holds the declared descriptor per input slot; a missing
	// entry disables static checking for that slot.
	InputTypes map[string]*schema.Type
	// OutputType is the declared descriptor of the node's single output.
	// Multi-output nodes cannot be checked per-slot against it.
	OutputType *schema.Type

	// InputMappings records, per input slot, which producer feeds it. A later
	// Connect call overwrites an earlier mapping for the same slot.
	InputMappings map[string]Source
}

// MultiOutput reports whether the node declares more than one output slot.
func (n *Node) MultiOutput() bool { return len(n.Outputs) > 1 }

// HasInput reports whether the node declares the given input slot.
func (n *Node) HasInput(slot string) bool {
	for _, s := range n.Inputs {
		if s == slot {
			return true
		}
	}
	return false
}

// HasOutput reports whether the node declares the given output slot.
func (n *Node) HasOutput(slot string) bool {
	for _, s := range n.Outputs {
		if s == slot {
			return true
		}
	}
	return false
}

// Edge is a directed connection between an output slot and an input slot.
type Edge struct {
	From       string
	FromOutput string
	To         string
	ToInput    string
	Transform  Transform
}

// NodeConfig carries the optional settings for AddNode. The zero value
// declares a single "input" slot, a single "output" slot and no descriptors.
type NodeConfig struct {
	Inputs     []string
	Outputs    []string
	Optional   bool
	InputTypes map[string]*schema.Type
	OutputType *schema.Type
}

// ConnectConfig carries the optional settings for Connect. Slot names default
// to "output" and "input".
type ConnectConfig struct {
	FromOutput string
	ToInput    string
	Transform  Transform
}

// Graph is a mutable pipeline graph. It is built by a single goroutine and
// must not be mutated while an execution is in flight; the orchestration loop
// may mutate it between executions.
type Graph struct {
	name            string
	logger          *slog.Logger
	continueOnError bool

	nodes map[string]*Node
	order []string // node ids in insertion order
	edges []Edge
	entry []string
	exit  []string
}

// Option configures a graph at construction time.
type Option func(*Graph)

// WithLogger sets the diagnostic logger that receives schema warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) { g.logger = logger }
}

// WithContinueOnError lets a run keep going past non-optional node failures.
func WithContinueOnError() Option {
	return func(g *Graph) { g.continueOnError = true }
}

// New creates an empty named graph.
func New(name string, opts ...Option) *Graph {
	g := &Graph{
		name:   name,
		logger: slog.Default(),
		nodes:  make(map[string]*Node),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the graph's name, used to tag forwarded events.
func (g *Graph) Name() string { return g.name }

// ContinueOnError reports whether a run continues past node failures.
func (g *Graph) ContinueOnError() bool { return g.continueOnError }

// Node returns the node with the given id, if present.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// EntryNodes returns the ordered entry node ids.
func (g *Graph) EntryNodes() []string { return append([]string(nil), g.entry...) }

// ExitNodes returns the ordered exit node ids.
func (g *Graph) ExitNodes() []string { return append([]string(nil), g.exit...) }

// IsEntry reports whether the id is registered as an entry node.
func (g *Graph) IsEntry(id string) bool {
	for _, e := range g.entry {
		if e == id {
			return true
		}
	}
	return false
}

// AddNode registers a new node wrapping the given task. The id must be
// unique. When cfg declares no descriptors and the task implements
// task.Typed, the task's own declarations are adopted.
func (g *Graph) AddNode(id string, t task.Task, cfg *NodeConfig) error {
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, id)
	}
	if cfg == nil {
		cfg = &NodeConfig{}
	}

	n := &Node{
		ID:            id,
		Task:          t,
		Inputs:        append([]string(nil), cfg.Inputs...),
		Outputs:       append([]string(nil), cfg.Outputs...),
		Optional:      cfg.Optional,
		OutputType:    cfg.OutputType,
		InputMappings: make(map[string]Source),
	}
	if len(n.Inputs) == 0 {
		n.Inputs = []string{DefaultInputSlot}
	}
	if len(n.Outputs) == 0 {
		n.Outputs = []string{DefaultOutputSlot}
	}

	if cfg.InputTypes != nil {
		n.InputTypes = make(map[string]*schema.Type, len(cfg.InputTypes))
		for slot, st := range cfg.InputTypes {
			n.InputTypes[slot] = st
		}
	}
	g.adoptTaskTypes(n)

	g.nodes[id] = n
	g.order = append(g.order, id)
	return nil
}

// adoptTaskTypes fills in descriptors the config left out from the task's own
// Typed declarations. A multi-slot node adopts the attributes of an object
// input descriptor slot by slot.
func (g *Graph) adoptTaskTypes(n *Node) {
	typed, ok := n.Task.(task.Typed)
	if !ok {
		return
	}
	if n.OutputType == nil {
		n.OutputType = typed.OutputType()
	}
	if n.InputTypes != nil {
		return
	}
	it := typed.InputType()
	if it == nil {
		return
	}
	n.InputTypes = make(map[string]*schema.Type)
	if len(n.Inputs) == 1 {
		n.InputTypes[n.Inputs[0]] = it
		return
	}
	if it.Kind == schema.KindObject {
		for _, slot := range n.Inputs {
			if at, ok := it.Attr(slot); ok {
				n.InputTypes[slot] = at
			}
		}
	}
}

// Connect registers a directed edge between two existing nodes, updates the
// target's input mapping for the chosen slot (last connection wins) and
// immediately type-checks the two endpoints' declared descriptors for the
// exact slots used. A proven incompatibility fails the call; anything that
// merely reduces static-checking confidence is logged as a warning.
func (g *Graph) Connect(fromID, toID string, cfg *ConnectConfig) error {
	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, toID)
	}
	if cfg == nil {
		cfg = &ConnectConfig{}
	}

	edge := Edge{
		From:       fromID,
		FromOutput: cfg.FromOutput,
		To:         toID,
		ToInput:    cfg.ToInput,
		Transform:  cfg.Transform,
	}
	if edge.FromOutput == "" {
		edge.FromOutput = DefaultOutputSlot
	}
	if edge.ToInput == "" {
		edge.ToInput = DefaultInputSlot
	}

	if !from.HasOutput(edge.FromOutput) {
		return fmt.Errorf("node %q has no output slot %q", fromID, edge.FromOutput)
	}
	if !to.HasInput(edge.ToInput) {
		return fmt.Errorf("node %q has no input slot %q", toID, edge.ToInput)
	}

	if err := g.checkEdgeSchemas(edge); err != nil {
		return err
	}

	g.edges = append(g.edges, edge)
	to.InputMappings[edge.ToInput] = Source{NodeID: fromID, Slot: edge.FromOutput}
	return nil
}

// checkEdgeSchemas runs the compatibility validator for one edge. A producer
// with several output slots has no per-slot descriptor, so validation for the
// edge is skipped with a warning rather than guessed.
func (g *Graph) checkEdgeSchemas(edge Edge) error {
	from := g.nodes[edge.From]
	to := g.nodes[edge.To]

	if from.MultiOutput() {
		g.logger.Warn("skipping type check: producer has multiple output slots and no per-slot descriptor",
			"graph", g.name, "from", edge.From, "output", edge.FromOutput, "to", edge.To)
		return nil
	}

	producerType := from.OutputType
	consumerType := to.InputTypes[edge.ToInput]

	res := schema.Check(producerType, consumerType)
	for _, w := range res.Warnings {
		g.logger.Warn("connection type warning",
			"graph", g.name, "from", edge.From, "to", edge.To, "input", edge.ToInput, "detail", w)
	}
	if !res.Compatible {
		return fmt.Errorf("%w: %s.%s -> %s.%s: %s",
			ErrIncompatible, edge.From, edge.FromOutput, edge.To, edge.ToInput,
			strings.Join(res.Errors, "; "))
	}
	return nil
}

// SetEntryNodes declares which nodes receive the raw graph input. It re-runs
// whole-graph validation.
func (g *Graph) SetEntryNodes(ids ...string) error {
	if err := g.knownIDs(ids); err != nil {
		return err
	}
	g.entry = append([]string(nil), ids...)
	return g.Validate()
}

// SetExitNodes declares which nodes compose the final output. It re-runs
// whole-graph validation.
func (g *Graph) SetExitNodes(ids ...string) error {
	if err := g.knownIDs(ids); err != nil {
		return err
	}
	g.exit = append([]string(nil), ids...)
	return g.Validate()
}

func (g *Graph) knownIDs(ids []string) error {
	for _, id := range ids {
		if _, ok := g.nodes[id]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownNode, id)
		}
	}
	return nil
}

// Validate re-checks the whole graph: schema presence per node, every edge's
// compatibility, and acyclicity. Accumulated warnings go to the diagnostic
// logger; only genuine incompatibilities or a cycle produce an error.
func (g *Graph) Validate() error {
	for _, id := range g.order {
		n := g.nodes[id]
		for _, slot := range n.Inputs {
			if msg := schema.CheckPresence(id, "input", slot, n.InputTypes[slot]); msg != "" {
				g.logger.Warn("schema presence", "graph", g.name, "detail", msg)
			}
		}
		if !n.MultiOutput() {
			if msg := schema.CheckPresence(id, "output", n.Outputs[0], n.OutputType); msg != "" {
				g.logger.Warn("schema presence", "graph", g.name, "detail", msg)
			}
		}
	}

	for _, edge := range g.edges {
		if err := g.checkEdgeSchemas(edge); err != nil {
			return err
		}
	}

	return g.detectCycles()
}

// Executable verifies the graph has the minimum shape required to run.
func (g *Graph) Executable() error {
	switch {
	case len(g.nodes) == 0:
		return fmt.Errorf("%w: graph %q has no nodes", ErrNotExecutable, g.name)
	case len(g.entry) == 0:
		return fmt.Errorf("%w: graph %q has no entry nodes", ErrNotExecutable, g.name)
	case len(g.exit) == 0:
		return fmt.Errorf("%w: graph %q has no exit nodes", ErrNotExecutable, g.name)
	}
	return nil
}

// Dependencies returns the ids of every producer feeding the given node,
// in first-connection order without duplicates.
func (g *Graph) Dependencies(id string) []string {
	seen := make(map[string]bool)
	var deps []string
	for _, e := range g.edges {
		if e.To != id || seen[e.From] {
			continue
		}
		seen[e.From] = true
		deps = append(deps, e.From)
	}
	// Mappings installed without a surviving edge still count as dependencies.
	if n, ok := g.nodes[id]; ok {
		for _, slot := range n.Inputs {
			if src, ok := n.InputMappings[slot]; ok && !seen[src.NodeID] {
				seen[src.NodeID] = true
				deps = append(deps, src.NodeID)
			}
		}
	}
	return deps
}

// EdgesInto returns every edge targeting the given input slot, in insertion
// order. Fan-in assembly relies on this ordering.
func (g *Graph) EdgesInto(id, slot string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.To == id && e.ToInput == slot {
			out = append(out, e)
		}
	}
	return out
}
