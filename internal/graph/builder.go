package graph

import "github.com/vk/taskgrid/internal/task"

// Builder is a fluent wrapper over the graph construction surface. Errors
// are captured on the first failing call and reported by Build; subsequent
// calls become no-ops so construction chains stay readable.
type Builder struct {
	graph *Graph
	err   error
}

// NewBuilder starts a fluent construction chain for a named graph.
func NewBuilder(name string, opts ...Option) *Builder {
	return &Builder{graph: New(name, opts...)}
}

// AddNode mirrors Graph.AddNode.
func (b *Builder) AddNode(id string, t task.Task, cfg *NodeConfig) *Builder {
	if b.err == nil {
		b.err = b.graph.AddNode(id, t, cfg)
	}
	return b
}

// Connect mirrors Graph.Connect.
func (b *Builder) Connect(fromID, toID string, cfg *ConnectConfig) *Builder {
	if b.err == nil {
		b.err = b.graph.Connect(fromID, toID, cfg)
	}
	return b
}

// EntryNodes mirrors Graph.SetEntryNodes.
func (b *Builder) EntryNodes(ids ...string) *Builder {
	if b.err == nil {
		b.err = b.graph.SetEntryNodes(ids...)
	}
	return b
}

// ExitNodes mirrors Graph.SetExitNodes.
func (b *Builder) ExitNodes(ids ...string) *Builder {
	if b.err == nil {
		b.err = b.graph.SetExitNodes(ids...)
	}
	return b
}

// Build returns the constructed graph, or the first construction error.
func (b *Builder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.graph.Executable(); err != nil {
		return nil, err
	}
	return b.graph, nil
}
