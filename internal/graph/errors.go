package graph

import "errors"

// Construction errors. All are raised synchronously from the construction
// call that caused them and can be matched with errors.Is.
var (
	// ErrDuplicateNode is returned by AddNode when the id is already taken.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrUnknownNode is returned when an operation references a node id that
	// has not been added to the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrCycle is returned when the graph contains a directed cycle.
	ErrCycle = errors.New("graph has cycle")

	// ErrIncompatible is returned when two connected slots have provably
	// incompatible type descriptors.
	ErrIncompatible = errors.New("schema incompatible")

	// ErrNotExecutable is returned when a graph is missing nodes, entry
	// nodes or exit nodes.
	ErrNotExecutable = errors.New("graph not executable")
)
