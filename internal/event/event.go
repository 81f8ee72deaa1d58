// Package event defines the progress events emitted while a pipeline runs.
//
// Every event carries at minimum a type and a timestamp. The executor tags
// every event it forwards or originates with the producing node's ID and the
// pipeline name, so a consumer watching a single stream can attribute
// interleaved events from concurrently running nodes.
package event

import "time"

// Type identifies what kind of progress event occurred.
type Type string

const (
	// TypeNodeStarting is emitted immediately before a node's task is invoked.
	TypeNodeStarting Type = "node.starting"
	// TypeNodeCompleted is emitted after a node's task returned successfully.
	TypeNodeCompleted Type = "node.completed"
	// TypeNodeFailed is emitted after a node's task returned an error, or when
	// the executor fails a node without running it (failed dependency).
	TypeNodeFailed Type = "node.failed"
	// TypeGraphCompleted is the terminal event of a successful run.
	TypeGraphCompleted Type = "graph.completed"
	// TypeGraphFailed is the terminal event of an aborted run.
	TypeGraphFailed Type = "graph.failed"
	// TypeLog is a log-style event produced by a task itself.
	TypeLog Type = "log"
)

// Event is a single progress event. Log-style events additionally carry a
// level and message; terminal events carry the whole-run summary fields.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// NodeID and Graph are injected by the executor into every event it
	// forwards or originates.
	NodeID string `json:"node_id,omitempty"`
	Graph  string `json:"graph,omitempty"`

	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`

	// CompletedNodes and FailedNodes are populated on terminal events only.
	CompletedNodes []string `json:"completed_nodes,omitempty"`
	FailedNodes    []string `json:"failed_nodes,omitempty"`
}

// Log builds a log-style event with the current timestamp.
func Log(level, message string) Event {
	return Event{
		Type:      TypeLog,
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}
}

// New builds an event of the given type with the current timestamp.
func New(t Type) Event {
	return Event{Type: t, Timestamp: time.Now()}
}
