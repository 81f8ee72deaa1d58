// Package hcl loads pipeline manifests written in HCL and builds executable
// graphs from them: file parsing, type-expression translation into schema
// descriptors, cty-to-Go data binding and node construction via the task
// registry.
package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// File is the root of one parsed manifest.
type File struct {
	Pipelines []*PipelineBlock `hcl:"pipeline,block"`
}

// PipelineBlock declares one named graph.
type PipelineBlock struct {
	Name            string   `hcl:"name,label"`
	ContinueOnError bool     `hcl:"continue_on_error,optional"`
	Entry           []string `hcl:"entry,optional"`
	Exit            []string `hcl:"exit,optional"`

	Nodes    []*NodeBlock    `hcl:"node,block"`
	Connects []*ConnectBlock `hcl:"connect,block"`
}

// NodeBlock declares one node: its graph id, the registered task type that
// implements it, its slots and its task arguments.
type NodeBlock struct {
	ID       string `hcl:"id,label"`
	TaskType string `hcl:"type,label"`
	Optional bool   `hcl:"optional,optional"`

	Inputs    []*SlotBlock    `hcl:"input,block"`
	Outputs   []*SlotBlock    `hcl:"output,block"`
	Arguments *ArgumentsBlock `hcl:"arguments,block"`
}

// SlotBlock declares one named input or output slot, optionally with a type
// expression (e.g. string, list(number), object({...})).
type SlotBlock struct {
	Name string         `hcl:"name,label"`
	Type hcl.Expression `hcl:"type,optional"`
}

// ArgumentsBlock carries the free-form task arguments; its attributes are
// decoded lazily so each task factory sees plain Go values.
type ArgumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// ConnectBlock declares one edge.
type ConnectBlock struct {
	From       string `hcl:"from"`
	To         string `hcl:"to"`
	FromOutput string `hcl:"from_output,optional"`
	ToInput    string `hcl:"to_input,optional"`
}
