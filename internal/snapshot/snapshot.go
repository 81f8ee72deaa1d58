// Package snapshot provides the serializable record of a run's per-node
// progress: which nodes completed or failed, their results, their named
// sub-outputs and their captured errors.
//
// A snapshot is created empty on first use and mutated in place by the
// executor after every node transition, so it always reflects the most
// recently fully-processed node even if the process is interrupted mid-run.
// Feeding the same snapshot into a later invocation resumes the run: the
// readiness rule naturally skips everything already recorded. The caller owns
// the snapshot's serialization format and lifetime; there is no versioning
// or migration.
package snapshot

import (
	"sort"
)

// Snapshot records per-node completion, failure, results and named outputs.
// Its maps are mutated only by the executor's control loop between node
// completions; concurrent node tasks never touch it directly.
type Snapshot struct {
	Completed map[string]bool `json:"completed"`
	Failed    map[string]bool `json:"failed"`
	// Results maps node id to the node's returned value.
	Results map[string]any `json:"results"`
	// NamedOutputs maps "nodeId.slot" to the slot's value for multi-output nodes.
	NamedOutputs map[string]any `json:"named_outputs"`
	// Errors maps node id to the captured error description.
	Errors map[string]string `json:"errors"`
}

// New returns an empty snapshot.
func New() *Snapshot {
	s := &Snapshot{}
	s.Init()
	return s
}

// Init allocates any nil maps. Call it after deserializing a snapshot from
// an external format.
func (s *Snapshot) Init() {
	if s.Completed == nil {
		s.Completed = make(map[string]bool)
	}
	if s.Failed == nil {
		s.Failed = make(map[string]bool)
	}
	if s.Results == nil {
		s.Results = make(map[string]any)
	}
	if s.NamedOutputs == nil {
		s.NamedOutputs = make(map[string]any)
	}
	if s.Errors == nil {
		s.Errors = make(map[string]string)
	}
}

// OutputKey builds the NamedOutputs key for a node's output slot.
func OutputKey(nodeID, slot string) string {
	return nodeID + "." + slot
}

// MarkCompleted records a successful node and its result.
func (s *Snapshot) MarkCompleted(nodeID string, result any) {
	s.Completed[nodeID] = true
	s.Results[nodeID] = result
}

// MarkFailed records a failed node and its error description.
func (s *Snapshot) MarkFailed(nodeID string, err error) {
	s.Failed[nodeID] = true
	if err != nil {
		s.Errors[nodeID] = err.Error()
	}
}

// SetNamedOutput records one named sub-output of a multi-output node.
func (s *Snapshot) SetNamedOutput(nodeID, slot string, value any) {
	s.NamedOutputs[OutputKey(nodeID, slot)] = value
}

// NamedOutput returns the recorded value of a node's output slot.
func (s *Snapshot) NamedOutput(nodeID, slot string) (any, bool) {
	v, ok := s.NamedOutputs[OutputKey(nodeID, slot)]
	return v, ok
}

// Done reports whether the node already completed or failed.
func (s *Snapshot) Done(nodeID string) bool {
	return s.Completed[nodeID] || s.Failed[nodeID]
}

// CompletedIDs returns the completed node ids in sorted order.
func (s *Snapshot) CompletedIDs() []string {
	return sortedKeys(s.Completed)
}

// FailedIDs returns the failed node ids in sorted order.
func (s *Snapshot) FailedIDs() []string {
	return sortedKeys(s.Failed)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
