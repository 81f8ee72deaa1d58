package executor

import "errors"

var (
	// ErrDeadlock is returned when no node is ready yet at least one node
	// remains neither completed nor failed.
	ErrDeadlock = errors.New("execution deadlock")

	// ErrNodeFailed wraps the error of the node whose failure aborted a run.
	ErrNodeFailed = errors.New("node failed")

	// ErrDependencyFailed marks a node that was failed without running
	// because a required upstream dependency failed.
	ErrDependencyFailed = errors.New("dependency failed")

	// ErrMissingOutput is raised when a multi-output node's result lacks a
	// declared output slot.
	ErrMissingOutput = errors.New("missing expected output")

	// ErrExitIncomplete is raised by output assembly when an exit node did
	// not complete.
	ErrExitIncomplete = errors.New("exit node incomplete")

	// ErrAborted marks a failure caused by cancellation.
	ErrAborted = errors.New("aborted")
)
