// Package testutil provides reusable fake tasks and event helpers for
// engine tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/taskgrid/internal/event"
	"github.com/vk/taskgrid/internal/task"
)

// AppendTask returns a pass-through task that appends its id to a []string
// input, so a test can read off the execution order.
func AppendTask(id string) task.Task {
	return task.NewFunc(id, func(_ context.Context, in task.Input) (any, error) {
		values, _ := in.Value.([]string)
		return append(append([]string(nil), values...), id), nil
	})
}

// EchoTask returns a task that ignores its input and returns a fixed result.
func EchoTask(name string, result any) task.Task {
	return task.NewFunc(name, func(_ context.Context, _ task.Input) (any, error) {
		return result, nil
	})
}

// PassTask returns a task that returns its input unchanged.
func PassTask(name string) task.Task {
	return task.NewFunc(name, func(_ context.Context, in task.Input) (any, error) {
		return in.Value, nil
	})
}

// FailTask returns a task that always fails with the given message.
func FailTask(name, message string) task.Task {
	return task.NewFunc(name, func(_ context.Context, _ task.Input) (any, error) {
		return nil, fmt.Errorf("%s", message)
	})
}

// SleepTask returns a task that simulates work for d before returning
// result, aborting early when the context is canceled.
func SleepTask(name string, d time.Duration, result any) task.Task {
	return task.NewFunc(name, func(ctx context.Context, _ task.Input) (any, error) {
		select {
		case <-time.After(d):
			return result, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

// EmitTask returns a pass-through task that emits the given log messages as
// progress events before returning.
func EmitTask(name string, messages ...string) task.Task {
	return task.NewFunc(name, func(_ context.Context, in task.Input) (any, error) {
		for _, m := range messages {
			in.Send(event.Log("info", m))
		}
		return in.Value, nil
	})
}

// CallRecorder tracks invocation order across tasks.
type CallRecorder struct {
	mu    sync.Mutex
	calls []string
}

// Record wraps t so each invocation is appended to the recorder before the
// underlying task runs.
func (r *CallRecorder) Record(id string, t task.Task) task.Task {
	return task.NewFunc(id, func(ctx context.Context, in task.Input) (any, error) {
		r.mu.Lock()
		r.calls = append(r.calls, id)
		r.mu.Unlock()
		return t.Run(ctx, in)
	})
}

// Calls returns the recorded invocation order.
func (r *CallRecorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
