package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/taskgrid/internal/event"
	"github.com/vk/taskgrid/internal/executor"
	"github.com/vk/taskgrid/internal/graph"
	"github.com/vk/taskgrid/internal/snapshot"
	"github.com/vk/taskgrid/internal/task"
	"github.com/vk/taskgrid/internal/testutil"
)

func TestSingleNodeGraph(t *testing.T) {
	g, err := graph.NewBuilder("single").
		AddNode("only", testutil.PassTask("only"), nil).
		EntryNodes("only").
		ExitNodes("only").
		Build()
	require.NoError(t, err)

	ex := executor.New(g, executor.Options{})
	result, err := ex.Execute(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestLinearPipeline(t *testing.T) {
	g, err := graph.NewBuilder("linear").
		AddNode("A", testutil.AppendTask("A"), nil).
		AddNode("B", testutil.AppendTask("B"), nil).
		AddNode("C", testutil.AppendTask("C"), nil).
		Connect("A", "B", nil).
		Connect("B", "C", nil).
		EntryNodes("A").
		ExitNodes("C").
		Build()
	require.NoError(t, err)

	ex := executor.New(g, executor.Options{})
	run := ex.Invoke(context.Background(), []string{}, nil)
	events := testutil.Collect(run.Events())
	result, err := run.Wait()
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, result)
	assert.Equal(t, []string{"A", "B", "C"}, testutil.NodeIDs(events, event.TypeNodeStarting))

	last := events[len(events)-1]
	assert.Equal(t, event.TypeGraphCompleted, last.Type)
	assert.Equal(t, []string{"A", "B", "C"}, last.CompletedNodes)
	assert.Empty(t, last.FailedNodes)
}

func TestMultiOutputSplit(t *testing.T) {
	split := testutil.EchoTask("split", map[string]any{"p": 1, "q": 2})

	g, err := graph.NewBuilder("split").
		AddNode("S", split, &graph.NodeConfig{Outputs: []string{"p", "q"}}).
		AddNode("consumerP", testutil.PassTask("consumerP"), nil).
		AddNode("consumerQ", testutil.PassTask("consumerQ"), nil).
		Connect("S", "consumerP", &graph.ConnectConfig{FromOutput: "p"}).
		Connect("S", "consumerQ", &graph.ConnectConfig{FromOutput: "q"}).
		EntryNodes("S").
		ExitNodes("consumerP", "consumerQ").
		Build()
	require.NoError(t, err)

	ex := executor.New(g, executor.Options{})
	result, err := ex.Execute(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"consumerP": 1, "consumerQ": 2}, result)
}

func TestMissingExpectedOutput(t *testing.T) {
	split := testutil.EchoTask("split", map[string]any{"p": 1}) // q absent

	g, err := graph.NewBuilder("split").
		AddNode("S", split, &graph.NodeConfig{Outputs: []string{"p", "q"}}).
		EntryNodes("S").
		ExitNodes("S").
		Build()
	require.NoError(t, err)

	ex := executor.New(g, executor.Options{})
	_, err = ex.Execute(context.Background(), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrMissingOutput)
	assert.Contains(t, err.Error(), `"q"`)
}

func TestMultiSlotInputAssembly(t *testing.T) {
	joiner := task.NewFunc("join", func(_ context.Context, in task.Input) (any, error) {
		m := in.Value.(map[string]any)
		return []any{m["left"], m["right"]}, nil
	})

	g, err := graph.NewBuilder("join").
		AddNode("X", testutil.EchoTask("X", "x"), nil).
		AddNode("Y", testutil.EchoTask("Y", "y"), nil).
		AddNode("Z", joiner, &graph.NodeConfig{Inputs: []string{"left", "right"}}).
		Connect("X", "Z", &graph.ConnectConfig{ToInput: "left"}).
		Connect("Y", "Z", &graph.ConnectConfig{ToInput: "right"}).
		EntryNodes("X", "Y").
		ExitNodes("Z").
		Build()
	require.NoError(t, err)

	ex := executor.New(g, executor.Options{})
	result, err := ex.Execute(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, result)
}

func TestFanInSingleSlot(t *testing.T) {
	g := graph.New("fanin")
	require.NoError(t, g.AddNode("X", testutil.EchoTask("X", "x"), nil))
	require.NoError(t, g.AddNode("Y", testutil.EchoTask("Y", "y"), nil))
	require.NoError(t, g.AddNode("Z", testutil.PassTask("Z"), nil))
	require.NoError(t, g.Connect("X", "Z", nil))
	require.NoError(t, g.Connect("Y", "Z", nil))
	require.NoError(t, g.SetEntryNodes("X", "Y"))
	require.NoError(t, g.SetExitNodes("Z"))

	ex := executor.New(g, executor.Options{})
	result, err := ex.Execute(context.Background(), nil, nil)
	require.NoError(t, err)

	// Several edges into one slot deliver an ordered sequence of all
	// producer outputs.
	assert.Equal(t, []any{"x", "y"}, result)
}

func TestEdgeTransform(t *testing.T) {
	g := graph.New("transform")
	require.NoError(t, g.AddNode("A", testutil.EchoTask("A", 2), nil))
	require.NoError(t, g.AddNode("B", testutil.PassTask("B"), nil))
	require.NoError(t, g.Connect("A", "B", &graph.ConnectConfig{
		Transform: func(v any) any { return v.(int) * 10 },
	}))
	require.NoError(t, g.SetEntryNodes("A"))
	require.NoError(t, g.SetExitNodes("B"))

	ex := executor.New(g, executor.Options{})
	result, err := ex.Execute(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, result)
}

func TestDeadlockOnUnmappedSlot(t *testing.T) {
	g := graph.New("stuck")
	require.NoError(t, g.AddNode("start", testutil.PassTask("start"),
		&graph.NodeConfig{Inputs: []string{"left", "right"}}))
	require.NoError(t, g.SetEntryNodes("start"))
	require.NoError(t, g.SetExitNodes("start"))

	ex := executor.New(g, executor.Options{})
	run := ex.Invoke(context.Background(), nil, nil)
	events := testutil.Collect(run.Events())
	_, err := run.Wait()

	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrDeadlock)
	assert.Contains(t, err.Error(), `"start"`)
	assert.Contains(t, err.Error(), `"left"`)

	last := events[len(events)-1]
	assert.Equal(t, event.TypeGraphFailed, last.Type)
}

func TestNodeFailureAbortsRun(t *testing.T) {
	g := graph.New("failing")
	require.NoError(t, g.AddNode("A", testutil.EchoTask("A", "ok"), nil))
	require.NoError(t, g.AddNode("B", testutil.FailTask("B", "boom"), nil))
	require.NoError(t, g.AddNode("C", testutil.PassTask("C"), nil))
	require.NoError(t, g.Connect("A", "B", nil))
	require.NoError(t, g.Connect("B", "C", nil))
	require.NoError(t, g.SetEntryNodes("A"))
	require.NoError(t, g.SetExitNodes("C"))

	snap := snapshot.New()
	ex := executor.New(g, executor.Options{})
	run := ex.Invoke(context.Background(), nil, &executor.RunContext{Snapshot: snap})
	events := testutil.Collect(run.Events())
	_, err := run.Wait()

	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrNodeFailed)
	assert.Contains(t, err.Error(), "boom")

	// The terminal error event still fires, and completed work is retained
	// in the snapshot for a later resume.
	last := events[len(events)-1]
	assert.Equal(t, event.TypeGraphFailed, last.Type)
	assert.True(t, snap.Done("A"))
	assert.True(t, snap.Failed["B"])
	assert.False(t, snap.Done("C"))
}

func TestOptionalFailureMatchesOmittedNode(t *testing.T) {
	build := func(withFlaky bool) *graph.Graph {
		g := graph.New("opt", graph.WithContinueOnError())
		require.NoError(t, g.AddNode("A", testutil.EchoTask("A", "result"), nil))
		if withFlaky {
			require.NoError(t, g.AddNode("flaky", testutil.FailTask("flaky", "always down"),
				&graph.NodeConfig{Optional: true}))
			require.NoError(t, g.SetEntryNodes("A", "flaky"))
		} else {
			require.NoError(t, g.SetEntryNodes("A"))
		}
		require.NoError(t, g.SetExitNodes("A"))
		return g
	}

	withFlaky := executor.New(build(true), executor.Options{})
	run := withFlaky.Invoke(context.Background(), nil, nil)
	events := testutil.Collect(run.Events())
	got, err := run.Wait()
	require.NoError(t, err)

	without := executor.New(build(false), executor.Options{})
	want, err := without.Execute(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.GreaterOrEqual(t, testutil.CountType(events, event.TypeNodeFailed), 1)
	assert.Contains(t, testutil.NodeIDs(events, event.TypeNodeFailed), "flaky")
}

func TestRequiredDependencyFailurePropagates(t *testing.T) {
	g := graph.New("cascade", graph.WithContinueOnError())
	require.NoError(t, g.AddNode("A", testutil.FailTask("A", "boom"), nil))
	require.NoError(t, g.AddNode("B", testutil.PassTask("B"), nil))
	require.NoError(t, g.AddNode("C", testutil.EchoTask("C", "c"), nil))
	require.NoError(t, g.Connect("A", "B", nil))
	require.NoError(t, g.SetEntryNodes("A", "C"))
	require.NoError(t, g.SetExitNodes("C"))

	snap := snapshot.New()
	ex := executor.New(g, executor.Options{})
	result, err := ex.Execute(context.Background(), nil, &executor.RunContext{Snapshot: snap})
	require.NoError(t, err)
	assert.Equal(t, "c", result)

	// B was failed without running, with a synthesized dependency error.
	assert.True(t, snap.Failed["B"])
	assert.Contains(t, snap.Errors["B"], "dependency failed")
	assert.Contains(t, snap.Errors["B"], `"A"`)
}

func TestSharedContextForwarded(t *testing.T) {
	probe := task.NewFunc("probe", func(_ context.Context, in task.Input) (any, error) {
		return in.Shared, nil
	})
	g, err := graph.NewBuilder("shared").
		AddNode("probe", probe, nil).
		EntryNodes("probe").
		ExitNodes("probe").
		Build()
	require.NoError(t, err)

	ex := executor.New(g, executor.Options{})
	result, err := ex.Execute(context.Background(), nil, &executor.RunContext{Shared: "tenant-42"})
	require.NoError(t, err)
	assert.Equal(t, "tenant-42", result)
}

func TestTaskEventsAreTaggedAndOrdered(t *testing.T) {
	g, err := graph.NewBuilder("tagged").
		AddNode("chatty", testutil.EmitTask("chatty", "one", "two"), nil).
		EntryNodes("chatty").
		ExitNodes("chatty").
		Build()
	require.NoError(t, err)

	ex := executor.New(g, executor.Options{})
	run := ex.Invoke(context.Background(), nil, nil)
	events := testutil.Collect(run.Events())
	_, err = run.Wait()
	require.NoError(t, err)

	start := testutil.IndexOf(events, event.TypeNodeStarting, "chatty")
	done := testutil.IndexOf(events, event.TypeNodeCompleted, "chatty")
	require.GreaterOrEqual(t, start, 0)
	require.Greater(t, done, start)

	var logs []event.Event
	for _, ev := range events {
		if ev.Type == event.TypeLog {
			logs = append(logs, ev)
		}
	}
	require.Len(t, logs, 2)
	assert.Equal(t, "one", logs[0].Message)
	assert.Equal(t, "two", logs[1].Message)
	for i, ev := range logs {
		assert.Equal(t, "chatty", ev.NodeID, "log %d", i)
		assert.Equal(t, "tagged", ev.Graph, "log %d", i)
		assert.False(t, ev.Timestamp.IsZero(), "log %d", i)
	}
	idx := testutil.IndexOf(events, event.TypeLog, "chatty")
	assert.Greater(t, idx, start)
	assert.Less(t, idx, done)
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	g, err := graph.NewBuilder("cancel").
		AddNode("slow", testutil.SleepTask("slow", 5*time.Second, "never"), nil).
		EntryNodes("slow").
		ExitNodes("slow").
		Build()
	require.NoError(t, err)

	ex := executor.New(g, executor.Options{Parallel: true, Workers: 2})
	run := ex.Invoke(ctx, nil, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	events := testutil.Collect(run.Events())
	_, err = run.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrAborted)

	last := events[len(events)-1]
	assert.Equal(t, event.TypeGraphFailed, last.Type)
}
