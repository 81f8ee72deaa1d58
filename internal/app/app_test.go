package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/task"
)

func writePipeline(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestRunPrintsResultJSON(t *testing.T) {
	path := writePipeline(t, `
pipeline "hello" {
  entry = ["greet"]
  exit  = ["greet"]

  node "greet" "print" {}
}
`)

	out := &bytes.Buffer{}
	errW := &bytes.Buffer{}
	cfg, err := NewConfig(Config{PipelinePath: path, Input: `{"who": "world"}`})
	require.NoError(t, err)

	require.NoError(t, NewApp(out, errW, cfg).Run(context.Background()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "hello", doc["pipeline"])
	assert.Equal(t, map[string]any{"who": "world"}, doc["result"])
}

func TestRunRequiresKnownTaskTypes(t *testing.T) {
	path := writePipeline(t, `
pipeline "bad" {
  entry = ["x"]
  exit  = ["x"]

  node "x" "no_such_task" {}
}
`)

	cfg, err := NewConfig(Config{PipelinePath: path})
	require.NoError(t, err)

	err = NewApp(&bytes.Buffer{}, &bytes.Buffer{}, cfg).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"no_such_task"`)
}

type countingModule struct {
	runs *atomic.Int64
}

func (m countingModule) Register(r *registry.Registry) {
	r.Register("counting", func(map[string]any) (task.Task, error) {
		return task.NewFunc("counting", func(context.Context, task.Input) (any, error) {
			return m.runs.Add(1), nil
		}), nil
	})
}

func TestRunResumesFromSnapshotDir(t *testing.T) {
	path := writePipeline(t, `
pipeline "counted" {
  entry = ["tick"]
  exit  = ["tick"]

  node "tick" "counting" {}
}
`)
	snapDir := t.TempDir()

	var runs atomic.Int64
	mod := countingModule{runs: &runs}

	cfg, err := NewConfig(Config{PipelinePath: path, SnapshotDir: snapDir})
	require.NoError(t, err)

	require.NoError(t, NewApp(&bytes.Buffer{}, &bytes.Buffer{}, cfg, mod).Run(context.Background()))
	assert.EqualValues(t, 1, runs.Load())
	assert.FileExists(t, filepath.Join(snapDir, "counted.json"))

	// Second process run resumes from the stored snapshot: the node is
	// already completed and must not execute again.
	require.NoError(t, NewApp(&bytes.Buffer{}, &bytes.Buffer{}, cfg, mod).Run(context.Background()))
	assert.EqualValues(t, 1, runs.Load())
}

func TestRunNoPipelinesFound(t *testing.T) {
	dir := t.TempDir()

	cfg, err := NewConfig(Config{PipelinePath: dir})
	require.NoError(t, err)

	require.NoError(t, NewApp(&bytes.Buffer{}, &bytes.Buffer{}, cfg).Run(context.Background()))
}
