package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/taskgrid/internal/executor"
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/schema"
	"github.com/vk/taskgrid/internal/task"
)

func testRegistry() *registry.Registry {
	r := registry.New()
	r.Register("const", func(args map[string]any) (task.Task, error) {
		value := args["value"]
		return task.NewFunc("const", func(context.Context, task.Input) (any, error) {
			return value, nil
		}), nil
	})
	r.Register("upper_pass", func(args map[string]any) (task.Task, error) {
		return task.NewFunc("upper_pass", func(_ context.Context, in task.Input) (any, error) {
			return in.Value, nil
		}), nil
	})
	return r
}

func writeManifest(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return dir
}

func TestLoadPathBuildsRunnableGraph(t *testing.T) {
	dir := writeManifest(t, `
pipeline "greeting" {
  entry = ["hello"]
  exit  = ["relay"]

  node "hello" "const" {
    output "output" {
      type = string
    }
    arguments {
      value = "hi there"
    }
  }

  node "relay" "upper_pass" {
    input "input" {
      type = string
    }
  }

  connect {
    from = "hello"
    to   = "relay"
  }
}
`)

	loader := NewLoader(testRegistry())
	graphs, err := loader.LoadPath(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, graphs, 1)

	g := graphs[0]
	assert.Equal(t, "greeting", g.Name())

	result, err := executor.New(g, executor.Options{}).Execute(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi there", result)
}

func TestLoadPathSlotDeclarations(t *testing.T) {
	dir := writeManifest(t, `
pipeline "slots" {
  entry = ["src"]
  exit  = ["join"]

  node "src" "const" {
    output "p" {}
    output "q" {}
    arguments {
      value = 1
    }
  }

  node "join" "upper_pass" {
    optional = true
    input "left" {
      type = number
    }
    input "right" {
      type = optional(number)
    }
  }

  connect {
    from        = "src"
    to          = "join"
    from_output = "p"
    to_input    = "left"
  }
  connect {
    from        = "src"
    to          = "join"
    from_output = "q"
    to_input    = "right"
  }
}
`)

	loader := NewLoader(testRegistry())
	graphs, err := loader.LoadPath(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, graphs, 1)

	n, ok := graphs[0].Node("join")
	require.True(t, ok)
	assert.True(t, n.Optional)
	assert.Equal(t, []string{"left", "right"}, n.Inputs)
	require.NotNil(t, n.InputTypes["left"])
	assert.Equal(t, schema.KindNumber, n.InputTypes["left"].Kind)
	assert.True(t, n.InputTypes["right"].Optional)

	src, ok := graphs[0].Node("src")
	require.True(t, ok)
	assert.True(t, src.MultiOutput())
}

func TestLoadPathUnknownTaskType(t *testing.T) {
	dir := writeManifest(t, `
pipeline "broken" {
  node "x" "no_such_task" {}
}
`)

	loader := NewLoader(testRegistry())
	_, err := loader.LoadPath(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"no_such_task"`)
	assert.Contains(t, err.Error(), `pipeline "broken"`)
}

func TestLoadPathArgumentsDecoding(t *testing.T) {
	dir := writeManifest(t, `
pipeline "args" {
  entry = ["src"]
  exit  = ["src"]

  node "src" "const" {
    arguments {
      value = {
        name  = "svc"
        port  = 8080
        tags  = ["a", "b"]
        ratio = 0.5
      }
    }
  }
}
`)

	loader := NewLoader(testRegistry())
	graphs, err := loader.LoadPath(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, graphs, 1)

	result, err := executor.New(graphs[0], executor.Options{}).Execute(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":  "svc",
		"port":  8080,
		"tags":  []any{"a", "b"},
		"ratio": 0.5,
	}, result)
}

func TestLoadPathMissingEntryNodes(t *testing.T) {
	dir := writeManifest(t, `
pipeline "incomplete" {
  node "x" "upper_pass" {}
}
`)

	loader := NewLoader(testRegistry())
	_, err := loader.LoadPath(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entry nodes")
}
