package envtask

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/taskgrid/internal/task"
)

func TestReadsEnvironment(t *testing.T) {
	t.Setenv("TASKGRID_TEST_VAR", "hello")

	tk, err := New(nil)
	require.NoError(t, err)

	out, err := tk.Run(context.Background(), task.Input{})
	require.NoError(t, err)

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", m["TASKGRID_TEST_VAR"])
}

func TestPrefixFilterStripsPrefix(t *testing.T) {
	t.Setenv("TG_APP_NAME", "svc")
	t.Setenv("TG_APP_PORT", "8080")
	t.Setenv("UNRELATED", "x")

	tk, err := New(map[string]any{"prefix": "TG_APP_"})
	require.NoError(t, err)

	out, err := tk.Run(context.Background(), task.Input{})
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.Equal(t, map[string]any{"NAME": "svc", "PORT": "8080"}, m)
}
