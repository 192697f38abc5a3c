package chaincli

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchain-go/taskchain/internal/chain"
	"github.com/taskchain-go/taskchain/internal/parameter"
	"github.com/taskchain-go/taskchain/internal/taskchainconfig"
	"github.com/taskchain-go/taskchain/internal/taskdef"
	"github.com/taskchain-go/taskchain/internal/taskresolve"
)

type countingAddTask struct{ calls *int }

func (t countingAddTask) Run(rc *taskdef.RunContext) (interface{}, error) {
	*t.calls++
	return map[string]interface{}{"sum": rc.Params.Int("a") + rc.Params.Int("b")}, nil
}

func newCountingAddRegistry(calls *int) *taskresolve.Registry {
	r := taskresolve.NewRegistry()
	r.Register(&taskdef.TaskClass{
		DottedPath: "pipeline.AddTask",
		Params: []taskdef.ParamSpec{
			{Name: "a", HasDefault: true, Default: 0, Type: reflect.TypeOf(0)},
			{Name: "b", HasDefault: true, Default: 0, Type: reflect.TypeOf(0)},
		},
		ReturnType: reflect.TypeOf(map[string]interface{}{}),
		New:        func() taskdef.Task { return countingAddTask{calls: calls} },
	})
	return r
}

func TestForceCommandRequiresConfig(t *testing.T) {
	cmd := &ForceCommand{
		App:    &App{Registry: newAddRegistry(), Objects: parameter.NewObjectRegistry()},
		Config: &taskchainconfig.Config{Logger: hclog.NewNullLogger()},
		Ui:     testUi(),
	}
	assert.Equal(t, 1, cmd.Run(nil))
}

func TestForceCommandMarksTaskForRecomputation(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "chain.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("tasks:\n  - pipeline.AddTask\na: 2\nb: 3\n"), 0o644))

	artifactRoot := filepath.Join(dir, "artifacts")
	calls := 0
	registry := newCountingAddRegistry(&calls)
	objects := parameter.NewObjectRegistry()

	c, err := chain.New(chain.Config{
		ArtifactRootPath: artifactRoot,
		ConfigSource:     configPath,
		ParameterMode:    true,
	}, registry, objects)
	require.NoError(t, err)
	_, err = c.Value(context.Background(), "add")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "first evaluation should run the task")

	cmd := &ForceCommand{
		App:    &App{Registry: newCountingAddRegistry(&calls), Objects: objects},
		Config: &taskchainconfig.Config{Logger: hclog.NewNullLogger(), ArtifactRootPath: artifactRoot},
		Ui:     testUi(),
	}
	exitCode := cmd.Run([]string{"--config=" + configPath, "add"})
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, 2, calls, "force should have recomputed the task")
}
