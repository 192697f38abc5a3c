package chaincli

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchain-go/taskchain/internal/parameter"
	"github.com/taskchain-go/taskchain/internal/taskchainconfig"
	"github.com/taskchain-go/taskchain/internal/taskdef"
	"github.com/taskchain-go/taskchain/internal/taskresolve"
)

func TestParseRunArgs(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want *runArgs
	}{
		{
			"bare task names",
			[]string{"foo", "bar"},
			&runArgs{tasks: []string{"foo", "bar"}},
		},
		{
			"config and context flags",
			[]string{"--config=chain.yaml", "--context=ctx.yaml", "--part=main"},
			&runArgs{configPath: "chain.yaml", contexts: []string{"ctx.yaml"}, part: "main"},
		},
		{
			"force and delete-data",
			[]string{"--force", "--delete-data", "task"},
			&runArgs{tasks: []string{"task"}, force: true, deleteData: true},
		},
		{
			"profile",
			[]string{"--profile=trace.json"},
			&runArgs{profile: "trace.json"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseRunArgs(tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRunArgsRejectsUnknownFlag(t *testing.T) {
	_, err := parseRunArgs([]string{"--bogus"})
	assert.Error(t, err)
}

type addTask struct{}

func (addTask) Run(rc *taskdef.RunContext) (interface{}, error) {
	return map[string]interface{}{"sum": rc.Params.Int("a") + rc.Params.Int("b")}, nil
}

func newAddRegistry() *taskresolve.Registry {
	r := taskresolve.NewRegistry()
	r.Register(&taskdef.TaskClass{
		DottedPath: "pipeline.AddTask",
		Params: []taskdef.ParamSpec{
			{Name: "a", HasDefault: true, Default: 0, Type: reflect.TypeOf(0)},
			{Name: "b", HasDefault: true, Default: 0, Type: reflect.TypeOf(0)},
		},
		ReturnType: reflect.TypeOf(map[string]interface{}{}),
		New:        func() taskdef.Task { return addTask{} },
	})
	return r
}

func testUi() *cli.ColoredUi {
	return &cli.ColoredUi{
		Ui: &cli.BasicUi{
			Reader:      bytes.NewReader(nil),
			Writer:      &bytes.Buffer{},
			ErrorWriter: &bytes.Buffer{},
		},
		OutputColor: cli.UiColorNone,
		InfoColor:   cli.UiColorNone,
		WarnColor:   cli.UiColorNone,
		ErrorColor:  cli.UiColorNone,
	}
}

func TestRunCommandEvaluatesConfigTasks(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "chain.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("tasks:\n  - pipeline.AddTask\na: 2\nb: 3\n"), 0o644))

	cmd := &RunCommand{
		App: &App{Registry: newAddRegistry(), Objects: parameter.NewObjectRegistry()},
		Config: &taskchainconfig.Config{
			Logger:           hclog.NewNullLogger(),
			ArtifactRootPath: filepath.Join(dir, "artifacts"),
			Concurrency:      2,
		},
		Ui: testUi(),
	}

	exitCode := cmd.Run([]string{"--config=" + configPath, "add"})
	assert.Equal(t, 0, exitCode)
}

func TestRunCommandRequiresConfig(t *testing.T) {
	cmd := &RunCommand{
		App: &App{Registry: newAddRegistry(), Objects: parameter.NewObjectRegistry()},
		Config: &taskchainconfig.Config{
			Logger: hclog.NewNullLogger(),
		},
		Ui: testUi(),
	}
	assert.Equal(t, 1, cmd.Run(nil))
}
