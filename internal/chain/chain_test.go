package chain

import (
	"bytes"
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchain-go/taskchain/internal/taskdef"
	"github.com/taskchain-go/taskchain/internal/taskresolve"
)

type sumTask struct{ calls *int }

func (t *sumTask) Run(rc *taskdef.RunContext) (interface{}, error) {
	if t.calls != nil {
		*t.calls++
	}
	return map[string]interface{}{"sum": rc.Params.Int("a") + rc.Params.Int("b")}, nil
}

type doubleTask struct{ calls *int }

func (t *doubleTask) Run(rc *taskdef.RunContext) (interface{}, error) {
	if t.calls != nil {
		*t.calls++
	}
	base, _ := rc.Inputs.Get("base")
	sum := base.(map[string]interface{})["sum"].(int)
	return map[string]interface{}{"doubled": sum * 2}, nil
}

var mapReturnType = reflect.TypeOf(map[string]interface{}{})

func newTestRegistry(sumCalls, doubleCalls *int) *taskresolve.Registry {
	r := taskresolve.NewRegistry()
	r.Register(&taskdef.TaskClass{
		DottedPath: "pipeline.SumTask",
		Params: []taskdef.ParamSpec{
			{Name: "a", HasDefault: true, Default: 0, Type: reflect.TypeOf(0)},
			{Name: "b", HasDefault: true, Default: 0, Type: reflect.TypeOf(0)},
		},
		ReturnType: mapReturnType,
		New:        func() taskdef.Task { return &sumTask{calls: sumCalls} },
	})
	r.Register(&taskdef.TaskClass{
		DottedPath: "pipeline.DoubleTask",
		Inputs:     []taskdef.InputSpec{{FieldName: "base", Ref: "sum"}},
		ReturnType: mapReturnType,
		New:        func() taskdef.Task { return &doubleTask{calls: doubleCalls} },
	})
	return r
}

func TestChainValueComputesAndPersists(t *testing.T) {
	sumCalls, doubleCalls := 0, 0
	registry := newTestRegistry(&sumCalls, &doubleCalls)

	c, err := New(Config{
		ArtifactRootPath: t.TempDir(),
		ParameterMode:    true,
		Data: map[string]interface{}{
			"tasks": []interface{}{"pipeline.SumTask", "pipeline.DoubleTask"},
			"a":     2,
			"b":     3,
		},
	}, registry, nil)
	require.NoError(t, err)

	v, err := c.Value(context.Background(), "double")
	require.NoError(t, err)
	assert.EqualValues(t, 10, v.(map[string]interface{})["doubled"])

	inst, ok := c.Task("sum")
	require.True(t, ok)
	assert.True(t, c.HasData(inst))
}

func TestChainForcePropagatesToDependents(t *testing.T) {
	sumCalls, doubleCalls := 0, 0
	registry := newTestRegistry(&sumCalls, &doubleCalls)

	cfg := Config{
		ArtifactRootPath: t.TempDir(),
		ParameterMode:    true,
		Data: map[string]interface{}{
			"tasks": []interface{}{"pipeline.SumTask", "pipeline.DoubleTask"},
			"a":     2,
			"b":     3,
		},
	}
	c, err := New(cfg, registry, nil)
	require.NoError(t, err)

	_, err = c.Value(context.Background(), "double")
	require.NoError(t, err)
	assert.Equal(t, 1, sumCalls)
	assert.Equal(t, 1, doubleCalls)

	require.NoError(t, c.Force([]string{"sum"}, true, false))

	_, err = c.Value(context.Background(), "double")
	require.NoError(t, err)
	assert.Equal(t, 2, sumCalls, "forcing sum should recompute it")
	assert.Equal(t, 2, doubleCalls, "forcing sum should propagate to its dependent double")
}

func TestChainRunInfoReadsBackSidecar(t *testing.T) {
	sumCalls, doubleCalls := 0, 0
	registry := newTestRegistry(&sumCalls, &doubleCalls)

	c, err := New(Config{
		ArtifactRootPath: t.TempDir(),
		ParameterMode:    true,
		Data: map[string]interface{}{
			"tasks": []interface{}{"pipeline.SumTask", "pipeline.DoubleTask"},
			"a":     2,
			"b":     3,
		},
	}, registry, nil)
	require.NoError(t, err)

	_, err = c.Value(context.Background(), "sum")
	require.NoError(t, err)

	inst, ok := c.Task("sum")
	require.True(t, ok)

	info, err := c.RunInfo(inst)
	require.NoError(t, err)
	assert.Equal(t, "pipeline.SumTask", info.TaskClass)
	assert.False(t, info.Started.IsZero())
}

func TestChainLogStreamsSidecarContent(t *testing.T) {
	sumCalls, doubleCalls := 0, 0
	registry := newTestRegistry(&sumCalls, &doubleCalls)

	c, err := New(Config{
		ArtifactRootPath: t.TempDir(),
		ParameterMode:    true,
		Data: map[string]interface{}{
			"tasks": []interface{}{"pipeline.SumTask", "pipeline.DoubleTask"},
			"a":     2,
			"b":     3,
		},
	}, registry, nil)
	require.NoError(t, err)

	inst, ok := c.Task("sum")
	require.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, c.Log(inst, &buf), "a task that never wrote its sidecar should stream nothing, not error")
	assert.Empty(t, buf.String())
}

func TestChainTasksDFListsEveryTask(t *testing.T) {
	sumCalls, doubleCalls := 0, 0
	registry := newTestRegistry(&sumCalls, &doubleCalls)

	c, err := New(Config{
		ArtifactRootPath: t.TempDir(),
		ParameterMode:    true,
		Data: map[string]interface{}{
			"tasks": []interface{}{"pipeline.SumTask", "pipeline.DoubleTask"},
			"a":     1,
			"b":     1,
		},
	}, registry, nil)
	require.NoError(t, err)

	rows := c.TasksDF()
	require.Len(t, rows, 2)
	assert.Equal(t, "double", rows[0].FullName)
	assert.Equal(t, "sum", rows[1].FullName)
}

func TestChainParameterModeOffUsesConfigName(t *testing.T) {
	sumCalls, doubleCalls := 0, 0
	registry := taskresolve.NewRegistry()
	registry.Register(&taskdef.TaskClass{
		DottedPath: "pipeline.SumTask",
		Params: []taskdef.ParamSpec{
			{Name: "a", HasDefault: true, Default: 0, Type: reflect.TypeOf(0)},
			{Name: "b", HasDefault: true, Default: 0, Type: reflect.TypeOf(0)},
		},
		ReturnType: mapReturnType,
		New:        func() taskdef.Task { return &sumTask{calls: &sumCalls} },
	})
	_ = doubleCalls

	c, err := New(Config{
		ArtifactRootPath: t.TempDir(),
		ParameterMode:    false,
		Data: map[string]interface{}{
			"tasks": []interface{}{"pipeline.SumTask"},
			"a":     1,
			"b":     1,
		},
	}, registry, nil)
	require.NoError(t, err)

	inst, ok := c.Task("sum")
	require.True(t, ok)
	path, err := c.DataPath(inst)
	require.NoError(t, err)
	assert.Contains(t, path, "inline.json")
}
