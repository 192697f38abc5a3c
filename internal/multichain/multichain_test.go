package multichain

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchain-go/taskchain/internal/chain"
	"github.com/taskchain-go/taskchain/internal/taskdef"
	"github.com/taskchain-go/taskchain/internal/taskresolve"
)

type constTask struct{ calls *int }

func (t *constTask) Run(rc *taskdef.RunContext) (interface{}, error) {
	if t.calls != nil {
		*t.calls++
	}
	return map[string]interface{}{"value": rc.Params.Int("x")}, nil
}

var mapReturnType = reflect.TypeOf(map[string]interface{}{})

func newRegistry(calls *int) *taskresolve.Registry {
	r := taskresolve.NewRegistry()
	r.Register(&taskdef.TaskClass{
		DottedPath: "pipeline.ConstTask",
		Params:     []taskdef.ParamSpec{{Name: "x", HasDefault: true, Default: 0, Type: reflect.TypeOf(0)}},
		ReturnType: mapReturnType,
		New:        func() taskdef.Task { return &constTask{calls: calls} },
	})
	return r
}

func TestBuildMergesIdenticalFingerprintsAcrossMembers(t *testing.T) {
	calls := 0
	registry := newRegistry(&calls)
	root := t.TempDir()

	cfgA := chain.Config{
		ArtifactRootPath: root,
		ParameterMode:    true,
		ConfigSource:     "a.yaml",
		Data:             map[string]interface{}{"tasks": []interface{}{"pipeline.ConstTask"}, "x": 7},
	}
	cfgB := cfgA
	cfgB.ConfigSource = "b.yaml"

	mc, err := Build(context.Background(), []chain.Config{cfgA, cfgB}, registry, nil, 2)
	require.NoError(t, err)

	a, ok := mc.Member("a")
	require.True(t, ok)
	b, ok := mc.Member("b")
	require.True(t, ok)

	instA, ok := a.Task("const")
	require.True(t, ok)
	instB, ok := b.Task("const")
	require.True(t, ok)

	assert.Same(t, instA, instB, "identical-fingerprint instances across members should merge to one object")
}

func TestBuildRejectsParameterModeMismatch(t *testing.T) {
	calls := 0
	registry := newRegistry(&calls)
	root := t.TempDir()

	cfgA := chain.Config{
		ArtifactRootPath: root,
		ParameterMode:    true,
		ConfigSource:     "a.yaml",
		Data:             map[string]interface{}{"tasks": []interface{}{"pipeline.ConstTask"}, "x": 1},
	}
	cfgB := cfgA
	cfgB.ConfigSource = "b.yaml"
	cfgB.ParameterMode = false

	_, err := Build(context.Background(), []chain.Config{cfgA, cfgB}, registry, nil, 2)
	assert.Error(t, err)
}

func TestBuildRejectsDuplicateRootNames(t *testing.T) {
	calls := 0
	registry := newRegistry(&calls)
	root := t.TempDir()

	cfgA := chain.Config{
		ArtifactRootPath: root,
		ParameterMode:    true,
		ConfigSource:     "same.yaml",
		Data:             map[string]interface{}{"tasks": []interface{}{"pipeline.ConstTask"}, "x": 1},
	}
	cfgB := cfgA
	cfgB.Data = map[string]interface{}{"tasks": []interface{}{"pipeline.ConstTask"}, "x": 2}

	_, err := Build(context.Background(), []chain.Config{cfgA, cfgB}, registry, nil, 2)
	assert.Error(t, err)
}

func TestBuildMergeDoesNotCollapseDifferentParameters(t *testing.T) {
	calls := 0
	registry := newRegistry(&calls)
	root := t.TempDir()

	cfgA := chain.Config{
		ArtifactRootPath: root,
		ParameterMode:    true,
		ConfigSource:     "a.yaml",
		Data:             map[string]interface{}{"tasks": []interface{}{"pipeline.ConstTask"}, "x": 7},
	}
	cfgB := cfgA
	cfgB.ConfigSource = "b.yaml"
	cfgB.Data = map[string]interface{}{"tasks": []interface{}{"pipeline.ConstTask"}, "x": 9}

	mc, err := Build(context.Background(), []chain.Config{cfgA, cfgB}, registry, nil, 2)
	require.NoError(t, err)

	a, _ := mc.Member("a")
	b, _ := mc.Member("b")
	instA, _ := a.Task("const")
	instB, _ := b.Task("const")

	assert.NotSame(t, instA, instB, "distinct parameter values must not merge")
}
