package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchain-go/taskchain/internal/confignode"
	"github.com/taskchain-go/taskchain/internal/parameter"
	"github.com/taskchain-go/taskchain/internal/taskdef"
)

func taskA(x int) *taskdef.TaskInstance {
	node := &confignode.ConfigNode{Params: map[string]interface{}{}}
	return &taskdef.TaskInstance{
		FullName: "a",
		Config:   node,
		Class: &taskdef.TaskClass{
			DottedPath: "pipeline.ATask",
			Params:     []taskdef.ParamSpec{{Name: "x"}},
		},
		Params: map[string]interface{}{"x": x},
		Inputs: map[string]interface{}{},
	}
}

func TestFingerprintIgnoresIgnorePersistenceParameter(t *testing.T) {
	e := NewEngine()

	a1 := taskA(5)
	a2 := taskA(5)
	a2.Class = &taskdef.TaskClass{
		DottedPath: "pipeline.ATask",
		Params: []taskdef.ParamSpec{
			{Name: "x"},
			{Name: "verbose", IgnorePersistence: true},
		},
	}
	a2.Params["verbose"] = true

	fp1, err := e.Of(a1)
	require.NoError(t, err)
	fp2, err := e.Of(a2)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}

func TestFingerprintChangesWithParameterValue(t *testing.T) {
	e := NewEngine()
	fp1, err := e.Of(taskA(5))
	require.NoError(t, err)
	fp2, err := e.Of(taskA(6))
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp2)
}

func TestFingerprintDontPersistDefaultValueMatchesOmitted(t *testing.T) {
	e := NewEngine()

	withDefault := taskA(0)
	withDefault.Class = &taskdef.TaskClass{
		DottedPath: "pipeline.ATask",
		Params: []taskdef.ParamSpec{
			{Name: "x", HasDefault: true, Default: 0, DontPersistDefaultValue: true},
		},
	}

	omitted := taskA(0)
	omitted.Class = &taskdef.TaskClass{
		DottedPath: "pipeline.ATask",
		Params:     []taskdef.ParamSpec{},
	}

	fp1, err := e.Of(withDefault)
	require.NoError(t, err)
	fp2, err := e.Of(omitted)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}

func taskWithPath(t *testing.T, path string) *taskdef.TaskInstance {
	t.Helper()
	node := &confignode.ConfigNode{Params: map[string]interface{}{}}
	return &taskdef.TaskInstance{
		FullName: "p",
		Config:   node,
		Class: &taskdef.TaskClass{
			DottedPath: "pipeline.PathTask",
			Params:     []taskdef.ParamSpec{{Name: "src"}},
		},
		Params: map[string]interface{}{"src": parameter.FSPath(path)},
		Inputs: map[string]interface{}{},
	}
}

func TestFingerprintFSPathChangesWithFileContent(t *testing.T) {
	e := NewEngine()
	dir := t.TempDir()
	path := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	fp1, err := e.Of(taskWithPath(t, path))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
	fp2, err := e.Of(taskWithPath(t, path))
	require.NoError(t, err)

	assert.NotEqual(t, fp1, fp2, "editing the file at a fixed path should change the fingerprint")
}

func TestFingerprintIncludesInputFingerprint(t *testing.T) {
	e := NewEngine()

	a := taskA(5)
	b := taskA(5)
	b.FullName = "b"
	b.Class = &taskdef.TaskClass{
		DottedPath: "pipeline.BTask",
		Inputs:     []taskdef.InputSpec{{FieldName: "a"}},
	}
	b.Params = map[string]interface{}{}
	b.Inputs = map[string]interface{}{"a": a}

	aAlt := taskA(6)
	bAlt := taskA(5)
	bAlt.FullName = "b"
	bAlt.Class = b.Class
	bAlt.Params = map[string]interface{}{}
	bAlt.Inputs = map[string]interface{}{"a": aAlt}

	fp1, err := e.Of(b)
	require.NoError(t, err)
	fp2, err := e.Of(bAlt)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp2)
}
