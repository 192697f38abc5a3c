package datahandler

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchain-go/taskchain/internal/taskdef"
)

func TestJSONArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abc.json")

	h := JSONArtifact{}
	require.NoError(t, h.Save(path, map[string]interface{}{"x": float64(5)}))

	ok, err := h.Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := h.Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"x": float64(5)}, v)
}

func TestContinuableIsFinished(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "work")

	h := Continuable{}
	ok, err := h.IsFinished(path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.MarkFinished(path))
	ok, err = h.IsFinished(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStreamedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")

	h := Streamed{}
	stream := NewSliceStream([]interface{}{"a", "b", "c"})
	require.NoError(t, h.Save(path, stream))

	loaded, err := h.Load(path)
	require.NoError(t, err)
	reader := loaded.(Stream)

	var items []interface{}
	for {
		item, ok, err := reader.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		items = append(items, item)
	}
	assert.Equal(t, []interface{}{"a", "b", "c"}, items)
}

func TestDirectorySaveRenamesInPlace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scratch")
	dst := filepath.Join(dir, "final")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0o644))

	h := Directory{}
	require.NoError(t, h.Save(dst, DirHandle{Path: src}))

	data, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "rename should have moved the scratch directory")
}

func TestRecursiveCopyDirCopiesNestedFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scratch")
	dst := filepath.Join(dir, "final")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "b.txt"), []byte("b"), 0o644))

	require.NoError(t, recursiveCopyDir(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "nested", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
	_, err = os.Stat(filepath.Join(src, "nested", "b.txt"))
	assert.NoError(t, err, "recursiveCopyDir alone should leave the source untouched")
}

func TestSelectDispatchesOnReturnType(t *testing.T) {
	assert.IsType(t, JSONArtifact{}, Select(&taskdef.TaskClass{ReturnType: reflect.TypeOf(map[string]interface{}{})}))
	assert.IsType(t, Directory{}, Select(&taskdef.TaskClass{ReturnType: reflect.TypeOf(DirHandle{})}))
	assert.IsType(t, InMemory{}, Select(&taskdef.TaskClass{}))
	assert.IsType(t, Continuable{}, Select(&taskdef.TaskClass{DataClass: "continuable"}))
}
