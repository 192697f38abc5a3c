package chainlog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkCreatesParentDirAndWritesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "task.log")

	sink, err := Open(path)
	require.NoError(t, err)

	_, err = sink.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(b))
}

func TestNewLoggerWritesToSink(t *testing.T) {
	var sink bytes.Buffer
	logger := NewLogger("task:build", hclog.Debug, &sink)
	logger.Info("running")

	assert.Contains(t, sink.String(), "running")
	assert.Contains(t, sink.String(), "task:build")
}

func TestReplayStreamsExistingFileLineByLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.log")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\n"), 0o644))

	var dst bytes.Buffer
	require.NoError(t, Replay(path, &dst))

	assert.Equal(t, "line one\nline two\n", dst.String())
}

func TestReplayOfMissingFileIsNotAnError(t *testing.T) {
	var dst bytes.Buffer
	err := Replay(filepath.Join(t.TempDir(), "missing.log"), &dst)
	require.NoError(t, err)
	assert.Empty(t, dst.String())
}
