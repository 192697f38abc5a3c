package chaincli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchain-go/taskchain/internal/parameter"
	"github.com/taskchain-go/taskchain/internal/taskchainconfig"
)

func TestGraphCommandRequiresConfig(t *testing.T) {
	cmd := &GraphCommand{
		App:    &App{Registry: newAddRegistry(), Objects: parameter.NewObjectRegistry()},
		Config: &taskchainconfig.Config{Logger: hclog.NewNullLogger()},
		Ui:     testUi(),
	}
	assert.Equal(t, 1, cmd.Run(nil))
}

func TestGraphCommandWritesDotToStdoutByDefault(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "chain.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("tasks:\n  - pipeline.AddTask\na: 1\nb: 1\n"), 0o644))

	cmd := &GraphCommand{
		App:    &App{Registry: newAddRegistry(), Objects: parameter.NewObjectRegistry()},
		Config: &taskchainconfig.Config{Logger: hclog.NewNullLogger(), ArtifactRootPath: filepath.Join(dir, "artifacts")},
		Ui:     testUi(),
	}
	exitCode := cmd.Run([]string{"--config=" + configPath})
	assert.Equal(t, 0, exitCode)
}
