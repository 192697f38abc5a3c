package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchain-go/taskchain/internal/confignode"
	"github.com/taskchain-go/taskchain/internal/datahandler"
	"github.com/taskchain-go/taskchain/internal/fingerprint"
	"github.com/taskchain-go/taskchain/internal/taskdef"
)

// fakeChain implements ChainContext over a temp directory, standing in
// for the not-yet-built internal/chain.Chain.
type fakeChain struct {
	dir    string
	logger hclog.Logger
	engine *fingerprint.Engine
}

func newFakeChain(t *testing.T) *fakeChain {
	return &fakeChain{
		dir:    t.TempDir(),
		logger: hclog.NewNullLogger(),
		engine: fingerprint.NewEngine(),
	}
}

func (c *fakeChain) DataPath(inst *taskdef.TaskInstance) (string, error) {
	return filepath.Join(c.dir, inst.FullName+inst.Handler.Ext()), nil
}

func (c *fakeChain) RunInfoPath(inst *taskdef.TaskInstance) (string, error) {
	return filepath.Join(c.dir, inst.FullName+".log"), nil
}

func (c *fakeChain) LogPath(inst *taskdef.TaskInstance) (string, error) {
	return filepath.Join(c.dir, inst.FullName+".out"), nil
}

func (c *fakeChain) Fingerprint(inst *taskdef.TaskInstance) (fingerprint.Digest, error) {
	return c.engine.Of(inst)
}

func (c *fakeChain) ConfigName(inst *taskdef.TaskInstance) string {
	return inst.Config.Name
}

func (c *fakeChain) Logger() hclog.Logger { return c.logger }

type addTask struct {
	calls *int
}

func (t *addTask) Run(rc *taskdef.RunContext) (interface{}, error) {
	if t.calls != nil {
		*t.calls++
	}
	a := rc.Params.Int("a")
	b := rc.Params.Int("b")
	return map[string]interface{}{"sum": a + b}, nil
}

func newInstance(name string, params map[string]interface{}) *taskdef.TaskInstance {
	return &taskdef.TaskInstance{
		Class: &taskdef.TaskClass{
			DottedPath: "pipeline." + name,
			New:        func() taskdef.Task { return &addTask{} },
		},
		Config:   &confignode.ConfigNode{Name: name},
		FullName: name,
		Params:   params,
		Inputs:   map[string]interface{}{},
		Handler:  datahandler.JSONArtifact{},
	}
}

func TestValueRunsAndPersists(t *testing.T) {
	cc := newFakeChain(t)
	inst := newInstance("sum", map[string]interface{}{"a": 2, "b": 3})

	v, err := Value(context.Background(), cc, inst)
	require.NoError(t, err)
	m := v.(map[string]interface{})
	assert.EqualValues(t, 5, m["sum"])

	path, err := cc.DataPath(inst)
	require.NoError(t, err)
	exists, err := inst.Handler.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestValueCachesInMemory(t *testing.T) {
	cc := newFakeChain(t)
	calls := 0
	inst := newInstance("sum", map[string]interface{}{"a": 1, "b": 1})
	inst.Class.New = func() taskdef.Task { return &addTask{calls: &calls} }

	_, err := Value(context.Background(), cc, inst)
	require.NoError(t, err)
	_, err = Value(context.Background(), cc, inst)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second Value call should hit the in-memory cache, not re-run")
}

func TestValueSkipsRecomputeWhenArtifactFinished(t *testing.T) {
	cc := newFakeChain(t)
	calls := 0
	inst := newInstance("sum", map[string]interface{}{"a": 1, "b": 1})
	inst.Class.New = func() taskdef.Task { return &addTask{calls: &calls} }

	_, err := Value(context.Background(), cc, inst)
	require.NoError(t, err)

	inst.ClearCachedValue()
	_, err = Value(context.Background(), cc, inst)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "a finished artifact on disk should be loaded, not recomputed")
}

func TestValueForceRecomputes(t *testing.T) {
	cc := newFakeChain(t)
	calls := 0
	inst := newInstance("sum", map[string]interface{}{"a": 1, "b": 1})
	inst.Class.New = func() taskdef.Task { return &addTask{calls: &calls} }

	_, err := Value(context.Background(), cc, inst)
	require.NoError(t, err)

	inst.Force(false)
	_, err = Value(context.Background(), cc, inst)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestValueEvaluatesInputsBeforeOwner(t *testing.T) {
	cc := newFakeChain(t)
	base := newInstance("base", map[string]interface{}{"a": 10, "b": 0})
	owner := newInstance("owner", map[string]interface{}{"a": 0, "b": 0})
	owner.Class.Inputs = []taskdef.InputSpec{{FieldName: "prior"}}
	owner.Inputs["prior"] = base
	owner.Class.New = func() taskdef.Task { return &passthroughTask{} }

	v, err := Value(context.Background(), cc, owner)
	require.NoError(t, err)
	m := v.(map[string]interface{})
	prior := m["prior"].(map[string]interface{})
	assert.EqualValues(t, 10, prior["sum"])
}

type passthroughTask struct{}

func (passthroughTask) Run(rc *taskdef.RunContext) (interface{}, error) {
	prior, _ := rc.Inputs.Get("prior")
	return map[string]interface{}{"prior": prior}, nil
}
