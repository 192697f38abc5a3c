// Package chain ties the Config Loader, Task Resolver, Parameter
// Binder, Dependency Linker, Fingerprint Engine, and Data Handler Layer
// into the single Chain object spec §6 describes as the construction
// surface consumed by the enclosing application. It implements
// engine.ChainContext so internal/engine can drive evaluation without
// importing this package.
package chain

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	mapset "github.com/deckarep/golang-set"
	"github.com/gosimple/slug"
	"github.com/hashicorp/go-hclog"
	"github.com/pyr-sh/dag"

	"github.com/taskchain-go/taskchain/internal/chaindag"
	"github.com/taskchain-go/taskchain/internal/chainlog"
	"github.com/taskchain-go/taskchain/internal/confignode"
	"github.com/taskchain-go/taskchain/internal/datahandler"
	"github.com/taskchain-go/taskchain/internal/engine"
	"github.com/taskchain-go/taskchain/internal/fingerprint"
	"github.com/taskchain-go/taskchain/internal/parameter"
	"github.com/taskchain-go/taskchain/internal/remotemirror"
	"github.com/taskchain-go/taskchain/internal/taskdef"
	"github.com/taskchain-go/taskchain/internal/taskresolve"
)

// Config is the construction surface spec §6 names: "construct a
// Config from (artifact_root_path, config_source, global_vars, context,
// part, data)".
type Config struct {
	ArtifactRootPath string
	ConfigSource     string
	GlobalVars       map[string]interface{}
	Context          []confignode.Source
	Part             string
	Data             map[string]interface{}

	// ParameterMode toggles the artifact-naming scheme (spec §6): on by
	// default, filenames key off the task's fingerprint; off, they key
	// off the owning config's name.
	ParameterMode bool

	// RemoteMirror optionally layers a remote content-addressed store
	// behind every task's local handler (spec §9 enrichment). Nil
	// disables remote mirroring entirely.
	RemoteMirror *remotemirror.Client
}

// Chain materializes one Config into a resolved, linked, fingerprinted
// task graph, ready for evaluation.
type Chain struct {
	root     *confignode.ConfigNode
	resolved *taskresolve.Resolved
	graph    *dag.AcyclicGraph

	artifactRoot  string
	parameterMode bool

	fpEngine *fingerprint.Engine
	logger   hclog.Logger
}

// New loads src through registry and objects, producing a fully linked
// Chain. Binding, resolution, linking, and handler selection all
// happen here; nothing is deferred to first Value() call.
func New(cfg Config, registry *taskresolve.Registry, objects *parameter.ObjectRegistry) (*Chain, error) {
	src := confignode.Source{Path: cfg.ConfigSource, Data: cfg.Data, Part: cfg.Part}

	var root *confignode.ConfigNode
	var err error
	if len(cfg.Context) > 0 {
		root, err = confignode.LoadWithContexts(src, cfg.GlobalVars, cfg.Context)
	} else {
		root, err = confignode.Load(src, cfg.GlobalVars)
	}
	if err != nil {
		return nil, fmt.Errorf("chain: loading config: %w", err)
	}

	resolved, err := registry.Resolve(root)
	if err != nil {
		return nil, fmt.Errorf("chain: resolving tasks: %w", err)
	}

	binder := parameter.NewBinder(objects)
	for _, inst := range resolved.Instances {
		if err := binder.Bind(inst); err != nil {
			return nil, fmt.Errorf("chain: binding parameters: %w", err)
		}
		inst.Handler = remotemirror.Wrap(datahandler.Select(inst.Class), cfg.RemoteMirror)
	}

	graph, err := chaindag.Link(resolved)
	if err != nil {
		return nil, fmt.Errorf("chain: linking dependencies: %w", err)
	}

	c := &Chain{
		root:          root,
		resolved:      resolved,
		graph:         graph,
		artifactRoot:  cfg.ArtifactRootPath,
		parameterMode: cfg.ParameterMode,
		fpEngine:      fingerprint.NewEngine(),
		logger:        hclog.Default(),
	}
	for _, inst := range resolved.Instances {
		for _, v := range inst.Params {
			if co, ok := v.(taskdef.ChainObject); ok {
				co.SetChain(c)
			}
		}
	}
	return c, nil
}

// Graph exposes the linked dependency DAG (spec §4.4), for rendering
// with `chain graph` via pyr-sh/dag's Dot export.
func (c *Chain) Graph() *dag.AcyclicGraph { return c.graph }

// Task returns the TaskInstance by full name (spec §6: "attribute or
// subscript access by task name").
func (c *Chain) Task(name string) (*taskdef.TaskInstance, bool) {
	inst, ok := c.resolved.ByName[name]
	return inst, ok
}

// Tasks is the full-name → instance mapping spec §6 names `.tasks`.
func (c *Chain) Tasks() map[string]*taskdef.TaskInstance {
	return c.resolved.ByName
}

// Name is the owning root config's derived name, by which
// internal/multichain indexes member chains (spec §4.8: "indexed by
// their root config's name").
func (c *Chain) Name() string { return c.root.Name }

// Instances exposes every resolved TaskInstance, in resolution order.
// internal/multichain uses this, together with ReplaceInstance, to
// merge identical-fingerprint instances across member chains.
func (c *Chain) Instances() []*taskdef.TaskInstance {
	return c.resolved.Instances
}

// ReplaceInstance swaps the instance registered under fullName for
// canonical, used by internal/multichain's cross-chain merge (spec
// §4.8). Callers are still responsible for fixing up any other
// instance's Inputs map that referenced the old pointer.
func (c *Chain) ReplaceInstance(fullName string, canonical *taskdef.TaskInstance) {
	c.resolved.ByName[fullName] = canonical
	for i, inst := range c.resolved.Instances {
		if inst.FullName == fullName {
			c.resolved.Instances[i] = canonical
			return
		}
	}
}

// TasksSummary is one row of the `.tasks_df` tabular summary (spec
// §6). No dataframe library was retrieved anywhere in the pack, so this
// is rendered with the standard library's text/tabwriter rather than a
// third-party table/dataframe package — see DESIGN.md.
type TasksSummary struct {
	FullName  string
	Class     string
	Namespace string
	HasData   bool
}

// TasksDF summarizes every resolved task, sorted by full name for
// stable output.
func (c *Chain) TasksDF() []TasksSummary {
	rows := make([]TasksSummary, 0, len(c.resolved.Instances))
	for _, inst := range c.resolved.Instances {
		rows = append(rows, TasksSummary{
			FullName:  inst.FullName,
			Class:     inst.Class.DottedPath,
			Namespace: inst.Namespace,
			HasData:   c.hasData(inst),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].FullName < rows[j].FullName })
	return rows
}

// WriteTasksDF renders TasksDF as an aligned table, the same shape
// ui.go's tabwriter usage produces for the teacher's `turbo run --graph`
// text fallback.
func (c *Chain) WriteTasksDF(w *tabwriter.Writer) {
	fmt.Fprintln(w, "FULL NAME\tCLASS\tNAMESPACE\tHAS DATA")
	for _, row := range c.TasksDF() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", row.FullName, row.Class, row.Namespace, row.HasData)
	}
}

// Value evaluates name, recursively evaluating its inputs first (spec
// §4.7).
func (c *Chain) Value(ctx context.Context, name string) (interface{}, error) {
	inst, ok := c.Task(name)
	if !ok {
		return nil, fmt.Errorf("chain: no such task %q", name)
	}
	return engine.Value(ctx, c, inst)
}

// Force marks names (or every task, when names is empty) for
// recomputation, and propagates the mark to every downstream dependent
// unless recompute is false (spec §6: `.force(names, recompute, delete_data)`).
func (c *Chain) Force(names []string, recompute bool, deleteData bool) error {
	targets, err := c.selectTasks(names)
	if err != nil {
		return err
	}

	marked := mapset.NewSet()
	for _, inst := range targets {
		inst.Force(deleteData)
		marked.Add(inst.FullName)
	}

	if !recompute {
		return nil
	}

	// Downstream dependents: anything whose Inputs transitively
	// reference a marked task also needs recomputing, since its cached
	// fingerprint was derived from the now-stale upstream value.
	changed := true
	for changed {
		changed = false
		for _, inst := range c.resolved.Instances {
			if marked.Contains(inst.FullName) {
				continue
			}
			if c.dependsOnAny(inst, marked) {
				inst.Force(false)
				marked.Add(inst.FullName)
				changed = true
			}
		}
	}
	return nil
}

func (c *Chain) dependsOnAny(inst *taskdef.TaskInstance, marked mapset.Set) bool {
	for _, linked := range inst.Inputs {
		switch v := linked.(type) {
		case *taskdef.TaskInstance:
			if marked.Contains(v.FullName) {
				return true
			}
		case []*taskdef.TaskInstance:
			for _, m := range v {
				if marked.Contains(m.FullName) {
					return true
				}
			}
		}
	}
	return false
}

func (c *Chain) selectTasks(names []string) ([]*taskdef.TaskInstance, error) {
	if len(names) == 0 {
		return c.resolved.Instances, nil
	}
	out := make([]*taskdef.TaskInstance, 0, len(names))
	for _, name := range names {
		inst, ok := c.Task(name)
		if !ok {
			return nil, fmt.Errorf("chain: force: no such task %q", name)
		}
		out = append(out, inst)
	}
	return out, nil
}

// HasData reports whether inst's artifact is present and finished,
// without triggering evaluation.
func (c *Chain) HasData(inst *taskdef.TaskInstance) bool { return c.hasData(inst) }

func (c *Chain) hasData(inst *taskdef.TaskInstance) bool {
	path, err := c.DataPath(inst)
	if err != nil {
		return false
	}
	exists, err := inst.Handler.Exists(path)
	if err != nil || !exists {
		return false
	}
	finished, err := inst.Handler.IsFinished(path)
	return err == nil && finished
}

// --- engine.ChainContext ---

// DataPath computes the stable artifact layout spec §6 defines:
// <root>/<group>[/<subgroup>]*/<task-name>/<stem>.<ext>, where stem is
// the fingerprint in parameter mode or the owning config's name
// otherwise (spec §6's parameter-mode toggle).
func (c *Chain) DataPath(inst *taskdef.TaskInstance) (string, error) {
	stem, err := c.artifactStem(inst)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.taskDir(inst), stem+inst.Handler.Ext()), nil
}

func (c *Chain) RunInfoPath(inst *taskdef.TaskInstance) (string, error) {
	stem, err := c.artifactStem(inst)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.taskDir(inst), stem+".run_info.yaml"), nil
}

func (c *Chain) LogPath(inst *taskdef.TaskInstance) (string, error) {
	stem, err := c.artifactStem(inst)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.taskDir(inst), stem+".log"), nil
}

// RunInfo reads back inst's run-info sidecar (spec §6: `.run_info`):
// task identity, owning config, parameter values, input fingerprints,
// timing, and the invoking user, as last written by the run that
// produced inst's current artifact.
func (c *Chain) RunInfo(inst *taskdef.TaskInstance) (*datahandler.RunInfo, error) {
	path, err := c.RunInfoPath(inst)
	if err != nil {
		return nil, err
	}
	return datahandler.ReadRunInfo(path)
}

// Log streams inst's .log sidecar to dst (spec §6: `.log`), the same
// content a cache hit would have replayed during evaluation. A task
// that finished without ever writing to its sidecar streams nothing.
func (c *Chain) Log(inst *taskdef.TaskInstance, dst io.Writer) error {
	path, err := c.LogPath(inst)
	if err != nil {
		return err
	}
	return chainlog.Replay(path, dst)
}

func (c *Chain) Fingerprint(inst *taskdef.TaskInstance) (fingerprint.Digest, error) {
	return c.fpEngine.Of(inst)
}

func (c *Chain) ConfigName(inst *taskdef.TaskInstance) string {
	return inst.Config.Name
}

func (c *Chain) Logger() hclog.Logger { return c.logger }

// SetLogLevel reconfigures the chain-wide logger level (spec §6:
// `.set_log_level(level)`).
func (c *Chain) SetLogLevel(level hclog.Level) {
	c.logger.SetLevel(level)
}

func (c *Chain) artifactStem(inst *taskdef.TaskInstance) (string, error) {
	if !c.parameterMode {
		return inst.Config.Name, nil
	}
	fp, err := c.Fingerprint(inst)
	if err != nil {
		return "", err
	}
	return string(fp), nil
}

func (c *Chain) taskDir(inst *taskdef.TaskInstance) string {
	segments := []string{c.artifactRoot}
	if inst.Class.Group != "" {
		segments = append(segments, strings.Split(inst.Class.Group, ".")...)
	}
	segments = append(segments, inst.Class.Name)
	return filepath.Join(segments...)
}

// CreateReadableFilenames places sibling symlinks
// <user-name>.<ext> → <fingerprint>.<ext> for every task whose config
// declares human_readable_data_name (spec §6), slugged via
// gosimple/slug exactly as the teacher's link.go slugs a chain name.
func (c *Chain) CreateReadableFilenames() error {
	for _, inst := range c.resolved.Instances {
		if inst.Config.HumanReadableDataName == "" {
			continue
		}
		dataPath, err := c.DataPath(inst)
		if err != nil {
			return err
		}
		readableName := slug.Make(inst.Config.HumanReadableDataName) + inst.Handler.Ext()
		linkPath := filepath.Join(filepath.Dir(dataPath), readableName)

		_ = os.Remove(linkPath)
		if err := os.Symlink(filepath.Base(dataPath), linkPath); err != nil {
			return fmt.Errorf("chain: creating readable symlink for %s: %w", inst.FullName, err)
		}
	}
	return nil
}
