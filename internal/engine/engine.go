// Package engine implements the Execution Engine (spec §4.7): the
// public value(task) request, lazy DAG walking, cross-process lock
// discipline, run-method invocation, return-type validation, and
// persistence. Grounded on the teacher's internal/run/run.go task
// closure (per-task named logger, cache hit/miss branch, log sidecar)
// and internal/core/scheduler.go's dependency-first Walk order,
// repurposed from "shell out to a package script" to "invoke a Task's
// Run method with a declarative parameter/input bag".
package engine

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/taskchain-go/taskchain/internal/chainlog"
	"github.com/taskchain-go/taskchain/internal/datahandler"
	"github.com/taskchain-go/taskchain/internal/fingerprint"
	"github.com/taskchain-go/taskchain/internal/lock"
	"github.com/taskchain-go/taskchain/internal/taskdef"
)

// ChainContext is the slice of Chain behavior the engine needs, kept as
// an interface here so this package never imports the chain package
// (which imports engine) — the same inversion the teacher uses between
// internal/core and internal/run.
type ChainContext interface {
	DataPath(inst *taskdef.TaskInstance) (string, error)
	RunInfoPath(inst *taskdef.TaskInstance) (string, error)
	LogPath(inst *taskdef.TaskInstance) (string, error)
	Fingerprint(inst *taskdef.TaskInstance) (fingerprint.Digest, error)
	ConfigName(inst *taskdef.TaskInstance) string
	Logger() hclog.Logger
}

// Value implements spec §4.7's algorithm. Recursion into input
// instances happens while the lock for inst is held, so nested locks
// are taken from a task down through its inputs in dependency order;
// because the DAG is acyclic this nesting never waits on itself.
func Value(ctx context.Context, cc ChainContext, inst *taskdef.TaskInstance) (interface{}, error) {
	if v, ok := inst.CachedValue(); ok {
		return v, nil
	}

	dataPath, err := cc.DataPath(inst)
	if err != nil {
		return nil, err
	}

	var result interface{}
	err = lock.WithLock(ctx, dataPath, func() error {
		if !inst.IsForced() {
			exists, err := inst.Handler.Exists(dataPath)
			if err != nil {
				return err
			}
			finished, err := inst.Handler.IsFinished(dataPath)
			if err != nil {
				return err
			}
			if exists && finished {
				v, err := inst.Handler.Load(dataPath)
				if err != nil {
					return err
				}
				if logPath, err := cc.LogPath(inst); err == nil {
					if err := chainlog.Replay(logPath, os.Stdout); err != nil {
						cc.Logger().Debug("failed to replay log", "task", inst.FullName, "error", err)
					}
				}
				result = v
				return nil
			}
		}

		if inst.ForceDeletesData() {
			_ = deleteArtifact(inst, dataPath)
		}
		inst.ClearForce()

		v, err := run(ctx, cc, inst, dataPath)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	inst.SetCachedValue(result)
	return result, nil
}

// run recursively evaluates inst's inputs, invokes its Run method, and
// persists the result.
func run(ctx context.Context, cc ChainContext, inst *taskdef.TaskInstance, dataPath string) (interface{}, error) {
	logger := cc.Logger().Named(inst.FullName)

	logPath, err := cc.LogPath(inst)
	if err != nil {
		return nil, err
	}
	sink, err := chainlog.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("task %s: opening log sidecar: %w", inst.FullName, err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			logger.Warn("failed to close log sidecar", "error", cerr)
		}
	}()
	logger = chainlog.NewLogger(inst.FullName, cc.Logger().GetLevel(), sink)

	inputValues := map[string]interface{}{}
	for _, spec := range inst.Class.Inputs {
		linked := inst.Inputs[spec.FieldName]
		switch v := linked.(type) {
		case *taskdef.TaskInstance:
			if spec.AsObject {
				inputValues[spec.FieldName] = v
				continue
			}
			val, err := Value(ctx, cc, v)
			if err != nil {
				return nil, fmt.Errorf("task %s: evaluating input %q: %w", inst.FullName, spec.FieldName, err)
			}
			inputValues[spec.FieldName] = val
		case []*taskdef.TaskInstance:
			if spec.AsObject {
				inputValues[spec.FieldName] = v
				continue
			}
			values := make([]interface{}, 0, len(v))
			for _, m := range v {
				val, err := Value(ctx, cc, m)
				if err != nil {
					return nil, fmt.Errorf("task %s: evaluating input %q: %w", inst.FullName, spec.FieldName, err)
				}
				values = append(values, val)
			}
			inputValues[spec.FieldName] = values
		default:
			return nil, fmt.Errorf("task %s: input %q not linked", inst.FullName, spec.FieldName)
		}
	}

	started := time.Now()

	task := inst.Class.New()
	rc := &taskdef.RunContext{
		Params: taskdef.NewParameterBag(inst.Params),
		Inputs: taskdef.NewInputValues(inputValues),
	}
	if usesOutputPath(inst.Handler) {
		rc.OutputPath = dataPath
	}

	logger.Debug("running task", "class", inst.Class.DottedPath)
	value, err := task.Run(rc)
	if err != nil {
		return nil, fmt.Errorf("task %s: run-method failed: %w", inst.FullName, err)
	}
	ended := time.Now()

	if err := checkReturnType(value, inst.Class.ReturnType); err != nil {
		return nil, fmt.Errorf("task %s: %w", inst.FullName, err)
	}

	if err := inst.Handler.Save(dataPath, value); err != nil {
		return nil, fmt.Errorf("task %s: persisting result: %w", inst.FullName, err)
	}
	if err := inst.Handler.MarkFinished(dataPath); err != nil {
		return nil, fmt.Errorf("task %s: marking finished: %w", inst.FullName, err)
	}

	if err := writeRunInfo(cc, inst, started, ended); err != nil {
		logger.Warn("failed to write run-info", "error", err)
	}

	return value, nil
}

// usesOutputPath reports whether h is a checkpoint-style handler whose
// task writes directly to RunContext.OutputPath rather than returning
// an in-memory value (spec §4.6). Handlers opt in via
// datahandler.OutputPathUser rather than a concrete type switch, so a
// wrapping handler such as remotemirror.Mirror can forward the
// capability of whatever it wraps.
func usesOutputPath(h taskdef.Handler) bool {
	u, ok := h.(datahandler.OutputPathUser)
	return ok && u.UsesOutputPath()
}

func deleteArtifact(inst *taskdef.TaskInstance, path string) error {
	exists, err := inst.Handler.Exists(path)
	if err != nil || !exists {
		return err
	}
	return os.RemoveAll(path)
}

// checkReturnType compares value against declared with the leniency
// spec §4.7 calls for: a mapping annotation matches any mapping,
// parametrized collection hints check outer kind only.
func checkReturnType(value interface{}, declared reflect.Type) error {
	if declared == nil {
		return nil
	}
	if _, ok := value.(datahandler.DirHandle); ok {
		return nil
	}
	if _, ok := value.(datahandler.Stream); ok {
		return nil
	}

	vt := reflect.TypeOf(value)
	if vt == nil {
		return fmt.Errorf("run-method returned nil, declared return type is %s", declared)
	}
	if vt.AssignableTo(declared) {
		return nil
	}
	if declared.Kind() == vt.Kind() {
		switch declared.Kind() {
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Interface:
			return nil
		}
	}
	return fmt.Errorf("run-method returned %s, declared return type is %s", vt, declared)
}

func writeRunInfo(cc ChainContext, inst *taskdef.TaskInstance, started, ended time.Time) error {
	runInfoPath, err := cc.RunInfoPath(inst)
	if err != nil {
		return err
	}

	inputFingerprints := map[string]string{}
	for _, spec := range inst.Class.Inputs {
		switch v := inst.Inputs[spec.FieldName].(type) {
		case *taskdef.TaskInstance:
			fp, err := cc.Fingerprint(v)
			if err != nil {
				return err
			}
			inputFingerprints[spec.FieldName] = string(fp)
		case []*taskdef.TaskInstance:
			for i, m := range v {
				fp, err := cc.Fingerprint(m)
				if err != nil {
					return err
				}
				inputFingerprints[fmt.Sprintf("%s[%d]", spec.FieldName, i)] = string(fp)
			}
		}
	}

	info := &datahandler.RunInfo{
		TaskClass:         inst.Class.DottedPath,
		TaskFullName:      inst.FullName,
		ConfigName:        cc.ConfigName(inst),
		ConfigNamespace:   inst.Namespace,
		Parameters:        inst.Params,
		InputFingerprints: inputFingerprints,
		Started:           started,
		Ended:             ended,
		Elapsed:           ended.Sub(started).String(),
		User:              datahandler.CurrentUser(),
	}
	return datahandler.WriteRunInfo(runInfoPath, info)
}
