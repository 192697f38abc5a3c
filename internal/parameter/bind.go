// Package parameter implements the Parameter Binder (spec §4.3):
// breadth-first nearest-wins lookup of each TaskClass parameter against
// a TaskInstance's owning ConfigNode and its `uses` ancestry, type
// coercion, and parameter-object construction.
package parameter

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/taskchain-go/taskchain/internal/confignode"
	"github.com/taskchain-go/taskchain/internal/taskdef"
)

// MissingParameterError is returned when a declared parameter has no
// default and is not found anywhere in the owning ConfigNode's
// ancestry (spec §7 "Parameter error").
type MissingParameterError struct {
	TaskFullName string
	ParamName    string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("task %s: missing required parameter %q", e.TaskFullName, e.ParamName)
}

// Binder resolves parameter objects declared as {class, args, kwargs}
// by dotted path, mirroring taskresolve.Registry but for a disjoint
// namespace of constructible value types.
type Binder struct {
	objects *ObjectRegistry
}

func NewBinder(objects *ObjectRegistry) *Binder {
	if objects == nil {
		objects = NewObjectRegistry()
	}
	return &Binder{objects: objects}
}

// Bind fills inst.Params from inst.Class.Params, searching
// inst.Config's ancestry breadth-first, nearest wins (spec §4.3).
func (b *Binder) Bind(inst *taskdef.TaskInstance) error {
	inst.Params = make(map[string]interface{}, len(inst.Class.Params))

	ancestry := inst.Config.Ancestry()
	for _, spec := range inst.Class.Params {
		raw, found := lookupInAncestry(ancestry, spec.LookupName())
		if !found {
			if !spec.HasDefault {
				return &MissingParameterError{TaskFullName: inst.FullName, ParamName: spec.Name}
			}
			inst.Params[spec.Name] = spec.Default
			continue
		}

		coerced, err := b.coerce(raw, spec.Type)
		if err != nil {
			return errors.Wrapf(err, "task %s: parameter %q", inst.FullName, spec.Name)
		}
		inst.Params[spec.Name] = coerced
	}

	return nil
}

// lookupInAncestry searches nodes in order (already breadth-first,
// nearest first per ConfigNode.Ancestry) for name.
func lookupInAncestry(nodes []*confignode.ConfigNode, name string) (interface{}, bool) {
	for _, n := range nodes {
		if v, ok := n.Param(name); ok {
			return v, true
		}
	}
	return nil, false
}
