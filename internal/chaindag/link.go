// Package chaindag implements the Dependency Linker (spec §4.4):
// resolving each TaskClass's declared input-task references against the
// chain's resolved TaskInstances, assembling the DAG, and asserting
// acyclicity.
package chaindag

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pyr-sh/dag"

	"github.com/taskchain-go/taskchain/internal/taskdef"
	"github.com/taskchain-go/taskchain/internal/taskresolve"
)

// Link resolves every TaskClass input declaration across resolved's
// instances, populates each TaskInstance.Inputs, and returns the
// resulting dependency graph (edges point from a task to the inputs it
// depends on, matching the teacher's scheduler.go convention of
// connecting `toTaskId -> fromTaskId`).
func Link(resolved *taskresolve.Resolved) (*dag.AcyclicGraph, error) {
	for _, inst := range resolved.Instances {
		inst.Inputs = map[string]interface{}{}
	}

	g := &dag.AcyclicGraph{}
	for _, inst := range resolved.Instances {
		g.Add(inst.FullName)
	}

	for _, inst := range resolved.Instances {
		for _, spec := range inst.Class.Inputs {
			matches, err := resolveRef(spec, inst, resolved.Instances, resolved.ByName)
			if err != nil {
				return nil, fmt.Errorf("task %s: input %q: %w", inst.FullName, spec.FieldName, err)
			}

			if spec.Regex {
				sort.Slice(matches, func(i, j int) bool { return matches[i].FullName < matches[j].FullName })
				inst.Inputs[spec.FieldName] = matches
				for _, m := range matches {
					g.Connect(dag.BasicEdge(inst.FullName, m.FullName))
				}
				continue
			}

			m := matches[0]
			inst.Inputs[spec.FieldName] = m
			g.Connect(dag.BasicEdge(inst.FullName, m.FullName))
		}
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("dependency cycle in chain: %w", err)
	}
	return g, nil
}

// resolveRef implements spec §4.4's reference grammar: by class (dotted
// path, containing "."), by "namespace::group:name" (exact), by
// "group:name", by bare name, or by regular expression. Non-regex
// lookups by bare name or group:name are scoped to the referencing
// instance's own namespace unless spec.NamespaceEscape (a `~~` prefix)
// is set.
func resolveRef(spec taskdef.InputSpec, owner *taskdef.TaskInstance, all []*taskdef.TaskInstance, byName map[string]*taskdef.TaskInstance) ([]*taskdef.TaskInstance, error) {
	if spec.Regex {
		re, err := regexp.Compile(spec.Ref)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", spec.Ref, err)
		}
		var matches []*taskdef.TaskInstance
		for _, inst := range all {
			if re.MatchString(inst.FullName) {
				matches = append(matches, inst)
			}
		}
		return matches, nil
	}

	var candidates []*taskdef.TaskInstance
	switch {
	case strings.Contains(spec.Ref, "::"):
		if inst, ok := byName[spec.Ref]; ok {
			candidates = append(candidates, inst)
		}
	case strings.Contains(spec.Ref, ":"):
		for _, inst := range all {
			if !spec.NamespaceEscape && inst.Namespace != owner.Namespace {
				continue
			}
			if groupName(inst) == spec.Ref {
				candidates = append(candidates, inst)
			}
		}
	case strings.Contains(spec.Ref, "."):
		for _, inst := range all {
			if inst.Class.DottedPath == spec.Ref {
				candidates = append(candidates, inst)
			}
		}
	default:
		for _, inst := range all {
			if !spec.NamespaceEscape && inst.Namespace != owner.Namespace {
				continue
			}
			if inst.Class.Name == spec.Ref {
				candidates = append(candidates, inst)
			}
		}
	}

	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("no task matches reference %q", spec.Ref)
	case 1:
		return candidates, nil
	default:
		return nil, fmt.Errorf("reference %q is ambiguous (%d matches); qualify with namespace::group:name", spec.Ref, len(candidates))
	}
}

func groupName(inst *taskdef.TaskInstance) string {
	return inst.Class.Group + ":" + inst.Class.Name
}
