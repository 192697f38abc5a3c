package taskresolve

import (
	"fmt"

	"github.com/taskchain-go/taskchain/internal/confignode"
	"github.com/taskchain-go/taskchain/internal/taskdef"
)

// Resolved is the Resolver's output (spec §4.2): a flat set of
// TaskInstances together with a full-name index.
type Resolved struct {
	Instances []*taskdef.TaskInstance
	ByName    map[string]*taskdef.TaskInstance
}

// Resolve walks every ConfigNode reachable from root (root itself plus
// its full `uses` closure) and instantiates one TaskInstance per
// (TaskClass, owning ConfigNode) pair it selects.
func (r *Registry) Resolve(root *confignode.ConfigNode) (*Resolved, error) {
	out := &Resolved{ByName: map[string]*taskdef.TaskInstance{}}

	for _, node := range root.AllNodes() {
		classes, err := r.nodeTaskClasses(node)
		if err != nil {
			return nil, err
		}
		for _, class := range classes {
			inst := &taskdef.TaskInstance{
				Class:     class,
				Config:    node,
				Namespace: node.Namespace,
			}
			inst.FullName = fullName(node.Namespace, class.Group, class.Name)

			if existing, dup := out.ByName[inst.FullName]; dup {
				return nil, fmt.Errorf(
					"duplicate task full name %q: %s and %s both resolve to it",
					inst.FullName, existing.Class.DottedPath, class.DottedPath)
			}

			out.Instances = append(out.Instances, inst)
			out.ByName[inst.FullName] = inst
		}
	}

	return out, nil
}

// fullName builds "<namespace>::<group>:<name>" (spec §4.2), collapsing
// the separator for any component that is empty.
func fullName(namespace, group, name string) string {
	full := name
	if group != "" {
		full = group + ":" + full
	}
	if namespace != "" {
		full = namespace + "::" + full
	}
	return full
}
