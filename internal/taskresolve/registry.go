// Package taskresolve implements the Task Registry / Resolver (spec
// §4.2): a build-time registry standing in for the source's dotted-path
// import (spec §9), wildcard expansion, excluded_tasks subtraction, and
// TaskInstance creation with derived group/name/full-name.
package taskresolve

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pascaldekloe/name"

	"github.com/taskchain-go/taskchain/internal/confignode"
	"github.com/taskchain-go/taskchain/internal/taskdef"
)

// Registry maps a dotted task path to its TaskClass, populated at
// program start by Register calls in task-defining packages (the
// module-init-hook pattern spec §9 recommends in place of dotted-path
// import).
type Registry struct {
	classes map[string]*taskdef.TaskClass
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{classes: map[string]*taskdef.TaskClass{}}
}

// Register adds class to the registry, deriving its Name from
// DottedPath when Name is empty. Registering the same DottedPath twice
// is a programmer error and panics, matching the teacher's backend
// registry (internal/backends.go) which panics on duplicate
// registration rather than returning an error a caller could ignore.
func (r *Registry) Register(class *taskdef.TaskClass) {
	if class.DottedPath == "" {
		panic("taskresolve: TaskClass registered with empty DottedPath")
	}
	if class.Name == "" {
		class.Name = DeriveName(class.DottedPath)
	}
	if _, exists := r.classes[class.DottedPath]; exists {
		panic(fmt.Sprintf("taskresolve: duplicate registration for %q", class.DottedPath))
	}
	r.classes[class.DottedPath] = class
	r.order = append(r.order, class.DottedPath)
}

// DeriveName implements spec §4.2's "Name derivation": a trailing
// "Task" suffix is stripped, then CamelCase is converted to snake_case.
// Only the final path segment is considered; the package qualification
// plays no part in the derived name.
func DeriveName(dottedPath string) string {
	segment := dottedPath
	if idx := strings.LastIndex(segment, "."); idx >= 0 {
		segment = segment[idx+1:]
	}
	segment = strings.TrimSuffix(segment, "Task")
	return name.Delimit(segment, '_')
}

// classesMatching expands one tasks/excluded_tasks grammar entry (spec
// §4.2: exact dotted path, or a `.*` prefix wildcard over one module)
// into the set of matching TaskClasses. Abstract classes never match:
// a wildcard skips them, and naming one directly is an error.
func (r *Registry) classesMatching(entry string) ([]*taskdef.TaskClass, error) {
	if !strings.HasSuffix(entry, ".*") {
		class, ok := r.classes[entry]
		if !ok {
			return nil, fmt.Errorf("unknown task %q", entry)
		}
		if class.Abstract {
			return nil, fmt.Errorf("task %q is abstract and cannot be instantiated directly", entry)
		}
		return []*taskdef.TaskClass{class}, nil
	}

	g, err := glob.Compile(entry, '.')
	if err != nil {
		return nil, fmt.Errorf("invalid task pattern %q: %w", entry, err)
	}
	var matched []*taskdef.TaskClass
	for _, path := range r.order {
		class := r.classes[path]
		if class.Abstract {
			continue
		}
		if g.Match(path) {
			matched = append(matched, class)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("task pattern %q matched no registered task", entry)
	}
	return matched, nil
}

// expandSelector resolves a full tasks/excluded_tasks list into a
// deduplicated set of TaskClasses, keyed by DottedPath for stable
// subtraction.
func (r *Registry) expandSelector(entries []string) (map[string]*taskdef.TaskClass, error) {
	result := map[string]*taskdef.TaskClass{}
	for _, entry := range entries {
		matched, err := r.classesMatching(entry)
		if err != nil {
			return nil, err
		}
		for _, c := range matched {
			result[c.DottedPath] = c
		}
	}
	return result, nil
}

// nodeTaskClasses computes the TaskClasses a single ConfigNode selects:
// tasks expansion minus excluded_tasks expansion (spec §4.2).
func (r *Registry) nodeTaskClasses(n *confignode.ConfigNode) ([]*taskdef.TaskClass, error) {
	selected, err := r.expandSelector(n.Tasks)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", n.SourcePath, err)
	}
	excluded, err := r.expandSelector(n.ExcludedTasks)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", n.SourcePath, err)
	}
	out := make([]*taskdef.TaskClass, 0, len(selected))
	for path, class := range selected {
		if _, isExcluded := excluded[path]; isExcluded {
			continue
		}
		out = append(out, class)
	}
	return out, nil
}
