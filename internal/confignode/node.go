// Package confignode implements the Config Loader (spec §4.1): parsing
// one config description into a tree of ConfigNodes, with placeholder
// substitution, `uses` resolution and namespacing, multi-part files, and
// context overlays.
package confignode

// ReservedParameterNames may never be used as a user parameter key,
// per spec §3.
var ReservedParameterNames = map[string]bool{
	"tasks":                    true,
	"uses":                     true,
	"excluded_tasks":           true,
	"configs":                  true,
	"for_namespaces":           true,
	"human_readable_data_name": true,
}

// ConfigNode is one node of the loaded config tree (spec §3).
type ConfigNode struct {
	Name      string
	Namespace string

	// Params holds every non-structural top-level key: the parameter
	// bindings available to tasks owned by this node.
	Params map[string]interface{}

	// Uses holds the child ConfigNodes pulled in via a `uses` entry,
	// each already carrying its namespace (parent namespace + "::" +
	// declared "as" suffix, if any).
	Uses []*ConfigNode

	Tasks                 []string
	ExcludedTasks         []string
	HumanReadableDataName string

	// SourcePath identifies where this node was loaded from, used in
	// error messages and as part of its load-time identity for cycle
	// detection.
	SourcePath string
}

// Param returns the node's own (non-inherited) value for name.
func (n *ConfigNode) Param(name string) (interface{}, bool) {
	v, ok := n.Params[name]
	return v, ok
}

// FullNamespace returns namespace, or "" if this node is unnamespaced.
func (n *ConfigNode) FullNamespace() string {
	return n.Namespace
}

// Ancestry performs a breadth-first walk of n and every ConfigNode
// reachable through `uses`, nearest first. Used by the Parameter Binder
// (spec §4.3: "breadth-first, nearest wins").
func (n *ConfigNode) Ancestry() []*ConfigNode {
	var order []*ConfigNode
	queue := []*ConfigNode{n}
	seen := map[*ConfigNode]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		order = append(order, cur)
		queue = append(queue, cur.Uses...)
	}
	return order
}

// AllNodes flattens n and its full `uses` closure into a single slice,
// each node appearing once.
func (n *ConfigNode) AllNodes() []*ConfigNode {
	return n.Ancestry()
}
