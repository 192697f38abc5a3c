// Package taskdef holds the data types shared by every stage of config
// resolution (spec §3's data model): TaskClass, ParamSpec, InputSpec,
// and TaskInstance. Behavior lives in the sibling packages
// (taskresolve, parameter, chaindag, fingerprint, engine); this package
// only carries the shapes they all need to agree on, the way the
// teacher's internal/context.go carries the Context/Graph shared by
// every command package.
package taskdef

import "reflect"

// ParamSpec is one declared parameter on a TaskClass (spec §3's
// Parameter entity).
type ParamSpec struct {
	Name string

	// NameInConfig is the key looked up in a ConfigNode; defaults to
	// Name when empty (spec §4.3).
	NameInConfig string

	HasDefault bool
	Default    interface{}

	Type reflect.Type

	IgnorePersistence        bool
	DontPersistDefaultValue  bool
}

func (p ParamSpec) LookupName() string {
	if p.NameInConfig != "" {
		return p.NameInConfig
	}
	return p.Name
}

// InputSpec is one declared input-task reference on a TaskClass (spec
// §4.4).
type InputSpec struct {
	// FieldName is the key the run-method sees in the InputValues map.
	FieldName string

	// Ref is the textual reference: a dotted task-class path, a bare
	// task name, "group:name", "namespace::group:name", or a regular
	// expression when Regex is set.
	Ref   string
	Regex bool

	// NamespaceEscape corresponds to a `~~` prefix in the ref: ignore
	// namespace scoping during resolution.
	NamespaceEscape bool

	// AsObject requests the linked TaskInstance itself rather than its
	// computed value (spec §4.7 run-method argument binding).
	AsObject bool
}

// TaskClass is a registered, instantiable task definition (spec §3).
type TaskClass struct {
	// DottedPath is the registry key tasks/excluded_tasks select by,
	// e.g. "pipeline.tasks.FilteredDataTask" (spec §9: a build-time
	// registry stands in for dotted-path import).
	DottedPath string

	// Name is the derived or explicit task name (spec §4.2).
	Name string

	// Group organizes persistence layout; empty collapses out of the
	// full name.
	Group string

	Abstract bool

	Params []ParamSpec
	Inputs []InputSpec

	ReturnType reflect.Type

	// DataClass overrides the data-handler chosen from ReturnType, when
	// non-empty (spec §4.6).
	DataClass string

	// New constructs a fresh Task instance; the engine invokes it each
	// time it runs a TaskInstance of this class.
	New func() Task
}

// ParameterBag is the read-only parameter view a Task's Run method
// receives, replacing the source's reflected-signature injection (spec
// §9's declarative-interface redesign note).
type ParameterBag struct {
	values map[string]interface{}
}

func NewParameterBag(values map[string]interface{}) *ParameterBag {
	return &ParameterBag{values: values}
}

func (b *ParameterBag) Get(name string) (interface{}, bool) {
	v, ok := b.values[name]
	return v, ok
}

func (b *ParameterBag) MustGet(name string) interface{} {
	v, ok := b.values[name]
	if !ok {
		panic("taskdef: parameter " + name + " not bound")
	}
	return v
}

func (b *ParameterBag) String(name string) string {
	v, _ := b.Get(name)
	s, _ := v.(string)
	return s
}

func (b *ParameterBag) Int(name string) int {
	v, _ := b.Get(name)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func (b *ParameterBag) Bool(name string) bool {
	v, _ := b.Get(name)
	n, _ := v.(bool)
	return n
}

// InputValues is the map of declared input keys to either computed
// values or, for inputs declared AsObject, the linked TaskInstance.
type InputValues struct {
	values map[string]interface{}
}

func NewInputValues(values map[string]interface{}) *InputValues {
	return &InputValues{values: values}
}

func (iv *InputValues) Get(name string) (interface{}, bool) {
	v, ok := iv.values[name]
	return v, ok
}

func (iv *InputValues) List(name string) []interface{} {
	v, ok := iv.values[name]
	if !ok {
		return nil
	}
	list, _ := v.([]interface{})
	return list
}

// RunContext is passed to Task.Run: a parameter bag plus resolved
// inputs, nothing else. No signature reflection, per spec §9.
type RunContext struct {
	Params *ParameterBag
	Inputs *InputValues

	// OutputPath is set for directory-backed, continuable, and streamed
	// data classes (spec §4.6): the task reads/writes checkpoint files
	// here directly rather than through a returned in-memory value. A
	// continuable task inspects OutputPath for prior checkpoints at the
	// start of Run to resume partial progress (spec §5 "Cancellation").
	OutputPath string
}

// Task is implemented by user code. A systems-language port trades the
// source's reflected-callable for this single typed entry point.
type Task interface {
	Run(rc *RunContext) (interface{}, error)
}

// ChainObject is implemented by parameter objects that need a
// back-reference to their owning chain after assembly (spec §4.3's
// ChainObject variant). The chain is passed as interface{} to avoid a
// package cycle between taskdef and the chain package; implementers
// type-assert to the concrete chain type they expect.
type ChainObject interface {
	SetChain(chain interface{})
}

// AutoParameterObject is implemented by parameter objects that want a
// canonical string identity derived from their fields automatically
// (spec §4.3), rather than hand-writing String().
type AutoParameterObject interface {
	// IgnorePersistenceArgs names constructor-style fields to omit from
	// the canonical identity entirely.
	IgnorePersistenceArgs() []string
	// DontPersistDefaultValueArgs names fields to omit when they hold
	// their zero value.
	DontPersistDefaultValueArgs() []string
}
